package app

import (
	"context"
	"errors"
	"sort"
	"strings"

	"sealedchat/internal/model"
	"sealedchat/internal/utils/log"

	"go.uber.org/zap"
)

// conversationIDFor gives both parties of a direct chat the same id
// without coordination.
func conversationIDFor(a, b string) string {
	names := []string{a, b}
	sort.Strings(names)
	return strings.Join(names, ":")
}

// ensureConversation obtains the conversation's key material. If the
// conversation exists the key is unwrapped from this user's grant;
// otherwise the client creates the conversation, mints a fresh key and
// distributes sealed grants. The media key is derived separately under
// the server-visible salt scheme.
func (c *App) ensureConversation(ctx context.Context) error {
	id := conversationIDFor(c.user.Name, c.toName)
	c.conversationID = id

	participants := []string{c.user.Name, c.toName}

	_, err := c.getConversation(id)
	switch {
	case err == nil:
		key, err := c.keys.UnwrapConversationKey(ctx, id, c.user.Name, c.identity)
		if err != nil {
			return err
		}
		c.convKey = key

	case errors.Is(err, errNotFound):
		log.Info("creating conversation", zap.String("id", id))
		if err := c.createConversation(&model.Conversation{ID: id, Participants: participants}); err != nil {
			return err
		}
		key, err := c.keys.MintConversationKey(ctx, id, participants)
		if err != nil {
			return err
		}
		c.convKey = key

	default:
		return err
	}

	mediaKey, err := c.keys.DeriveMediaKey(ctx, id, participants)
	if err != nil {
		return err
	}
	c.mediaKey = mediaKey
	return nil
}
