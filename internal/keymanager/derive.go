package keymanager

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"sealedchat/internal/cryptographic"
)

// DeriveMediaKey computes the deterministic media key for a conversation,
// fetching or creating the conversation salt as needed. Every participant
// derives the same key from the same inputs; so can the server, which is
// the accepted trust relaxation for media.
func (m *Manager) DeriveMediaKey(ctx context.Context, conversationID string, participants []string) ([]byte, error) {
	if conversationID == "" || len(participants) == 0 {
		return nil, fmt.Errorf("%w: conversation id and participants required", cryptographic.ErrInvalidInput)
	}
	salt, err := m.salts.GetOrCreateSalt(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation salt: %w", err)
	}
	return DeriveKey(conversationID, participants, salt), nil
}

// DeriveKey is the pure derivation: a BLAKE2b-256 digest over the
// conversation id, the sorted participant list and the base64 form of the
// salt. Changing any input changes the key; the caller's participant
// ordering does not.
func DeriveKey(conversationID string, participants []string, salt []byte) []byte {
	sorted := append([]string(nil), participants...)
	sort.Strings(sorted)

	h, _ := blake2b.New256(nil)
	h.Write([]byte(conversationID))
	for _, p := range sorted {
		h.Write([]byte(p))
	}
	h.Write([]byte(base64.StdEncoding.EncodeToString(salt)))

	return h.Sum(nil)
}
