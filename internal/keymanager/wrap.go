package keymanager

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"

	"sealedchat/internal/cryptographic"
	"sealedchat/internal/model"
)

// MintConversationKey creates a fresh random conversation key and seals it
// to every participant's public key with an ephemeral sender keypair, then
// persists the grants. The plaintext key is returned to the creating client
// so it can start encrypting immediately; it is never stored.
func (m *Manager) MintConversationKey(ctx context.Context, conversationID string, participants []string) ([]byte, error) {
	if conversationID == "" || len(participants) == 0 {
		return nil, fmt.Errorf("%w: conversation id and participants required", cryptographic.ErrInvalidInput)
	}

	key := make([]byte, model.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("%w: rand.Read key: %v", cryptographic.ErrCryptoUnavailable, err)
	}

	grants := make([]*model.WrappedKeyGrant, 0, len(participants))
	for _, name := range participants {
		pub, err := m.directory.GetPublicKey(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("public key of %q: %w", name, err)
		}
		wrapped, err := WrapKey(key, pub)
		if err != nil {
			return nil, fmt.Errorf("wrap key for %q: %w", name, err)
		}
		grants = append(grants, &model.WrappedKeyGrant{
			ConversationID: conversationID,
			UserName:       name,
			WrappedKey:     wrapped,
		})
	}

	if err := m.grants.PutGrants(ctx, grants); err != nil {
		return nil, fmt.Errorf("store grants: %w", err)
	}
	return key, nil
}

// UnwrapConversationKey recovers the shared key from the caller's own
// grant using their unsealed identity keypair.
func (m *Manager) UnwrapConversationKey(ctx context.Context, conversationID, userName string, identity *model.IdentityKeyPair) ([]byte, error) {
	grant, err := m.grants.GetGrant(ctx, conversationID, userName)
	if err != nil {
		return nil, err
	}
	return UnwrapKey(grant.WrappedKey, identity.PublicKey, identity.PrivateKey)
}

// GrantParticipant seals the already-known shared key to a participant
// added after creation. The key cannot be re-derived from public state, so
// an existing member must supply it.
func (m *Manager) GrantParticipant(ctx context.Context, conversationID, userName string, sharedKey []byte) error {
	if len(sharedKey) != model.KeySize {
		return fmt.Errorf("%w: shared key must be %d bytes", cryptographic.ErrInvalidInput, model.KeySize)
	}
	pub, err := m.directory.GetPublicKey(ctx, userName)
	if err != nil {
		return fmt.Errorf("public key of %q: %w", userName, err)
	}
	wrapped, err := WrapKey(sharedKey, pub)
	if err != nil {
		return err
	}
	return m.grants.PutGrants(ctx, []*model.WrappedKeyGrant{{
		ConversationID: conversationID,
		UserName:       userName,
		WrappedKey:     wrapped,
	}})
}

// WrapKey seals key to recipientPub under an ephemeral sender keypair.
func WrapKey(key []byte, recipientPub []byte) ([]byte, error) {
	if len(key) != model.KeySize || len(recipientPub) != model.KeySize {
		return nil, fmt.Errorf("%w: key and public key must be %d bytes", cryptographic.ErrInvalidInput, model.KeySize)
	}
	var pub [model.KeySize]byte
	copy(pub[:], recipientPub)

	wrapped, err := box.SealAnonymous(nil, key, &pub, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: box.SealAnonymous: %v", cryptographic.ErrCryptoUnavailable, err)
	}
	return wrapped, nil
}

// UnwrapKey opens a wrapped grant with the recipient's keypair. Any
// failure is reported as ErrDecryptionFailed.
func UnwrapKey(wrapped []byte, recipientPub, recipientPriv []byte) ([]byte, error) {
	if len(recipientPub) != model.KeySize || len(recipientPriv) != model.KeySize {
		return nil, fmt.Errorf("%w: keypair halves must be %d bytes", cryptographic.ErrInvalidInput, model.KeySize)
	}
	var pub, priv [model.KeySize]byte
	copy(pub[:], recipientPub)
	copy(priv[:], recipientPriv)

	key, ok := box.OpenAnonymous(nil, wrapped, &pub, &priv)
	if !ok {
		return nil, cryptographic.ErrDecryptionFailed
	}
	return key, nil
}
