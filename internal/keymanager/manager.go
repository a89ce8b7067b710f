// Package keymanager produces and distributes the symmetric key protecting
// one conversation's content.
//
// Two schemes coexist on purpose, with different trust models:
//
//   - Key wrapping (messages): a random key sealed to every participant's
//     public key. The server stores only ciphertext and wrapped grants and
//     cannot recover the key.
//   - Deterministic derivation (media only): a keyed hash over the
//     conversation identity and a stored salt. Anyone who can read the
//     participant list and the salt, the server included, can compute this
//     key. Media therefore trusts the server; messages do not.
package keymanager

import (
	"context"
	"errors"

	"sealedchat/internal/model"
)

var (
	// ErrConversationNotFound reports that no salt or grant state exists
	// for the conversation.
	ErrConversationNotFound = errors.New("keymanager: conversation not found")

	// ErrAccessDenied reports that the caller holds no grant for the
	// conversation. Membership itself is checked by the callers' API
	// layer; this only surfaces the missing grant.
	ErrAccessDenied = errors.New("keymanager: access denied")
)

type (
	// SaltStore persists one derivation salt per conversation. Creation
	// must be idempotent under races: two participants hitting a new
	// conversation at once must observe the same salt.
	SaltStore interface {
		GetOrCreateSalt(ctx context.Context, conversationID string) ([]byte, error)
	}

	// GrantStore persists wrapped key grants, one per participant per
	// conversation.
	GrantStore interface {
		PutGrants(ctx context.Context, grants []*model.WrappedKeyGrant) error
		GetGrant(ctx context.Context, conversationID, userName string) (*model.WrappedKeyGrant, error)
	}

	// PublicKeyDirectory resolves a user's identity public key.
	PublicKeyDirectory interface {
		GetPublicKey(ctx context.Context, name string) ([]byte, error)
	}

	Manager struct {
		salts     SaltStore
		grants    GrantStore
		directory PublicKeyDirectory
	}
)

func New(salts SaltStore, grants GrantStore, directory PublicKeyDirectory) *Manager {
	return &Manager{
		salts:     salts,
		grants:    grants,
		directory: directory,
	}
}
