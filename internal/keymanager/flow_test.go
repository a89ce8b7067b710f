package keymanager

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"sealedchat/internal/cryptographic"
	"sealedchat/internal/cryptographic/cipher"
	"sealedchat/internal/cryptographic/vault"
	"sealedchat/internal/model"
)

// Full client-side flow: identity sealed and recovered by password, then a
// shared conversation key carrying a message between two parties.

func TestIdentityLifecycle(t *testing.T) {
	v := vault.New(vault.Argon2id{Time: 1, MemoryKB: 8 * 1024, Threads: 1})

	alicePriv := bytes.Repeat([]byte{0x11}, model.KeySize)
	blob, err := v.Seal(alicePriv, "correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	recovered, err := v.Open(blob, "correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !bytes.Equal(recovered, alicePriv) {
		t.Fatal("recovered private key differs from original")
	}

	got, err := v.Open(blob, "wrong")
	if !errors.Is(err, cryptographic.ErrDecryptionFailed) {
		t.Fatalf("Open(wrong) error = %v, want ErrDecryptionFailed", err)
	}
	if got != nil {
		t.Fatal("Open(wrong) returned a partial key")
	}
}

func TestTwoPartyMessageExchange(t *testing.T) {
	ctx := context.Background()
	m, identities := testManager(t, "alice", "bob")

	// alice creates the conversation and mints the wrapped key
	aliceKey, err := m.MintConversationKey(ctx, "c1", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("MintConversationKey() error = %v", err)
	}

	envelope, err := cipher.EncryptMessage("hello", aliceKey)
	if err != nil {
		t.Fatalf("EncryptMessage() error = %v", err)
	}

	// bob independently recovers the key from his grant
	bobKey, err := m.UnwrapConversationKey(ctx, "c1", "bob", identities["bob"])
	if err != nil {
		t.Fatalf("UnwrapConversationKey() error = %v", err)
	}

	msg, err := cipher.DecryptMessage(envelope, bobKey)
	if err != nil {
		t.Fatalf("DecryptMessage() error = %v", err)
	}
	if msg != "hello" {
		t.Fatalf("DecryptMessage() = %q, want %q", msg, "hello")
	}
}

func TestTwoPartyMediaExchange(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(t, "alice", "bob")

	aliceKey, err := m.DeriveMediaKey(ctx, "c1", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("DeriveMediaKey(alice) error = %v", err)
	}

	payload := bytes.Repeat([]byte{0xAB, 0xCD}, 4096)
	envelope, err := cipher.EncryptMedia(payload, aliceKey)
	if err != nil {
		t.Fatalf("EncryptMedia() error = %v", err)
	}

	// bob lists participants in his own order and still derives the key
	bobKey, err := m.DeriveMediaKey(ctx, "c1", []string{"bob", "alice"})
	if err != nil {
		t.Fatalf("DeriveMediaKey(bob) error = %v", err)
	}

	got, err := cipher.DecryptMedia(envelope, bobKey)
	if err != nil {
		t.Fatalf("DecryptMedia() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("decrypted media differs from original")
	}
}
