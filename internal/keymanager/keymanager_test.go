package keymanager

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"sealedchat/internal/cryptographic"
	"sealedchat/internal/cryptographic/keypair"
	"sealedchat/internal/model"
)

type memSaltStore struct {
	mu    sync.Mutex
	salts map[string][]byte
}

func newMemSaltStore() *memSaltStore {
	return &memSaltStore{salts: make(map[string][]byte)}
}

// insert-or-fetch-existing under one lock, the same contract the mongo
// store provides with its unique index
func (s *memSaltStore) GetOrCreateSalt(_ context.Context, conversationID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if salt, ok := s.salts[conversationID]; ok {
		return salt, nil
	}
	salt := make([]byte, model.ConversationSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	s.salts[conversationID] = salt
	return salt, nil
}

type memGrantStore struct {
	mu     sync.Mutex
	grants map[string]*model.WrappedKeyGrant
}

func newMemGrantStore() *memGrantStore {
	return &memGrantStore{grants: make(map[string]*model.WrappedKeyGrant)}
}

func grantKey(conversationID, userName string) string {
	return conversationID + "/" + userName
}

func (s *memGrantStore) PutGrants(_ context.Context, grants []*model.WrappedKeyGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range grants {
		s.grants[grantKey(g.ConversationID, g.UserName)] = g
	}
	return nil
}

func (s *memGrantStore) GetGrant(_ context.Context, conversationID, userName string) (*model.WrappedKeyGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[grantKey(conversationID, userName)]
	if !ok {
		return nil, ErrAccessDenied
	}
	return g, nil
}

type memDirectory struct {
	keys map[string][]byte
}

func (d *memDirectory) GetPublicKey(_ context.Context, name string) ([]byte, error) {
	pub, ok := d.keys[name]
	if !ok {
		return nil, fmt.Errorf("user %q not found", name)
	}
	return pub, nil
}

func testManager(t *testing.T, users ...string) (*Manager, map[string]*model.IdentityKeyPair) {
	t.Helper()
	dir := &memDirectory{keys: make(map[string][]byte)}
	identities := make(map[string]*model.IdentityKeyPair)
	for _, name := range users {
		kp, err := keypair.Generate()
		if err != nil {
			t.Fatalf("keypair.Generate() error = %v", err)
		}
		dir.keys[name] = kp.PublicKey
		identities[name] = kp
	}
	return New(newMemSaltStore(), newMemGrantStore(), dir), identities
}

func TestMintAndUnwrapConversationKey(t *testing.T) {
	ctx := context.Background()
	m, identities := testManager(t, "alice", "bob")

	key, err := m.MintConversationKey(ctx, "c1", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("MintConversationKey() error = %v", err)
	}
	if len(key) != model.KeySize {
		t.Fatalf("key size = %d, want %d", len(key), model.KeySize)
	}

	for _, name := range []string{"alice", "bob"} {
		got, err := m.UnwrapConversationKey(ctx, "c1", name, identities[name])
		if err != nil {
			t.Fatalf("UnwrapConversationKey(%s) error = %v", name, err)
		}
		if !bytes.Equal(got, key) {
			t.Fatalf("%s unwrapped %x, want %x", name, got, key)
		}
	}
}

func TestUnwrapWithoutGrant(t *testing.T) {
	ctx := context.Background()
	m, identities := testManager(t, "alice", "bob", "eve")

	if _, err := m.MintConversationKey(ctx, "c1", []string{"alice", "bob"}); err != nil {
		t.Fatalf("MintConversationKey() error = %v", err)
	}

	if _, err := m.UnwrapConversationKey(ctx, "c1", "eve", identities["eve"]); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("UnwrapConversationKey(eve) error = %v, want ErrAccessDenied", err)
	}
}

func TestUnwrapWrongPrivateKey(t *testing.T) {
	ctx := context.Background()
	m, identities := testManager(t, "alice", "bob")

	if _, err := m.MintConversationKey(ctx, "c1", []string{"alice", "bob"}); err != nil {
		t.Fatalf("MintConversationKey() error = %v", err)
	}

	// bob's grant cannot be opened with alice's keypair
	if _, err := m.UnwrapConversationKey(ctx, "c1", "bob", identities["alice"]); !errors.Is(err, cryptographic.ErrDecryptionFailed) {
		t.Fatalf("UnwrapConversationKey(bob, alice keys) error = %v, want ErrDecryptionFailed", err)
	}
}

func TestGrantParticipantAfterCreation(t *testing.T) {
	ctx := context.Background()
	m, identities := testManager(t, "alice", "bob", "carol")

	key, err := m.MintConversationKey(ctx, "c1", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("MintConversationKey() error = %v", err)
	}

	if err := m.GrantParticipant(ctx, "c1", "carol", key); err != nil {
		t.Fatalf("GrantParticipant() error = %v", err)
	}

	got, err := m.UnwrapConversationKey(ctx, "c1", "carol", identities["carol"])
	if err != nil {
		t.Fatalf("UnwrapConversationKey(carol) error = %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatalf("carol unwrapped %x, want %x", got, key)
	}
}

func TestWrapKeyRoundTrip(t *testing.T) {
	kp, err := keypair.Generate()
	if err != nil {
		t.Fatalf("keypair.Generate() error = %v", err)
	}

	shared := make([]byte, model.KeySize)
	if _, err := io.ReadFull(rand.Reader, shared); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	wrapped, err := WrapKey(shared, kp.PublicKey)
	if err != nil {
		t.Fatalf("WrapKey() error = %v", err)
	}
	got, err := UnwrapKey(wrapped, kp.PublicKey, kp.PrivateKey)
	if err != nil {
		t.Fatalf("UnwrapKey() error = %v", err)
	}
	if !bytes.Equal(got, shared) {
		t.Fatalf("UnwrapKey() = %x, want %x", got, shared)
	}
}

func TestWrapKeyTamperedGrant(t *testing.T) {
	kp, err := keypair.Generate()
	if err != nil {
		t.Fatalf("keypair.Generate() error = %v", err)
	}
	shared := make([]byte, model.KeySize)
	wrapped, err := WrapKey(shared, kp.PublicKey)
	if err != nil {
		t.Fatalf("WrapKey() error = %v", err)
	}
	wrapped[len(wrapped)-1] ^= 0x01
	if _, err := UnwrapKey(wrapped, kp.PublicKey, kp.PrivateKey); !errors.Is(err, cryptographic.ErrDecryptionFailed) {
		t.Fatalf("UnwrapKey(tampered) error = %v, want ErrDecryptionFailed", err)
	}
}

func TestDeriveKeyDeterminism(t *testing.T) {
	salt := bytes.Repeat([]byte{0xAB}, model.ConversationSaltSize)

	k1 := DeriveKey("c1", []string{"alice", "bob"}, salt)
	k2 := DeriveKey("c1", []string{"bob", "alice"}, salt)
	if !bytes.Equal(k1, k2) {
		t.Fatal("participant order changed the derived key")
	}
	if len(k1) != model.KeySize {
		t.Fatalf("key size = %d, want %d", len(k1), model.KeySize)
	}

	if bytes.Equal(k1, DeriveKey("c2", []string{"alice", "bob"}, salt)) {
		t.Error("different conversation id produced the same key")
	}
	if bytes.Equal(k1, DeriveKey("c1", []string{"alice", "bob", "carol"}, salt)) {
		t.Error("different participant set produced the same key")
	}
	otherSalt := bytes.Repeat([]byte{0xCD}, model.ConversationSaltSize)
	if bytes.Equal(k1, DeriveKey("c1", []string{"alice", "bob"}, otherSalt)) {
		t.Error("different salt produced the same key")
	}
}

func TestDeriveMediaKeySharedAcrossParticipants(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(t, "alice", "bob")

	k1, err := m.DeriveMediaKey(ctx, "c1", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("DeriveMediaKey() error = %v", err)
	}
	k2, err := m.DeriveMediaKey(ctx, "c1", []string{"bob", "alice"})
	if err != nil {
		t.Fatalf("DeriveMediaKey() error = %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("two participants derived different media keys")
	}
}

func TestGetOrCreateSaltConcurrent(t *testing.T) {
	store := newMemSaltStore()
	ctx := context.Background()

	const callers = 16
	salts := make([][]byte, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			salt, err := store.GetOrCreateSalt(ctx, "c1")
			if err != nil {
				t.Errorf("GetOrCreateSalt() error = %v", err)
				return
			}
			salts[i] = salt
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if !bytes.Equal(salts[0], salts[i]) {
			t.Fatalf("caller %d observed a different salt", i)
		}
	}
}
