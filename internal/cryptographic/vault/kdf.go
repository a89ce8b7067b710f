package vault

import (
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"

	"sealedchat/internal/model"
	"sealedchat/internal/utils/log"
)

// KeyDeriver turns a password and salt into a 32-byte symmetric key. The
// variant is chosen once at startup and injected into the vault; it is
// never selected implicitly per call.
type KeyDeriver interface {
	Name() string
	DeriveKey(password string, salt []byte) []byte
}

type (
	// Argon2id is the default derivation: memory-hard, tuned for
	// interactive login rather than offline-attack resistance.
	Argon2id struct {
		Time     uint32
		MemoryKB uint32
		Threads  uint8
	}

	// GenericHashFallback derives the key with a salted BLAKE2b hash. It
	// exists for constrained environments where argon2's memory cost is
	// not affordable and offers far weaker password protection.
	GenericHashFallback struct{}
)

// DefaultArgon2id returns the interactive-use parameters.
func DefaultArgon2id() Argon2id {
	return Argon2id{Time: 2, MemoryKB: 64 * 1024, Threads: 1}
}

func (a Argon2id) Name() string { return "argon2id" }

func (a Argon2id) DeriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, a.Time, a.MemoryKB, a.Threads, model.KeySize)
}

// NewGenericHashFallback constructs the fallback deriver. Selecting it is
// always worth a loud diagnostic.
func NewGenericHashFallback() GenericHashFallback {
	log.Warn("vault: using generic-hash key derivation fallback; stored private keys are weakly protected against password guessing")
	return GenericHashFallback{}
}

func (GenericHashFallback) Name() string { return "blake2b" }

func (GenericHashFallback) DeriveKey(password string, salt []byte) []byte {
	h, err := blake2b.New256(salt)
	if err != nil {
		// salt length is fixed at 16 bytes, within blake2b's key bound
		panic(err)
	}
	h.Write([]byte(password))
	return h.Sum(nil)
}
