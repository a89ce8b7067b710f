// Package vault seals a user's identity private key under a
// password-derived key. The sealed blob is the only form of the private
// key allowed to persist; an opened key may live only in session-scoped
// memory.
package vault

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"sealedchat/internal/cryptographic"
	"sealedchat/internal/model"
)

// MinPasswordLen rejects trivially guessable passwords at the seal
// boundary. Stand-in values such as an email address do not qualify as a
// user secret.
const MinPasswordLen = 8

type (
	Vault struct {
		kdf KeyDeriver
	}
)

func New(kdf KeyDeriver) *Vault {
	return &Vault{kdf: kdf}
}

// Seal encrypts privateKey under a key derived from password. Salt and
// nonce are drawn fresh on every call and never reused.
func (v *Vault) Seal(privateKey []byte, password string) (*model.EncryptedPrivateKeyBlob, error) {
	if len(privateKey) == 0 {
		return nil, fmt.Errorf("%w: empty private key", cryptographic.ErrInvalidInput)
	}
	if len(password) < MinPasswordLen {
		return nil, fmt.Errorf("%w: password shorter than %d characters", cryptographic.ErrInvalidInput, MinPasswordLen)
	}

	salt := make([]byte, model.VaultSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: rand.Read salt: %v", cryptographic.ErrCryptoUnavailable, err)
	}

	var nonce [model.NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("%w: rand.Read nonce: %v", cryptographic.ErrCryptoUnavailable, err)
	}

	var key [model.KeySize]byte
	copy(key[:], v.kdf.DeriveKey(password, salt))
	defer zeroKey(&key)

	ciphertext := secretbox.Seal(nil, privateKey, &nonce, &key)

	return &model.EncryptedPrivateKeyBlob{
		Salt:       salt,
		Nonce:      nonce[:],
		Ciphertext: ciphertext,
	}, nil
}

// Open re-derives the key from password and the stored salt and decrypts
// the blob. Every failure surfaces as ErrDecryptionFailed: a wrong
// password and a corrupted blob are deliberately indistinguishable.
func (v *Vault) Open(blob *model.EncryptedPrivateKeyBlob, password string) ([]byte, error) {
	if blob == nil || len(blob.Salt) != model.VaultSaltSize || len(blob.Nonce) != model.NonceSize {
		return nil, cryptographic.ErrDecryptionFailed
	}

	var nonce [model.NonceSize]byte
	copy(nonce[:], blob.Nonce)

	var key [model.KeySize]byte
	copy(key[:], v.kdf.DeriveKey(password, blob.Salt))
	defer zeroKey(&key)

	privateKey, ok := secretbox.Open(nil, blob.Ciphertext, &nonce, &key)
	if !ok {
		return nil, cryptographic.ErrDecryptionFailed
	}
	return privateKey, nil
}

func zeroKey(key *[model.KeySize]byte) {
	for i := range key {
		key[i] = 0
	}
}
