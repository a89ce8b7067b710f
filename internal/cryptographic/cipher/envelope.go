// Package cipher provides authenticated symmetric encryption for message
// and media payloads. Every envelope is nonce || ciphertext, where the
// ciphertext carries the authentication tag; truncation or a flipped bit
// fails decryption outright.
package cipher

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"sealedchat/internal/cryptographic"
	"sealedchat/internal/model"
)

// Overhead is the size an envelope adds to its plaintext.
const Overhead = model.NonceSize + secretbox.Overhead

func seal(plaintext []byte, key []byte) ([]byte, error) {
	if len(key) != model.KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", cryptographic.ErrInvalidInput, model.KeySize)
	}

	// A fresh random nonce per envelope: the conversation key is shared by
	// several senders, so counters cannot guarantee uniqueness.
	var nonce [model.NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("%w: rand.Read nonce: %v", cryptographic.ErrCryptoUnavailable, err)
	}

	var k [model.KeySize]byte
	copy(k[:], key)

	// return nonce || ciphertext
	return secretbox.Seal(nonce[:], plaintext, &nonce, &k), nil
}

func open(envelope []byte, key []byte) ([]byte, error) {
	if len(key) != model.KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", cryptographic.ErrInvalidInput, model.KeySize)
	}
	if len(envelope) < Overhead {
		return nil, cryptographic.ErrDecryptionFailed
	}

	var nonce [model.NonceSize]byte
	copy(nonce[:], envelope[:model.NonceSize])

	var k [model.KeySize]byte
	copy(k[:], key)

	plaintext, ok := secretbox.Open(nil, envelope[model.NonceSize:], &nonce, &k)
	if !ok {
		return nil, cryptographic.ErrDecryptionFailed
	}
	return plaintext, nil
}
