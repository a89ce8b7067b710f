package cipher

import (
	"fmt"

	"sealedchat/internal/cryptographic"
)

// EncryptMessage seals a UTF-8 text payload under the conversation key.
func EncryptMessage(plaintext string, key []byte) ([]byte, error) {
	if plaintext == "" {
		return nil, fmt.Errorf("%w: empty message", cryptographic.ErrInvalidInput)
	}
	return seal([]byte(plaintext), key)
}

// DecryptMessage opens an envelope produced by EncryptMessage.
func DecryptMessage(envelope []byte, key []byte) (string, error) {
	plaintext, err := open(envelope, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
