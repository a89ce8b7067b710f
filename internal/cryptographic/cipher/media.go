package cipher

import (
	"fmt"

	"sealedchat/internal/cryptographic"
)

// EncryptMedia seals an arbitrary binary buffer (file, thumbnail) as one
// authenticated unit. Whole-buffer sealing is a deliberate memory
// trade-off; payload size is capped by the server before this is called.
func EncryptMedia(buf []byte, key []byte) ([]byte, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty media buffer", cryptographic.ErrInvalidInput)
	}
	return seal(buf, key)
}

// DecryptMedia opens an envelope produced by EncryptMedia.
func DecryptMedia(envelope []byte, key []byte) ([]byte, error) {
	return open(envelope, key)
}
