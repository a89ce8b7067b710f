// Package keypair generates long-lived identity keypairs. The keys are
// Curve25519 encryption keys used to receive wrapped conversation keys;
// they are never used for signatures.
package keypair

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"

	"sealedchat/internal/cryptographic"
	"sealedchat/internal/model"
)

// Generate draws a fresh identity keypair from the system RNG.
func Generate() (*model.IdentityKeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: box.GenerateKey: %v", cryptographic.ErrCryptoUnavailable, err)
	}

	return &model.IdentityKeyPair{
		PublicKey:  pub[:],
		PrivateKey: priv[:],
	}, nil
}
