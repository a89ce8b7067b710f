package model

type (
	// IdentityKeyPair is a user's long-lived Curve25519 encryption keypair.
	// The public half is uploaded to the user directory; the private half
	// only ever persists inside an EncryptedPrivateKeyBlob.
	IdentityKeyPair struct {
		PublicKey  []byte `json:"public_key"`
		PrivateKey []byte `json:"private_key"`
	}

	// EncryptedPrivateKeyBlob is the at-rest form of a private key, sealed
	// under a password-derived key.
	EncryptedPrivateKeyBlob struct {
		Salt       []byte `json:"salt" bson:"salt"`
		Nonce      []byte `json:"nonce" bson:"nonce"`
		Ciphertext []byte `json:"ciphertext" bson:"ciphertext"`
	}

	// WrappedKeyGrant carries one conversation's symmetric key sealed to a
	// single participant's public key.
	WrappedKeyGrant struct {
		ConversationID string `json:"conversation_id" bson:"conversation_id"`
		UserName       string `json:"user_name" bson:"user_name"`
		WrappedKey     []byte `json:"wrapped_key" bson:"wrapped_key"`
	}
)

const (
	// KeySize is the length of public keys, private keys and conversation
	// symmetric keys.
	KeySize = 32

	// VaultSaltSize is the length of the password-hash salt in an
	// EncryptedPrivateKeyBlob.
	VaultSaltSize = 16

	// ConversationSaltSize is the length of a per-conversation derivation
	// salt.
	ConversationSaltSize = 32

	// NonceSize is the length of the nonce prefixed to every ciphertext
	// envelope.
	NonceSize = 24
)
