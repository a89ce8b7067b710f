package model

import "go.mongodb.org/mongo-driver/bson/primitive"

type (
	User struct {
		ID        primitive.ObjectID       `json:"-" bson:"_id,omitempty"`
		Name      string                   `json:"name" bson:"name"`
		PublicKey []byte                   `json:"public_key" bson:"public_key"`
		Vault     *EncryptedPrivateKeyBlob `json:"vault,omitempty" bson:"vault,omitempty"`
	}
)
