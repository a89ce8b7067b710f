package user

import (
	"context"
	"fmt"

	"sealedchat/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type (
	// UserRepo is the user directory: public keys and sealed private-key
	// blobs, keyed by user name. Plaintext private keys never enter this
	// collection.
	UserRepo struct {
		collection *mongo.Collection
	}
)

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{
		collection: db.Collection("users"),
	}
}

// EnsureIndexes creates the unique name index. Safe to call on every
// startup.
func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *UserRepo) GetByName(ctx context.Context, name string) (*model.User, error) {
	filter := bson.M{
		"name": name,
	}

	var user model.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.collection.InsertOne(ctx, user)
	return err
}

// SetKeys stores a user's public key and sealed private-key blob,
// registering the user if needed.
func (r *UserRepo) SetKeys(ctx context.Context, name string, publicKey []byte, vault *model.EncryptedPrivateKeyBlob) error {
	filter := bson.M{"name": name}
	update := bson.M{
		"$set": bson.M{
			"public_key": publicKey,
			"vault":      vault,
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// GetPublicKey resolves just the public half of a user's identity.
func (r *UserRepo) GetPublicKey(ctx context.Context, name string) ([]byte, error) {
	user, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if user == nil || len(user.PublicKey) == 0 {
		return nil, fmt.Errorf("no public key registered for %q", name)
	}
	return user.PublicKey, nil
}
