// Package conversation persists conversation membership, derivation salts,
// wrapped key grants and encrypted media blobs.
package conversation

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"sealedchat/internal/keymanager"
	"sealedchat/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type (
	ConversationRepo struct {
		conversations *mongo.Collection
		salts         *mongo.Collection
		grants        *mongo.Collection
		media         *mongo.Collection
	}
)

func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{
		conversations: db.Collection("conversations"),
		salts:         db.Collection("salts"),
		grants:        db.Collection("grants"),
		media:         db.Collection("media"),
	}
}

// EnsureIndexes creates the uniqueness constraints the key manager's
// idempotency contract relies on. Safe to call on every startup.
func (r *ConversationRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("conversations index: %w", err)
	}

	_, err = r.salts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("salts index: %w", err)
	}

	_, err = r.grants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "user_name", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("grants index: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	_, err := r.conversations.InsertOne(ctx, conv)
	return err
}

func (r *ConversationRepo) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.conversations.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, keymanager.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetOrCreateSalt returns the conversation's derivation salt, creating it
// on first access. Two participants racing on a new conversation both end
// up with the same salt: the insert hits the unique index and the loser
// re-reads the winner's document.
func (r *ConversationRepo) GetOrCreateSalt(ctx context.Context, conversationID string) ([]byte, error) {
	salt, err := r.readSalt(ctx, conversationID)
	if err == nil {
		return salt, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	fresh := make([]byte, model.ConversationSaltSize)
	if _, err := io.ReadFull(rand.Reader, fresh); err != nil {
		return nil, fmt.Errorf("rand.Read salt: %w", err)
	}

	_, err = r.salts.InsertOne(ctx, &model.ConversationSalt{
		ConversationID: conversationID,
		Salt:           fresh,
	})
	if err == nil {
		return fresh, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, err
	}

	// lost the race; the stored salt wins
	return r.readSalt(ctx, conversationID)
}

func (r *ConversationRepo) readSalt(ctx context.Context, conversationID string) ([]byte, error) {
	var doc model.ConversationSalt
	err := r.salts.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.Salt, nil
}

func (r *ConversationRepo) PutGrants(ctx context.Context, grants []*model.WrappedKeyGrant) error {
	for _, g := range grants {
		filter := bson.M{
			"conversation_id": g.ConversationID,
			"user_name":       g.UserName,
		}
		update := bson.M{"$setOnInsert": g}
		_, err := r.grants.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("store grant for %q: %w", g.UserName, err)
		}
	}
	return nil
}

func (r *ConversationRepo) GetGrant(ctx context.Context, conversationID, userName string) (*model.WrappedKeyGrant, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"user_name":       userName,
	}

	var grant model.WrappedKeyGrant
	err := r.grants.FindOne(ctx, filter).Decode(&grant)
	if err == mongo.ErrNoDocuments {
		// distinguish a missing conversation from a non-member
		if _, convErr := r.Get(ctx, conversationID); convErr != nil {
			return nil, convErr
		}
		return nil, keymanager.ErrAccessDenied
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// PutMedia stores one encrypted attachment and returns its id. The blob is
// opaque here; the repo never sees plaintext.
func (r *ConversationRepo) PutMedia(ctx context.Context, media *model.Media) (string, error) {
	res, err := r.media.InsertOne(ctx, media)
	if err != nil {
		return "", err
	}
	id := res.InsertedID.(primitive.ObjectID)
	media.ID = id
	return id.Hex(), nil
}

func (r *ConversationRepo) GetMedia(ctx context.Context, id string) (*model.Media, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid media id %q", id)
	}

	var media model.Media
	err = r.media.FindOne(ctx, bson.M{"_id": oid}).Decode(&media)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("media %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &media, nil
}
