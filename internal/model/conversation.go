package model

import "go.mongodb.org/mongo-driver/bson/primitive"

type (
	Conversation struct {
		ID           string   `json:"id" bson:"conversation_id"`
		Participants []string `json:"participants" bson:"participants"`
	}

	// ConversationSalt is the persisted per-conversation derivation salt.
	// It is written once and must stay stable for the conversation's
	// lifetime; every derived media key depends on it.
	ConversationSalt struct {
		ID             primitive.ObjectID `bson:"_id,omitempty"`
		ConversationID string             `bson:"conversation_id"`
		Salt           []byte             `bson:"salt"`
	}
)
