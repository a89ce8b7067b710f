package model

import "go.mongodb.org/mongo-driver/bson/primitive"

type (
	// Message is the wire form of one chat message. Envelope is
	// nonce || ciphertext produced by the message cipher; the server only
	// ever sees this field opaque.
	Message struct {
		ConversationID string `json:"conversation_id" validate:"required"`
		From           string `json:"from" validate:"required"`
		To             string `json:"to" validate:"required"`
		Envelope       []byte `json:"envelope" validate:"required"`
	}

	// Media is a stored encrypted attachment. ContentType is carried
	// out-of-band and never inferred from the ciphertext.
	Media struct {
		ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
		ConversationID string             `json:"conversation_id" bson:"conversation_id"`
		UploadedBy     string             `json:"uploaded_by" bson:"uploaded_by"`
		ContentType    string             `json:"content_type" bson:"content_type"`
		Envelope       []byte             `json:"envelope" bson:"envelope"`
	}
)
