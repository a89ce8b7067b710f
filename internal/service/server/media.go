package server

import (
	"errors"
	"io"
	"net/http"

	"sealedchat/internal/cryptographic/cipher"
	"sealedchat/internal/keymanager"
	"sealedchat/internal/model"
	"sealedchat/internal/utils/log"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type (
	uploadMediaResponse struct {
		ID string `json:"id"`
	}
)

// UploadMedia stores one encrypted attachment. The body is an opaque
// envelope sealed client-side under the conversation's derived media key;
// the content type travels in a header, never inside the ciphertext.
func (s *HttpServer) UploadMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		conversationID := mux.Vars(r)["conversationID"]
		uploadedBy := r.URL.Query().Get("user")
		if uploadedBy == "" {
			http.Error(w, "user cannot be empty", http.StatusBadRequest)
			return
		}

		if _, err := s.convRepo.Get(ctx, conversationID); errors.Is(err, keymanager.ErrConversationNotFound) {
			http.Error(w, "conversation does not exist", http.StatusNotFound)
			return
		} else if err != nil {
			log.Error("Get conversation failed", zap.Error(err))
			http.Error(w, "get conversation failed", http.StatusInternalServerError)
			return
		}

		// the whole-buffer cipher means memory per upload is bounded by
		// this cap plus the envelope overhead
		body := http.MaxBytesReader(w, r.Body, s.cfg.MediaMaxBytes+cipher.Overhead)
		envelope, err := io.ReadAll(body)
		if err != nil {
			http.Error(w, "media exceeds size cap", http.StatusRequestEntityTooLarge)
			return
		}
		if len(envelope) < cipher.Overhead {
			http.Error(w, "envelope too short", http.StatusBadRequest)
			return
		}

		id, err := s.convRepo.PutMedia(ctx, &model.Media{
			ConversationID: conversationID,
			UploadedBy:     uploadedBy,
			ContentType:    r.Header.Get("X-Media-Content-Type"),
			Envelope:       envelope,
		})
		if err != nil {
			log.Error("Store media failed", zap.Error(err))
			http.Error(w, "store media failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, &uploadMediaResponse{ID: id})
	}
}

// DownloadMedia returns the stored envelope as-is. Decryption is the
// caller's business; with the derived media key the server could decrypt
// too, which is the documented trust relaxation for attachments.
func (s *HttpServer) DownloadMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		media, err := s.convRepo.GetMedia(ctx, mux.Vars(r)["id"])
		if err != nil {
			log.Error("Get media failed", zap.Error(err))
			http.Error(w, "media does not exist", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, media)
	}
}
