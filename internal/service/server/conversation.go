package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"sealedchat/internal/keymanager"
	"sealedchat/internal/model"
	"sealedchat/internal/utils/log"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type (
	saltResponse struct {
		Salt []byte `json:"salt"`
	}
)

// CreateConversation records a conversation's membership. Key material is
// distributed separately: the creating client mints the key and posts
// sealed grants, so the plaintext conversation key never reaches the
// server.
func (s *HttpServer) CreateConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var conv model.Conversation
		if err := json.NewDecoder(r.Body).Decode(&conv); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if conv.ID == "" || len(conv.Participants) == 0 {
			http.Error(w, "conversation id and participants are required", http.StatusBadRequest)
			return
		}

		if err := s.convRepo.Create(ctx, &conv); err != nil {
			log.Error("Create conversation failed", zap.Error(err))
			http.Error(w, "create conversation failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

// PutConversationGrants stores the wrapped key grants minted client-side.
func (s *HttpServer) PutConversationGrants() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		conv, err := s.convRepo.Get(ctx, id)
		if errors.Is(err, keymanager.ErrConversationNotFound) {
			http.Error(w, "conversation does not exist", http.StatusNotFound)
			return
		} else if err != nil {
			log.Error("Get conversation failed", zap.Error(err))
			http.Error(w, "get conversation failed", http.StatusInternalServerError)
			return
		}

		var grants []*model.WrappedKeyGrant
		if err := json.NewDecoder(r.Body).Decode(&grants); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		participants := make(map[string]bool, len(conv.Participants))
		for _, p := range conv.Participants {
			participants[p] = true
		}
		for _, g := range grants {
			if g.ConversationID != id || !participants[g.UserName] {
				http.Error(w, "grant does not match conversation", http.StatusBadRequest)
				return
			}
		}

		if err := s.convRepo.PutGrants(ctx, grants); err != nil {
			log.Error("Store grants failed", zap.Error(err))
			http.Error(w, "store grants failed", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *HttpServer) GetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		conv, err := s.convRepo.Get(ctx, mux.Vars(r)["id"])
		if errors.Is(err, keymanager.ErrConversationNotFound) {
			http.Error(w, "conversation does not exist", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("Get conversation failed", zap.Error(err))
			http.Error(w, "get conversation failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, conv)
	}
}

// GetConversationSalt returns the derivation salt, creating it on first
// access. Concurrent first requests are safe: the repo's unique index
// makes creation idempotent.
func (s *HttpServer) GetConversationSalt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		if _, err := s.convRepo.Get(ctx, id); errors.Is(err, keymanager.ErrConversationNotFound) {
			http.Error(w, "conversation does not exist", http.StatusNotFound)
			return
		} else if err != nil {
			log.Error("Get conversation failed", zap.Error(err))
			http.Error(w, "get conversation failed", http.StatusInternalServerError)
			return
		}

		salt, err := s.convRepo.GetOrCreateSalt(ctx, id)
		if err != nil {
			log.Error("Get conversation salt failed", zap.Error(err))
			http.Error(w, "get conversation salt failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, &saltResponse{Salt: salt})
	}
}

// GetConversationGrant returns the caller's wrapped key grant.
func (s *HttpServer) GetConversationGrant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id := mux.Vars(r)["id"]
		user := r.URL.Query().Get("user")
		if user == "" {
			http.Error(w, "user cannot be empty", http.StatusBadRequest)
			return
		}

		grant, err := s.convRepo.GetGrant(ctx, id, user)
		if errors.Is(err, keymanager.ErrConversationNotFound) {
			http.Error(w, "conversation does not exist", http.StatusNotFound)
			return
		}
		if errors.Is(err, keymanager.ErrAccessDenied) {
			http.Error(w, "not a participant", http.StatusForbidden)
			return
		}
		if err != nil {
			log.Error("Get grant failed", zap.Error(err))
			http.Error(w, "get grant failed", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, grant)
	}
}
