package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"sealedchat/internal/model"
	"sealedchat/internal/utils/log"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const publicKeyCacheTTL = 10 * time.Minute

type (
	registerRequest struct {
		Name      string                         `json:"name"`
		PublicKey []byte                         `json:"public_key"`
		Vault     *model.EncryptedPrivateKeyBlob `json:"vault"`
	}

	publicKeyResponse struct {
		Name      string `json:"name"`
		PublicKey []byte `json:"public_key"`
	}
)

// RegisterKeys stores a user's public key and sealed private-key blob. The
// blob is already encrypted client-side; the server never sees the
// password or the plaintext private key.
func (s *HttpServer) RegisterKeys() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" || len(req.PublicKey) != model.KeySize || req.Vault == nil {
			http.Error(w, "name, public key and vault are required", http.StatusBadRequest)
			return
		}

		if err := s.userRepo.SetKeys(ctx, req.Name, req.PublicKey, req.Vault); err != nil {
			log.Error("Register keys failed", zap.Error(err))
			http.Error(w, "register keys failed", http.StatusInternalServerError)
			return
		}
		s.invalidateCachedPublicKey(ctx, req.Name)

		w.WriteHeader(http.StatusNoContent)
	}
}

// Public keys are immutable in practice (rotation is unimplemented), so a
// short redis cache in front of mongo is safe.

func (s *HttpServer) cachedPublicKey(ctx context.Context, name string) ([]byte, bool) {
	if s.redisService == nil {
		return nil, false
	}
	v, err := s.redisService.Get(ctx, publicKeyCacheKey(name))
	if err != nil {
		return nil, false
	}
	pub, err := base64.StdEncoding.DecodeString(v)
	if err != nil || len(pub) != model.KeySize {
		return nil, false
	}
	return pub, true
}

func (s *HttpServer) cachePublicKey(ctx context.Context, name string, pub []byte) {
	if s.redisService == nil {
		return
	}
	err := s.redisService.Set(ctx, publicKeyCacheKey(name), base64.StdEncoding.EncodeToString(pub), publicKeyCacheTTL)
	if err != nil {
		log.Debug("cache public key failed", zap.Error(err))
	}
}

func (s *HttpServer) invalidateCachedPublicKey(ctx context.Context, name string) {
	if s.redisService == nil {
		return
	}
	if err := s.redisService.Del(ctx, publicKeyCacheKey(name)); err != nil {
		log.Debug("invalidate public key cache failed", zap.Error(err))
	}
}

func publicKeyCacheKey(name string) string {
	return fmt.Sprintf("pubkey: %s", name)
}

// GetPublicKeyOfUser returns only the public half of a user's identity.
func (s *HttpServer) GetPublicKeyOfUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		vars := mux.Vars(r)
		name := vars["name"]

		if pub, ok := s.cachedPublicKey(ctx, name); ok {
			writeJSON(w, http.StatusOK, &publicKeyResponse{Name: name, PublicKey: pub})
			return
		}

		pub, err := s.userRepo.GetPublicKey(ctx, name)
		if err != nil {
			log.Error("Get public key failed", zap.Error(err))
			http.Error(w, "user does not exist", http.StatusNotFound)
			return
		}
		s.cachePublicKey(ctx, name, pub)

		writeJSON(w, http.StatusOK, &publicKeyResponse{Name: name, PublicKey: pub})
	}
}

// GetVaultOfUser returns the sealed private-key blob for session
// bootstrap. The blob is useless without the owner's password.
func (s *HttpServer) GetVaultOfUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		vars := mux.Vars(r)
		name := vars["name"]

		user, err := s.userRepo.GetByName(ctx, name)
		if err != nil {
			log.Error("Get vault failed", zap.Error(err))
			http.Error(w, "get vault failed", http.StatusInternalServerError)
			return
		}
		if user == nil || user.Vault == nil {
			http.Error(w, "no vault for user", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, user.Vault)
	}
}
