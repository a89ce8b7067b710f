package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"sealedchat/internal/config"
	"sealedchat/internal/model"
	"sealedchat/internal/utils/log"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type (
	// UserDirectory is the key directory backing the /keys and /vault
	// routes. Implemented by repository/user.
	UserDirectory interface {
		GetByName(ctx context.Context, name string) (*model.User, error)
		SetKeys(ctx context.Context, name string, publicKey []byte, vault *model.EncryptedPrivateKeyBlob) error
		GetPublicKey(ctx context.Context, name string) ([]byte, error)
	}

	// ConversationStore persists conversations, salts, grants and media
	// envelopes. Implemented by repository/conversation.
	ConversationStore interface {
		Create(ctx context.Context, conv *model.Conversation) error
		Get(ctx context.Context, conversationID string) (*model.Conversation, error)
		GetOrCreateSalt(ctx context.Context, conversationID string) ([]byte, error)
		PutGrants(ctx context.Context, grants []*model.WrappedKeyGrant) error
		GetGrant(ctx context.Context, conversationID, userName string) (*model.WrappedKeyGrant, error)
		PutMedia(ctx context.Context, media *model.Media) (string, error)
		GetMedia(ctx context.Context, id string) (*model.Media, error)
	}

	// Cache is the volatile store behind the offline message queue and
	// the public-key lookup cache. Implemented by service/redis.
	Cache interface {
		RPush(ctx context.Context, key string, value ...any) error
		LRange(ctx context.Context, key string) ([]string, error)
		Del(ctx context.Context, key string) error
		Set(ctx context.Context, key string, value any, ttl time.Duration) error
		Get(ctx context.Context, key string) (string, error)
	}

	// HttpServer relays ciphertext between clients and serves the key
	// directory. It never holds plaintext messages or unwrapped keys.
	HttpServer struct {
		cfg config.Config

		mu     sync.Mutex
		mapper map[string]*wsClient

		userRepo UserDirectory
		convRepo ConversationStore

		redisService Cache
	}

	// wsClient serializes writes to one websocket connection; gorilla
	// allows at most one concurrent writer per conn.
	wsClient struct {
		conn *websocket.Conn

		writeMu sync.Mutex
	}
)

func (c *wsClient) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

func (c *wsClient) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (s *HttpServer) addClient(userID string, conn *websocket.Conn) (*wsClient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mapper[userID]; ok {
		return nil, false
	}
	c := &wsClient{conn: conn}
	s.mapper[userID] = c
	return c, true
}

func (s *HttpServer) lookupClient(userID string) (*wsClient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.mapper[userID]
	return c, ok
}

func (s *HttpServer) removeClient(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mapper, userID)
}

func NewHttpServer(cfg config.Config, userRepo UserDirectory, convRepo ConversationStore, cache Cache) *HttpServer {
	return &HttpServer{
		cfg:          cfg,
		mapper:       make(map[string]*wsClient),
		userRepo:     userRepo,
		convRepo:     convRepo,
		redisService: cache,
	}
}

// Router wires every route; split out so tests can drive the handlers
// without a listener.
func (s *HttpServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/init", s.HandleInitWS()).Methods(http.MethodGet)

	r.HandleFunc("/register", s.RegisterKeys()).Methods(http.MethodPost)
	r.HandleFunc("/keys/{name}", s.GetPublicKeyOfUser()).Methods(http.MethodGet)
	r.HandleFunc("/vault/{name}", s.GetVaultOfUser()).Methods(http.MethodGet)

	r.HandleFunc("/conversations", s.CreateConversation()).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}", s.GetConversation()).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/grants", s.PutConversationGrants()).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}/salt", s.GetConversationSalt()).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/grant", s.GetConversationGrant()).Methods(http.MethodGet)

	r.HandleFunc("/media/{conversationID}", s.UploadMedia()).Methods(http.MethodPost)
	r.HandleFunc("/media/{id}", s.DownloadMedia()).Methods(http.MethodGet)

	return r
}

func (s *HttpServer) Run() error {
	log.Info("server listening", zap.String("addr", s.cfg.ListenAddr))
	return http.ListenAndServe(s.cfg.ListenAddr, s.Router())
}

func (s *HttpServer) HandleInitWS() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userID")
		if userID == "" {
			http.Error(w, "userID cannot be empty", http.StatusBadRequest)
			return
		}

		if _, ok := s.lookupClient(userID); ok {
			http.Error(w, "duplicated userID", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "Failed to upgrade", http.StatusInternalServerError)
			return
		}

		client, ok := s.addClient(userID, conn)
		if !ok {
			// lost the race to another connection with the same userID
			conn.Close()
			return
		}
		go s.processWSMessage(userID, client)
		if err := s.ForwardUnsentMessages(r.Context(), userID, client); err != nil {
			log.Error("forward msg failed", zap.Error(err))
		}
	}
}

func (s *HttpServer) processWSMessage(userID string, client *wsClient) {
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			log.Debug("worker web socket closed", zap.Error(err))
			s.removeClient(userID)
			client.conn.Close()
			break
		}

		var message model.Message
		err = json.Unmarshal(data, &message)
		if err != nil {
			log.Error("Unmarshal message failed", zap.Error(err))
			continue
		}

		// the envelope stays opaque; only routing fields are touched here
		if to, ok := s.lookupClient(message.To); ok {
			to.writeMessage(websocket.TextMessage, data)
		} else {
			if err := s.PutMessagesToCache(context.TODO(), message.To, []*model.Message{&message}); err != nil {
				log.Error("PutMessagesToCache failed", zap.Error(err))
			}
		}
	}
}

// ForwardUnsentMessages drains the offline queue to a freshly connected
// client. The queue entry is deleted only after every message is on the
// wire, so a crash mid-forward leaves the messages queued.
func (s *HttpServer) ForwardUnsentMessages(ctx context.Context, userID string, client *wsClient) error {
	messages, err := s.GetMessagesFromCache(ctx, userID)
	if err != nil {
		return err
	}

	for _, message := range messages {
		if err := client.writeJSON(message); err != nil {
			return err
		}
	}
	return s.DropMessagesFromCache(ctx, userID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
