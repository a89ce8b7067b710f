package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"sealedchat/internal/keymanager"
	"sealedchat/internal/model"

	"github.com/gorilla/websocket"
)

// HTTP bindings for the server's boundary contracts. The three api* types
// plug the key manager's store interfaces into the REST API.

func (c *App) getJSON(path string, out any) error {
	u := url.URL{
		Scheme: "http",
		Host:   c.cfg.ServerHost,
		Path:   path,
	}

	resp, err := http.Get(u.String())
	if err != nil {
		return err
	}

	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return errNotFound
	case http.StatusForbidden:
		return keymanager.ErrAccessDenied
	default:
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *App) postJSON(path string, body any, wantStatus int) error {
	u := url.URL{
		Scheme: "http",
		Host:   c.cfg.ServerHost,
		Path:   path,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := http.Post(u.String(), "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}

	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	return nil
}

var errNotFound = fmt.Errorf("not found")

type (
	publicKeyResponse struct {
		Name      string `json:"name"`
		PublicKey []byte `json:"public_key"`
	}

	saltResponse struct {
		Salt []byte `json:"salt"`
	}

	// apiDirectory resolves public keys through the user directory.
	apiDirectory struct{ app *App }

	// apiSaltStore fetches-or-creates the conversation salt server-side,
	// where the unique index makes creation idempotent.
	apiSaltStore struct{ app *App }

	// apiGrantStore moves wrapped grants to and from the server.
	apiGrantStore struct{ app *App }
)

func (d *apiDirectory) GetPublicKey(_ context.Context, name string) ([]byte, error) {
	var resp publicKeyResponse
	if err := d.app.getJSON(fmt.Sprintf("/keys/%s", name), &resp); err != nil {
		return nil, err
	}
	return resp.PublicKey, nil
}

func (s *apiSaltStore) GetOrCreateSalt(_ context.Context, conversationID string) ([]byte, error) {
	var resp saltResponse
	if err := s.app.getJSON(fmt.Sprintf("/conversations/%s/salt", conversationID), &resp); err != nil {
		return nil, err
	}
	return resp.Salt, nil
}

func (s *apiGrantStore) PutGrants(_ context.Context, grants []*model.WrappedKeyGrant) error {
	if len(grants) == 0 {
		return nil
	}
	path := fmt.Sprintf("/conversations/%s/grants", grants[0].ConversationID)
	return s.app.postJSON(path, grants, http.StatusNoContent)
}

func (s *apiGrantStore) GetGrant(_ context.Context, conversationID, userName string) (*model.WrappedKeyGrant, error) {
	var grant model.WrappedKeyGrant
	path := fmt.Sprintf("/conversations/%s/grant", conversationID)
	u := url.URL{
		Scheme:   "http",
		Host:     s.app.cfg.ServerHost,
		Path:     path,
		RawQuery: url.Values{"user": []string{userName}}.Encode(),
	}

	resp, err := http.Get(u.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, keymanager.ErrConversationNotFound
	case http.StatusForbidden:
		return nil, keymanager.ErrAccessDenied
	default:
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

func (c *App) register(name string, publicKey []byte, blob *model.EncryptedPrivateKeyBlob) error {
	return c.postJSON("/register", map[string]any{
		"name":       name,
		"public_key": publicKey,
		"vault":      blob,
	}, http.StatusNoContent)
}

func (c *App) getVault(name string) (*model.EncryptedPrivateKeyBlob, error) {
	var blob model.EncryptedPrivateKeyBlob
	if err := c.getJSON(fmt.Sprintf("/vault/%s", name), &blob); err != nil {
		return nil, err
	}
	return &blob, nil
}

func (c *App) getConversation(id string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := c.getJSON(fmt.Sprintf("/conversations/%s", id), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *App) createConversation(conv *model.Conversation) error {
	return c.postJSON("/conversations", conv, http.StatusCreated)
}

func (c *App) initWebhook(name string) (*websocket.Conn, error) {
	params := url.Values{
		"userID": []string{name},
	}

	u := url.URL{
		Scheme:   "ws",
		Host:     c.cfg.ServerHost,
		Path:     "/init",
		RawQuery: params.Encode(),
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	return conn, nil
}
