package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"sealedchat/internal/cryptographic/cipher"
	"sealedchat/internal/model"
)

// SendFile seals a file under the derived media key, uploads the envelope
// and announces the attachment in the chat.
func (c *App) SendFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > c.cfg.MediaMaxBytes {
		return fmt.Errorf("file exceeds %d byte cap", c.cfg.MediaMaxBytes)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	envelope, err := cipher.EncryptMedia(buf, c.mediaKey)
	if err != nil {
		return err
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id, err := c.uploadMedia(envelope, contentType)
	if err != nil {
		return err
	}

	return c.SendMessage(fmt.Sprintf("sent attachment %s (%s), fetch with /get %s", filepath.Base(path), contentType, id))
}

// FetchFile downloads an envelope, opens it with the derived media key and
// writes the plaintext next to the working directory.
func (c *App) FetchFile(id string) error {
	media, err := c.downloadMedia(id)
	if err != nil {
		return err
	}

	buf, err := cipher.DecryptMedia(media.Envelope, c.mediaKey)
	if err != nil {
		return err
	}

	exts, _ := mime.ExtensionsByType(media.ContentType)
	ext := ""
	if len(exts) > 0 {
		ext = exts[0]
	}
	out := fmt.Sprintf("attachment-%s%s", id, ext)
	if err := os.WriteFile(out, buf, 0o600); err != nil {
		return err
	}

	c.app.QueueUpdateDraw(func() {
		fmt.Fprintf(c.chatbox, "[blue]saved attachment to %s[-]\n", out)
		c.input.SetText("")
		c.chatbox.ScrollToEnd()
	})
	return nil
}

func (c *App) uploadMedia(envelope []byte, contentType string) (string, error) {
	u := url.URL{
		Scheme:   "http",
		Host:     c.cfg.ServerHost,
		Path:     fmt.Sprintf("/media/%s", c.conversationID),
		RawQuery: url.Values{"user": []string{c.user.Name}}.Encode(),
	}

	req, err := http.NewRequest(http.MethodPost, u.String(), bytes.NewReader(envelope))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Media-Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload media: status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *App) downloadMedia(id string) (*model.Media, error) {
	var media model.Media
	if err := c.getJSON(fmt.Sprintf("/media/%s", id), &media); err != nil {
		return nil, err
	}
	return &media, nil
}
