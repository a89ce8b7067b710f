package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sealedchat/internal/config"
	"sealedchat/internal/cryptographic/cipher"
	"sealedchat/internal/cryptographic/vault"
	"sealedchat/internal/keymanager"
	"sealedchat/internal/model"
	"sealedchat/internal/utils/log"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

type (
	// App is the chat client. All encryption happens here: the server only
	// ever receives sealed envelopes and wrapped grants. The unsealed
	// identity key and conversation keys live in this struct for the
	// session and are wiped on Stop.
	App struct {
		app     *tview.Application
		chatbox *tview.TextView
		input   *tview.InputField

		cfg   config.Config
		vault *vault.Vault
		keys  *keymanager.Manager

		user     *model.User
		identity *model.IdentityKeyPair

		toName         string
		conversationID string

		// Protocol split: convKey wraps end-to-end (server-blind), the
		// media key is derivable by anyone who can read the salt.
		convKey  []byte
		mediaKey []byte

		conn *websocket.Conn
	}
)

func NewApp(cfg config.Config, v *vault.Vault) *App {
	a := &App{
		app:   tview.NewApplication(),
		cfg:   cfg,
		vault: v,
	}
	a.keys = keymanager.New(
		&apiSaltStore{app: a},
		&apiGrantStore{app: a},
		&apiDirectory{app: a},
	)
	return a
}

func (c *App) Run(ctx context.Context, name, password string) {
	if err := c.bootstrapIdentity(ctx, name, password); err != nil {
		log.Fatal("identity bootstrap failed", zap.Error(err))
	}

	var toName string
	fmt.Print("Enter recipient's name: ")
	_, err := fmt.Scan(&toName) // reads until whitespace
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	c.toName = toName

	if err := c.ensureConversation(ctx); err != nil {
		log.Fatal("conversation key bootstrap failed", zap.Error(err))
	}

	c.conn, err = c.initWebhook(c.user.Name)
	if err != nil {
		log.Fatal("init webhook to server failed", zap.Error(err))
	}

	go c.listenOnWebhook()
	c.renderUI()
}

// Stop wipes the session's key material. The only surviving form of the
// private key is the sealed blob on the server.
func (c *App) Stop() {
	if c.identity != nil {
		wipe(c.identity.PrivateKey)
	}
	wipe(c.convKey)
	wipe(c.mediaKey)
	if c.conn != nil {
		c.conn.Close()
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// blocking function
func (c *App) renderUI() {
	c.chatbox = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	c.chatbox.SetBorder(true).SetTitle(fmt.Sprintf(" Chat with %s ", c.toName))

	c.input = tview.NewInputField().
		SetLabel("Message: ").
		SetFieldWidth(0)
	c.input.SetBorder(true).SetTitle(" New Message (/send <file>, /get <id>) ")

	c.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			text := c.input.GetText()
			if text == "" {
				return
			}

			go func(msg string) {
				err := c.handleInput(msg)
				if err != nil {
					c.app.Suspend(func() {
						log.Error("Send failed", zap.Error(err))
					})
				}
			}(text)
		}
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.chatbox, 0, 1, false).
		AddItem(c.input, 3, 0, true)

	if err := c.app.SetRoot(layout, true).SetFocus(c.input).Run(); err != nil {
		log.Fatal("cannot init app", zap.Error(err))
	}
}

func (c *App) handleInput(text string) error {
	switch {
	case strings.HasPrefix(text, "/send "):
		return c.SendFile(strings.TrimSpace(strings.TrimPrefix(text, "/send ")))
	case strings.HasPrefix(text, "/get "):
		return c.FetchFile(strings.TrimSpace(strings.TrimPrefix(text, "/get ")))
	default:
		return c.SendMessage(text)
	}
}

func (c *App) listenOnWebhook() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug("worker web socket closed", zap.Error(err))
			c.conn.Close()
			break
		}

		var message model.Message
		err = json.Unmarshal(data, &message)
		if err != nil {
			log.Error("Unmarshal message failed", zap.Error(err))
			continue
		}

		if err := c.ReceiveMessage(&message); err != nil {
			c.app.Suspend(func() {
				log.Error("receive message failed: ", zap.Error(err))
			})
		}
	}
}

func (c *App) SendMessage(msg string) error {
	envelope, err := cipher.EncryptMessage(msg, c.convKey)
	if err != nil {
		return err
	}

	err = c.conn.WriteJSON(&model.Message{
		ConversationID: c.conversationID,
		From:           c.user.Name,
		To:             c.toName,
		Envelope:       envelope,
	})
	if err != nil {
		return err
	}

	c.app.QueueUpdateDraw(func() {
		fmt.Fprintf(c.chatbox, "[yellow]You:[-] %s\n", msg)
		c.input.SetText("")
		c.chatbox.ScrollToEnd()
	})
	return nil
}

func (c *App) ReceiveMessage(message *model.Message) error {
	msg, err := cipher.DecryptMessage(message.Envelope, c.convKey)
	if err != nil {
		return err
	}

	c.app.QueueUpdateDraw(func() {
		fmt.Fprintf(c.chatbox, ("[green]%s:[-] %s\n"), message.From, msg)
		c.chatbox.ScrollToEnd()
	})
	return nil
}
