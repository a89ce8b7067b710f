package app

import (
	"context"
	"errors"

	"sealedchat/internal/cryptographic/keypair"
	"sealedchat/internal/model"
	"sealedchat/internal/utils/log"

	"go.uber.org/zap"
)

// bootstrapIdentity establishes the session's identity keypair. First
// login generates a keypair, seals the private half under the password and
// registers both with the directory; later logins fetch the sealed blob
// and open it. A wrong password fails here, before any conversation state
// is touched.
func (c *App) bootstrapIdentity(ctx context.Context, name, password string) error {
	blob, err := c.getVault(name)
	if err == nil {
		priv, err := c.vault.Open(blob, password)
		if err != nil {
			return err
		}

		var resp publicKeyResponse
		if err := c.getJSON("/keys/"+name, &resp); err != nil {
			return err
		}

		c.user = &model.User{Name: name, PublicKey: resp.PublicKey}
		c.identity = &model.IdentityKeyPair{
			PublicKey:  resp.PublicKey,
			PrivateKey: priv,
		}
		return nil
	}
	if !errors.Is(err, errNotFound) {
		return err
	}

	log.Info("no identity registered, generating one", zap.String("user", name))

	kp, err := keypair.Generate()
	if err != nil {
		return err
	}
	sealed, err := c.vault.Seal(kp.PrivateKey, password)
	if err != nil {
		return err
	}
	if err := c.register(name, kp.PublicKey, sealed); err != nil {
		return err
	}

	c.user = &model.User{Name: name, PublicKey: kp.PublicKey}
	c.identity = kp
	return nil
}
