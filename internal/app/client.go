package app

import (
	"context"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"relaychat/internal/domain"
	"relaychat/internal/relay"
	"relaychat/internal/services/keys"
	"relaychat/internal/store"
)

// ClientConfig holds runtime options for the relaychat CLI.
type ClientConfig struct {
	Home       string // config directory, e.g. $HOME/.relaychat
	RelayURL   string // relay endpoint, e.g. ws://127.0.0.1:8084/
	Passphrase string // seals the private key at rest when set
	KeyBits    int
}

// ClientKeys loads the user's keypair from cfg.Home/keys, creating it on
// first use.
func ClientKeys(ctx context.Context, cfg ClientConfig) (*keys.Service, domain.KeyPair, error) {
	ks := store.NewKeyFileStore(filepath.Join(cfg.Home, "keys"), []byte(cfg.Passphrase))
	svc := keys.New(ks, cfg.KeyBits)
	kp, err := svc.GetOrCreateKeyPair(ctx)
	if err != nil {
		return nil, domain.KeyPair{}, err
	}
	return svc, kp, nil
}

// DialClient loads the user's keypair and connects to the relay.
func DialClient(ctx context.Context, cfg ClientConfig, log *logrus.Logger) (*relay.Client, error) {
	_, kp, err := ClientKeys(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return relay.Dial(ctx, cfg.RelayURL, kp, relay.Options{Log: log})
}
