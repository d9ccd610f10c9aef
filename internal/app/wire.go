package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"relaychat/internal/domain"
	"relaychat/internal/metrics"
	"relaychat/internal/protocol/envelope"
	"relaychat/internal/server"
	"relaychat/internal/services/account"
	"relaychat/internal/services/keys"
	"relaychat/internal/services/session"
	"relaychat/internal/store"
)

// Wire bundles every store, service and transport of a relay.
type Wire struct {
	Config      *Config
	Log         *logrus.Logger
	KeyPair     domain.KeyPair
	Fingerprint domain.Fingerprint
	Accounts    domain.CredentialStore
	Sessions    *session.Registry
	Metrics     *metrics.Metrics
	Handler     *server.Handler
	Server      *server.Server
}

// NewWire constructs the dependency graph from cfg. Key material problems
// (store.ErrKeyStore) are returned unchanged.
func NewWire(ctx context.Context, cfg *Config, log *logrus.Logger) (*Wire, error) {
	keySvc := keys.New(store.NewKeyFileStore(cfg.Keys.Dir, []byte(cfg.Keys.Passphrase)), cfg.Keys.Bits)
	kp, err := keySvc.GetOrCreateKeyPair(ctx)
	if err != nil {
		return nil, err
	}
	fp, err := keySvc.Fingerprint(kp)
	if err != nil {
		return nil, err
	}

	accounts, err := store.OpenAccountStore(cfg.Accounts.Backend, cfg.Accounts.Path)
	if err != nil {
		return nil, fmt.Errorf("open accounts: %w", err)
	}
	hasher := account.NewArgon2Hasher(account.Argon2Params{
		Time:      cfg.Argon.Time,
		MemoryKiB: cfg.Argon.MemoryKiB,
		Threads:   cfg.Argon.Threads,
	})

	sessions := session.NewRegistry()
	m := metrics.New(sessions)
	conns := server.NewConns()
	h, err := server.NewHandler(server.Config{
		Keys:       kp,
		KeyService: keySvc,
		Sessions:   sessions,
		Accounts:   account.New(accounts, hasher),
		Sender:     conns,
		Codec:      envelope.New(cfg.Server.ChunkSize),
		Metrics:    m,
		Log:        log,
	})
	if err != nil {
		_ = accounts.Close()
		return nil, err
	}
	srv := server.NewServer(h, conns, server.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadLimit:      cfg.Server.ReadLimit,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, log)

	return &Wire{
		Config:      cfg,
		Log:         log,
		KeyPair:     kp,
		Fingerprint: fp,
		Accounts:    accounts,
		Sessions:    sessions,
		Metrics:     m,
		Handler:     h,
		Server:      srv,
	}, nil
}

// Close releases the account store.
func (w *Wire) Close() error {
	return w.Accounts.Close()
}
