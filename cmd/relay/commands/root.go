package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relaychat/internal/app"
)

var (
	configPath string
	keyDir     string
	passphrase string
)

func Execute() error {
	root := &cobra.Command{
		Use:          "relay",
		Short:        "Secure session relay server",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "TOML config file (defaults apply when empty)")
	pf.StringVar(&keyDir, "keys", "", "key directory (overrides Keys.Dir)")
	pf.StringVarP(&passphrase, "passphrase", "p", "", "passphrase sealing the private key (overrides Keys.Passphrase)")

	root.AddCommand(serveCmd(), keygenCmd(), fingerprintCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}

// loadConfig reads --config, or the defaults, and applies flag overrides.
func loadConfig() (*app.Config, error) {
	cfg := app.Default()
	if configPath != "" {
		var err error
		if cfg, err = app.LoadFile(configPath); err != nil {
			return nil, err
		}
	}
	if keyDir != "" {
		cfg.Keys.Dir = keyDir
	}
	if passphrase != "" {
		cfg.Keys.Passphrase = passphrase
	}
	return cfg, nil
}
