package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"relaychat/internal/app"
	"relaychat/internal/relay"
)

const passwordEnv = "RELAYCHAT_PASSWORD"

var (
	home       string
	passphrase string
	relayURL   string
	username   string
	password   string
	keyBits    int
	verbose    bool
	timeout    time.Duration

	clientCfg app.ClientConfig
	logger    *logrus.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:           "relaychat",
		Short:         "End-to-end encrypted chat over a relay",
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".relaychat")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			if password == "" {
				password = os.Getenv(passwordEnv)
			}

			logger = logrus.New()
			logger.SetLevel(logrus.WarnLevel)
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}

			clientCfg = app.ClientConfig{
				Home:       home,
				RelayURL:   relayURL,
				Passphrase: passphrase,
				KeyBits:    keyBits,
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&home, "home", "", "config dir (default ~/.relaychat)")
	pf.StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect the private key")
	pf.StringVar(&relayURL, "relay", "ws://127.0.0.1:8084/", "relay WebSocket URL")
	pf.StringVarP(&username, "user", "u", "", "account username")
	pf.StringVar(&password, "password", "", "account password (default $"+passwordEnv+")")
	pf.IntVar(&keyBits, "bits", 4096, "RSA key size used when creating the keypair")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		registerCmd(),
		onlineCmd(),
		sendCmd(),
		listenCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}

// connect dials the relay and, when login is set, logs in as --user.
func connect(ctx context.Context, login bool) (*relay.Client, error) {
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := app.DialClient(dctx, clientCfg, logger)
	if err != nil {
		return nil, err
	}
	if !login {
		return c, nil
	}
	if err := requireCredentials(); err != nil {
		_ = c.Close()
		return nil, err
	}
	if _, err := c.Login(dctx, username, password); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("login as %s: %w", username, err)
	}
	return c, nil
}

func requireCredentials() error {
	if username == "" {
		return errors.New("--user is required")
	}
	if password == "" {
		return fmt.Errorf("--password or $%s is required", passwordEnv)
	}
	return nil
}
