package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"relaychat/internal/crypto"
	"relaychat/internal/store"
)

func fingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the server key fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			kp, ok, err := store.NewKeyFileStore(cfg.Keys.Dir, []byte(cfg.Keys.Passphrase)).LoadKeyPair()
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("no keypair yet; run relay keygen or relay serve first")
			}
			fp, err := crypto.PublicKeyFingerprint(kp.Public)
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\n", fp)
			return nil
		},
	}
	return cmd
}
