package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"relaychat/internal/services/keys"
	"relaychat/internal/store"
)

func keygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create the server keypair if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc := keys.New(store.NewKeyFileStore(cfg.Keys.Dir, []byte(cfg.Keys.Passphrase)), cfg.Keys.Bits)
			kp, err := svc.GetOrCreateKeyPair(cmd.Context())
			if err != nil {
				return err
			}
			fp, err := svc.Fingerprint(kp)
			if err != nil {
				return err
			}
			fmt.Printf("Keypair in %s\nFingerprint: %s\n", cfg.Keys.Dir, fp)
			return nil
		},
	}
	return cmd
}
