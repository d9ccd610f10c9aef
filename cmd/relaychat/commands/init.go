package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"relaychat/internal/app"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the local keypair (no-op if it exists)",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, kp, err := app.ClientKeys(cmd.Context(), clientCfg)
			if err != nil {
				return err
			}
			fp, err := svc.Fingerprint(kp)
			if err != nil {
				return err
			}
			fmt.Printf("Keypair ready in %s\nFingerprint: %s\n", home, fp)
			return nil
		},
	}
	return cmd
}
