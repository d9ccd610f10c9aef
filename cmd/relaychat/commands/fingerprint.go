package commands

import (
	"fmt"
	"os"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"relaychat/internal/app"
)

func fingerprintCmd() *cobra.Command {
	var (
		server bool
		qr     bool
	)
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the local key fingerprint, or the relay's with --server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !server {
				svc, kp, err := app.ClientKeys(cmd.Context(), clientCfg)
				if err != nil {
					return err
				}
				fp, err := svc.Fingerprint(kp)
				if err != nil {
					return err
				}
				fmt.Printf("Fingerprint: %s\n", fp)
				printQR(qr, fp.String())
				return nil
			}

			c, err := connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Close()
			fp, err := c.ServerFingerprint()
			if err != nil {
				return err
			}
			fmt.Printf("Relay %s fingerprint: %s\n", relayURL, fp)
			printQR(qr, fp.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "fetch and print the relay's fingerprint")
	cmd.Flags().BoolVar(&qr, "qr", false, "also render the fingerprint as a QR code")
	return cmd
}

// printQR renders s for scanning on another device.
func printQR(enabled bool, s string) {
	if !enabled {
		return
	}
	qrterminal.GenerateWithConfig(s, qrterminal.Config{
		Level:     qrterminal.M,
		Writer:    os.Stdout,
		BlackChar: qrterminal.BLACK,
		WhiteChar: qrterminal.WHITE,
		QuietZone: 1,
	})
}
