package commands

import (
	"github.com/spf13/cobra"

	"relaychat/internal/app"
)

func serveCmd() *cobra.Command {
	var (
		listen  string
		metrics string
		backend string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if metrics != "" {
				cfg.Server.MetricsListen = metrics
			}
			if backend != "" {
				cfg.Accounts.Backend = backend
				cfg.Accounts.Path = ""
				if err := cfg.FixupAndValidate(); err != nil {
					return err
				}
			}

			log, err := app.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			w, err := app.NewWire(cmd.Context(), cfg, log)
			if err != nil {
				log.WithError(err).Error("Startup failed")
				return err
			}
			defer w.Close()

			return app.New(w).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides Server.Listen)")
	cmd.Flags().StringVar(&metrics, "metrics", "", "metrics listen address (overrides Server.MetricsListen)")
	cmd.Flags().StringVar(&backend, "accounts", "", "account backend: bolt, badger or memory")
	return cmd
}
