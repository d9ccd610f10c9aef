package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the relay as --user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCredentials(); err != nil {
				return err
			}
			c, err := connect(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := withTimeout(cmd)
			defer cancel()
			name, err := c.Register(ctx, username, password)
			if err != nil {
				return err
			}
			fmt.Printf("Registered as %s\n", name)
			return nil
		},
	}
	return cmd
}
