package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"relaychat/internal/domain"
)

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <to> <message...>",
		Short: "Encrypt a message to an online user and relay it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := withTimeout(cmd)
			defer cancel()
			to := domain.Username(args[0])
			if _, err := c.Send(ctx, to, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Printf("Sent to %s\n", to)
			return nil
		},
	}
	return cmd
}
