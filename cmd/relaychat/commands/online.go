package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func onlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "online",
		Short: "List the other users currently online",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := withTimeout(cmd)
			defer cancel()
			users, err := c.OnlineUsers(ctx)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("Nobody else is online")
				return nil
			}
			for _, u := range users {
				fmt.Println(u.Username)
			}
			return nil
		},
	}
	return cmd
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
