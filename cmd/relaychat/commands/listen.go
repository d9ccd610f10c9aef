package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func listenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Log in and print incoming messages until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := connect(ctx, true)
			if err != nil {
				return err
			}
			defer c.Close()
			fmt.Printf("Listening as %s (Ctrl-C to quit)\n", username)

			for {
				select {
				case <-ctx.Done():
					return nil
				case msg, ok := <-c.Messages():
					if !ok {
						return fmt.Errorf("relay closed the connection")
					}
					fmt.Printf("[%s] %s: %s\n", time.Now().Format("15:04:05"), msg.From, msg.Text)
				}
			}
		},
	}
	return cmd
}
