// Package subscribe implements the subscribe command.
package subscribe

import (
	"fmt"

	"github.com/spf13/cobra"

	"tubemirror/cmd/common"
)

// Command returns the subscribe command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <provider-object-id>",
		Short: "Subscribe to a channel by its provider object id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			channel, err := deps.Subscription.Subscribe(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("subscription failed: %w", err)
			}

			fmt.Printf("channel %d (%s) status=%s\n", channel.ID, channel.ProviderObjectID, channel.Status)
			return nil
		},
	}
}
