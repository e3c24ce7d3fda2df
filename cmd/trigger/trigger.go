// Package trigger implements the one-shot trigger command, mainly useful for
// debugging schedules without running the daemon.
package trigger

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tubemirror/cmd/common"
)

// Command returns the trigger command.
func Command() *cobra.Command {
	var checkMissed bool

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Run one trigger tick and print what it dispatched",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			dispatched, err := deps.Engine.Run(cmd.Context(), time.Now(), checkMissed)
			if err != nil {
				return fmt.Errorf("trigger run failed: %w", err)
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(dispatched)
		},
	}

	cmd.Flags().BoolVar(&checkMissed, "check-missed", false, "run the gap audit before the tick")
	return cmd
}
