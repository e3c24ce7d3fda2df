// Package cmd implements the command-line interface for tubemirror. It
// provides the root command and subcommands for running the scheduler and
// one-shot administrative operations.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tubemirror/cmd/migrate"
	"tubemirror/cmd/scheduler"
	"tubemirror/cmd/subscribe"
	"tubemirror/cmd/trigger"
	"tubemirror/internal/config"
)

// Version is set at build time.
var Version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "tubemirror",
		Short: "Scheduling core for a mirrored media library",
		Long: `tubemirror keeps a local media library in step with remote channels
and playlists: it evaluates scan crontabs, recovers scans missed during
downtime, mirrors channel playlists and dispatches the resulting work to
the download worker.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Parse flags early so --config and --debug shape configuration loading.
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := config.InitializeViper(cfgFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	if debug {
		viper.Set("app.debug", true)
		viper.Set("logger.level", "debug")
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml, ./config/config.yaml, or /etc/tubemirror/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("tubemirror version %s\n", Version)
		},
	})

	rootCmd.AddCommand(scheduler.Command())
	rootCmd.AddCommand(trigger.Command())
	rootCmd.AddCommand(subscribe.Command())
	rootCmd.AddCommand(migrate.Command())
}
