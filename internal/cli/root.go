// Package cli provides the command-line interface for FlowViz.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowviz-labs/flowviz/internal/cli/commands"
	"github.com/flowviz-labs/flowviz/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flowviz",
		Short: "FlowViz - Live Flow Execution Graph",
		Long: `FlowViz runs flow programs against a workflow-execution service and
renders a continuously-updating visualization of execution progress over
the flow's dependency graph.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Live Flow Execution Graph
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./flowviz.yaml)")
	rootCmd.PersistentFlags().String("server-url", "", "Base URL of the workflow-execution service")
	rootCmd.PersistentFlags().String("flow-file", "", "Path to the flow program source")
	rootCmd.PersistentFlags().String("flow-id", "", "Flow identity on the service (default: flow file base name)")
	rootCmd.PersistentFlags().String("history-path", "", "Path to the run-history JSONL file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(
		commands.NewRunCommand(),
		commands.NewUICommand(),
		commands.NewValidateCommand(),
		commands.NewVersionCommand(Version, BuildDate, GitCommit),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}
