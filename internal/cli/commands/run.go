package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowviz-labs/flowviz/internal/event"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Inputs     map[string]string
	ShowEvents bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the flow and stream progress",
		Long: `Submit the flow program for execution and consume its live event
stream until completion, printing per-step progress and final stats.`,
		Example: `  # Run the configured flow
  flowviz run

  # Run with inputs
  flowviz run --input city=Berlin --input units=metric`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringToStringVar(&opts.Inputs, "input", nil, "Execution input as name=value (repeatable)")
	cmd.Flags().BoolVar(&opts.ShowEvents, "events", false, "Print every streamed event")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	ctx := cmd.Context()
	cfg := getConfig(ctx)
	logger := getLogger(ctx)

	eng := createEngine(cfg, logger)
	fl, err := openFlow(ctx, eng, cfg)
	if err != nil {
		return err
	}
	defer eng.Close(fl.ID())

	for name, value := range opts.Inputs {
		fl.State().SetInput(name, value)
	}

	fmt.Printf("Running flow %s (%d bubbles)...\n", fl.ID(), len(fl.Bubbles()))
	start := time.Now()

	if err := fl.Run(ctx); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if opts.ShowEvents {
		for _, ev := range fl.State().Events() {
			printEvent(ev)
		}
	}

	snap := fl.State().Snapshot()
	stats := fl.State().Stats()

	fmt.Printf("Completed %d bubbles (%d failed) in %s\n",
		stats.Completed, stats.Failed, time.Since(start).Round(time.Millisecond))
	if stats.Completed > 0 {
		fmt.Printf("Step time: total %.0fms, mean %.0fms, max %.0fms\n",
			stats.TotalMS, stats.MeanMS, stats.MaxMS)
	}
	if snap.ExecError != "" {
		return fmt.Errorf("execution error: %s", snap.ExecError)
	}
	return nil
}

func printEvent(ev *event.Event) {
	id := "-"
	if ev.VariableID != nil {
		id = fmt.Sprintf("%d", *ev.VariableID)
	}
	fmt.Printf("  %-28s id=%-6s %s\n", ev.Type, id, ev.Message)
}
