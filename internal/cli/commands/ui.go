package commands

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/spf13/cobra"

	"github.com/flowviz-labs/flowviz/internal/ui"
)

// UIOptions holds options for the ui command.
type UIOptions struct {
	Port  int
	Watch bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Serve the live execution graph",
		Long: `Start a local web server showing the flow's dependency graph,
updating live as execution events stream in. Node positions, expansion
state, and highlights survive updates.`,
		Example: `  # Serve on the default port
  flowviz ui

  # Serve on a custom port without source watching
  flowviz ui --port 3000 --watch=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default from config)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Watch the flow source for changes")

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	ctx := cmd.Context()
	cfg := getConfig(ctx)
	logger := getLogger(ctx)

	eng := createEngine(cfg, logger)
	fl, err := openFlow(ctx, eng, cfg)
	if err != nil {
		return err
	}
	defer eng.Close(fl.ID())

	port := cfg.UI.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	secret := cfg.UI.SessionSecret
	if secret == "" {
		secret = randomSecret()
	}

	server := ui.NewServer(ui.Config{
		Engine:        eng,
		Flow:          fl,
		Port:          port,
		Watch:         opts.Watch && cfg.UI.Watch,
		SessionSecret: secret,
		Logger:        logger,
	})
	return server.Serve(ctx)
}

// randomSecret generates an ephemeral session secret when none is
// configured; sessions then reset on restart, which is acceptable for a
// local dev server.
func randomSecret() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
