// Package commands implements the FlowViz CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowviz-labs/flowviz/internal/config"
	"github.com/flowviz-labs/flowviz/internal/engine"
	"github.com/flowviz-labs/flowviz/internal/history"
)

// configKey is used to store config in context.
type configKey struct{}

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// WithConfig stores the resolved config in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// getConfig retrieves the config stored by the root command.
func getConfig(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{}
}

// getLogger retrieves the logger stored by the root command.
func getLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// createEngine builds the execution engine from the resolved config.
func createEngine(cfg *config.Config, logger *slog.Logger) *engine.Engine {
	var observers []history.Observer
	if cfg.HistoryPath != "" {
		observers = append(observers, history.NewRecorder(cfg.HistoryPath, logger))
	}
	return engine.New(engine.Config{
		ServerURL:     cfg.ServerURL,
		HeaderTimeout: cfg.Timeout(),
		Logger:        logger,
		Observers:     observers,
		Credentials:   cfg.Credentials,
	})
}

// openFlow opens and validates the configured flow.
func openFlow(ctx context.Context, eng *engine.Engine, cfg *config.Config) (*engine.Flow, error) {
	if cfg.FlowFile == "" {
		return nil, fmt.Errorf("no flow file configured (use --flow-file or flowviz.yaml)")
	}
	return eng.Open(ctx, cfg.FlowID, cfg.FlowFile)
}
