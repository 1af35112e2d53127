// Package config provides configuration management for the FlowViz CLI.
package config

import (
	"time"

	"github.com/flowviz-labs/flowviz/internal/engine"
)

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	Watch         bool   `koanf:"watch"`
	SessionSecret string `koanf:"session_secret"`
}

// Config is the resolved CLI configuration.
type Config struct {
	// ServerURL is the base URL of the workflow-execution service.
	ServerURL string `koanf:"server_url"`
	// TimeoutSeconds bounds the wait for initial response headers; the
	// streamed body itself is unbounded.
	TimeoutSeconds int `koanf:"timeout_seconds"`
	// FlowFile is the path of the flow program source.
	FlowFile string `koanf:"flow_file"`
	// FlowID identifies the flow on the service; defaults to the flow
	// file base name.
	FlowID string `koanf:"flow_id"`
	// HistoryPath is the JSONL run-history file; empty disables
	// recording.
	HistoryPath string `koanf:"history_path"`
	Verbose     bool   `koanf:"verbose"`

	UI UIConfig `koanf:"ui"`

	// Credentials lists the stored credentials by type, read-only from
	// the execution core's perspective.
	Credentials map[string][]engine.Credential `koanf:"credentials"`
}

// Timeout returns the header timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
