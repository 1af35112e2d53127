package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, buildDate, gitCommit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("flowviz %s\n", version)
			fmt.Printf("  build date: %s\n", buildDate)
			fmt.Printf("  commit:     %s\n", gitCommit)
		},
	}
}
