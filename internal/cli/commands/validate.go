package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowviz-labs/flowviz/internal/flow"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the flow and list its bubbles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := getConfig(ctx)
			logger := getLogger(ctx)

			eng := createEngine(cfg, logger)
			fl, err := openFlow(ctx, eng, cfg)
			if err != nil {
				return err
			}
			defer eng.Close(fl.ID())

			bubbles := fl.Bubbles()
			fmt.Printf("Flow %s is valid (%d bubbles):\n\n", fl.ID(), len(bubbles))

			for i, key := range bubbles.SortedKeys() {
				b := bubbles[key]
				depStr := ""
				if n := countNested(b.DepGraph); n > 0 {
					depStr = fmt.Sprintf(" (+%d nested)", n)
				}
				fmt.Printf("  %2d. %-28s [%s] line %d%s\n",
					i+1, b.VariableName, b.BubbleName, b.Location.StartLine, depStr)
			}

			required := fl.RequiredCredentials()
			if len(required) > 0 {
				fmt.Println()
				fmt.Println("Required credentials:")
				for step, types := range required {
					fmt.Printf("  %s: %s\n", step, strings.Join(types, ", "))
				}
			}
			return nil
		},
	}
}

// countNested counts the nodes of a dependency sub-tree, excluding the
// root itself.
func countNested(n *flow.DependencyNode) int {
	if n == nil {
		return 0
	}
	count := 0
	for _, dep := range n.Deps {
		count += 1 + countNested(dep)
	}
	return count
}
