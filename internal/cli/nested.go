package cli

import (
	"github.com/spf13/cobra"

	"github.com/cartopack/cartopack/pkg/pipeline"
)

// nestedCommand creates the nested command for hierarchical circle layouts.
func (c *CLI) nestedCommand() *cobra.Command {
	f := &layoutFlags{}

	cmd := &cobra.Command{
		Use:   "nested [input.csv]",
		Short: "Pack each group as one circle of circles at its centroid",
		Long: `Pack each group as one circle of circles at its centroid.

Each group becomes a root circle sized by its value total, with member
circles packed inside. Adding --case and --category columns deepens the
hierarchy: cases pack inside the root and categories inside their case.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), pipeline.ToolNested, args[0], f)
		},
	}

	addLayoutFlags(cmd, f)
	addHierarchyFlags(cmd, f)
	return cmd
}
