package cli

import (
	"github.com/spf13/cobra"

	"github.com/cartopack/cartopack/pkg/pipeline"
)

// treemapCommand creates the treemap command for squarified rectangle layouts.
func (c *CLI) treemapCommand() *cobra.Command {
	f := &layoutFlags{}

	cmd := &cobra.Command{
		Use:   "treemap [input.csv]",
		Short: "Tile each group as a squarified treemap at its centroid",
		Long: `Tile each group as a squarified treemap at its centroid.

Each group becomes a square centered on its mean coordinate, sized by its
value total and subdivided into near-square member tiles. Adding --case and
--category columns nests the tiling one level per column.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), pipeline.ToolTreemap, args[0], f)
		},
	}

	addLayoutFlags(cmd, f)
	addHierarchyFlags(cmd, f)
	return cmd
}
