package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cartopack/cartopack/pkg/aggregate"
	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/feature"
)

// treeCommand creates the tree command for inspecting group hierarchies.
func (c *CLI) treeCommand() *cobra.Command {
	var (
		output   string
		selected string
		detailed bool

		value    string
		group    string
		caseCol  string
		category string
	)

	cmd := &cobra.Command{
		Use:   "tree [input.csv]",
		Short: "Render one group's aggregation hierarchy as a diagram",
		Long: `Render one group's aggregation hierarchy as a diagram.

The tree command aggregates the input like the layout commands do, then
emits the group/case/category hierarchy of a single group as Graphviz DOT
on stdout. With -o it writes the diagram to a file instead, rendering SVG
when the output path ends in .svg.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := feature.Fields{Value: value, Group: group, Case: caseCol, Category: category}
			return c.runTree(args[0], fields, selected, output, detailed)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.dot or .svg; default: stdout DOT)")
	cmd.Flags().StringVar(&selected, "select", "", "group key to diagram (required with multiple groups)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include value sums and record counts in labels")
	cmd.Flags().StringVar(&value, "value", "", "column holding the numeric size value")
	cmd.Flags().StringVar(&group, "group", "", "column holding the group key")
	cmd.Flags().StringVar(&caseCol, "case", "", "column holding the mid-level case key")
	cmd.Flags().StringVar(&category, "category", "", "column holding the leaf category key")
	_ = cmd.MarkFlagRequired("value")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

// runTree aggregates the input and renders one group's hierarchy.
func (c *CLI) runTree(input string, fields feature.Fields, selected, output string, detailed bool) error {
	records, report, err := feature.ReadCSV(input, fields)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	c.Logger.Debug("read input", "path", input, "rows", report.Rows, "records", report.Records)

	result := aggregate.Groups(records, 1)
	g, err := pickGroup(result, selected)
	if err != nil {
		return err
	}

	h, err := aggregate.BuildHierarchy(g)
	if err != nil {
		return err
	}
	dot := aggregate.ToDOT(h, aggregate.DOTOptions{Detailed: detailed})

	if output == "" {
		fmt.Print(dot)
		return nil
	}

	data := []byte(dot)
	if strings.EqualFold(filepath.Ext(output), ".svg") {
		if data, err = aggregate.RenderSVG(dot); err != nil {
			return fmt.Errorf("render SVG: %w", err)
		}
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Hierarchy rendered")
	printFile(output)
	return nil
}

// pickGroup selects the group to diagram. A single-group table needs no
// selection; otherwise the key must name one of the aggregated groups.
func pickGroup(result aggregate.Result, selected string) (aggregate.Group, error) {
	if len(result.Groups) == 0 {
		return aggregate.Group{}, errors.New(errors.ErrCodeEmptyGroup, "no groups to diagram")
	}
	if selected == "" {
		if len(result.Groups) == 1 {
			return result.Groups[0], nil
		}
		return aggregate.Group{}, errors.New(errors.ErrCodeInvalidConfig,
			"--select is required with multiple groups (have: %s)", strings.Join(result.Kept(), ", "))
	}
	for _, g := range result.Groups {
		if g.Key == selected {
			return g, nil
		}
	}
	return aggregate.Group{}, errors.New(errors.ErrCodeNotFound,
		"group %q not found (have: %s)", selected, strings.Join(result.Kept(), ", "))
}
