package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cartopack/cartopack/pkg/feature"
	"github.com/cartopack/cartopack/pkg/layout"
	"github.com/cartopack/cartopack/pkg/observability"
	"github.com/cartopack/cartopack/pkg/pipeline"
)

// =============================================================================
// Shared Layout Flags
// =============================================================================

// layoutFlags holds the flags shared by the circles, nested, and treemap
// commands.
type layoutFlags struct {
	output  string
	noCache bool

	value    string
	group    string
	id       string
	caseCol  string
	category string
	x        string
	y        string

	minSize   float64
	maxSize   float64
	sort      string
	sortField string
	seed      uint64

	formats string
	pretty  bool
	refresh bool
}

// addLayoutFlags registers the flags common to all layout commands.
func addLayoutFlags(cmd *cobra.Command, f *layoutFlags) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output base path (default: <input>.<tool>.<format>)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "re-read the input even when cached")

	cmd.Flags().StringVar(&f.value, "value", "", "column holding the numeric size value")
	cmd.Flags().StringVar(&f.group, "group", "", "column holding the group key")
	cmd.Flags().StringVar(&f.id, "id", "", "column holding the record id")
	cmd.Flags().StringVar(&f.x, "x", "", "column holding the anchor x coordinate (longitude)")
	cmd.Flags().StringVar(&f.y, "y", "", "column holding the anchor y coordinate (latitude)")

	cmd.Flags().Float64Var(&f.minSize, "min-size", 0, "symbol size for the smallest value")
	cmd.Flags().Float64Var(&f.maxSize, "max-size", 0, "symbol size for the largest value")
	cmd.Flags().StringVar(&f.sort, "sort", "", "member order: default, ascending, descending, random")
	cmd.Flags().StringVar(&f.sortField, "sort-field", "", "raw column to order members by")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed for sort=random")

	cmd.Flags().StringVarP(&f.formats, "formats", "f", "", "comma-separated output formats: json, geojson")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "indent exported output")

	_ = cmd.MarkFlagRequired("value")
	_ = cmd.MarkFlagRequired("group")
}

// addHierarchyFlags registers the extra grouping levels used by the nested
// and treemap commands.
func addHierarchyFlags(cmd *cobra.Command, f *layoutFlags) {
	cmd.Flags().StringVar(&f.caseCol, "case", "", "column holding the mid-level case key")
	cmd.Flags().StringVar(&f.category, "category", "", "column holding the leaf category key")
}

// options builds pipeline options from the parsed flags.
func (f *layoutFlags) options(tool, input string) pipeline.Options {
	return pipeline.Options{
		Input: input,
		Fields: feature.Fields{
			ID:       f.id,
			Value:    f.value,
			Group:    f.group,
			Case:     f.caseCol,
			Category: f.category,
			X:        f.x,
			Y:        f.y,
		},
		Refresh:   f.refresh,
		Tool:      tool,
		MinSize:   f.minSize,
		MaxSize:   f.maxSize,
		Sort:      f.sort,
		SortField: f.sortField,
		Seed:      f.seed,
		Formats:   parseFormats(f.formats),
		Pretty:    f.pretty,
	}
}

// =============================================================================
// Circles Command
// =============================================================================

// circlesCommand creates the circles command for flat packed layouts.
func (c *CLI) circlesCommand() *cobra.Command {
	f := &layoutFlags{}

	cmd := &cobra.Command{
		Use:   "circles [input.csv]",
		Short: "Pack one circle per record around each group centroid",
		Long: `Pack one circle per record around each group centroid.

Every record becomes a circle sized on a shared square-root scale, so circle
area tracks the record's value. Members of a group pack tightly around the
group's mean coordinate, largest first unless another sort is chosen.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), pipeline.ToolCircles, args[0], f)
		},
	}

	addLayoutFlags(cmd, f)
	return cmd
}

// =============================================================================
// Shared Execution
// =============================================================================

// spinnerHooks feeds pipeline progress into the spinner message.
type spinnerHooks struct {
	observability.NoopPipelineHooks
	spin *Spinner
	tool string
}

func (h *spinnerHooks) OnGroupProcessed(_ context.Context, group string, index, total int) {
	h.spin.SetMessage(fmt.Sprintf("Laying out %s (%d/%d groups)...", h.tool, index, total))
}

// runLayout executes the full pipeline for one tool and reports the result.
func (c *CLI) runLayout(ctx context.Context, tool, input string, f *layoutFlags) error {
	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := f.options(tool, input)
	opts.Logger = c.Logger
	c.applyConfigDefaults(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Laying out %s...", tool))
	spinner.Start()
	observability.SetPipelineHooks(&spinnerHooks{spin: spinner, tool: tool})
	defer observability.Reset()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute %s layout: %w", tool, err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	base := artifactBase(f.output, input, tool)
	paths, err := writeArtifacts(base, opts.Formats, result.Artifacts)
	if err != nil {
		return err
	}

	printSuccess("Layout complete")
	for _, p := range paths {
		printFile(p)
	}
	stats := result.Stats
	printStats(stats.RecordCount, stats.GroupCount, stats.FeatureCount, result.CacheInfo.LayoutHit)
	printSkips(result.Layout.Summary)

	if jsonPath := formatPath(base, pipeline.FormatJSON, opts.Formats); jsonPath != "" {
		printNewline()
		printNextStep("Inspect", appName+" view "+jsonPath)
	}
	return nil
}

// writeArtifacts writes each exported format next to the base path and
// returns the written paths in format order.
func writeArtifacts(base string, formats []string, artifacts map[string][]byte) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		data, ok := artifacts[format]
		if !ok {
			continue
		}
		path := base + "." + format
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write output %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// formatPath returns the artifact path for a format, or "" when the format
// was not exported.
func formatPath(base, format string, formats []string) string {
	for _, f := range formats {
		if f == format {
			return base + "." + format
		}
	}
	return ""
}

// printSkips warns about groups the layout left out.
func printSkips(summary *layout.Summary) {
	if summary == nil {
		return
	}
	for _, skip := range summary.Skipped {
		printWarning("skipped group %s: %s", skip.Group, skip.Reason)
	}
}
