// Package cli implements the cartopack command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cartopack/cartopack/pkg/buildinfo"
	"github.com/cartopack/cartopack/pkg/cache"
	"github.com/cartopack/cartopack/pkg/pipeline"
	"github.com/cartopack/cartopack/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "cartopack"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Cartopack lays out proportional symbols for grouped map data",
		Long: `Cartopack turns tabular geodata into proportional-symbol layouts:
flat circle packs, nested circle hierarchies, and squarified treemaps,
each anchored at its group's centroid and sized on a shared square-root
scale. Layouts export as JSON or GeoJSON for downstream mapping.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.config/cartopack/config.toml)")

	// Register all subcommands
	root.AddCommand(c.circlesCommand())
	root.AddCommand(c.nestedCommand())
	root.AddCommand(c.treemapCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. A configured redis URL
// selects the shared cache; otherwise results land in the file cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	layerCache, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(layerCache, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if url := c.Config.Cache.Redis; url != "" {
		return cache.NewRedisCache(ctx, url)
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newStore creates the run store for the API server. A configured mongo
// URI selects persistent storage; otherwise runs live in process memory.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	if uri := c.Config.Server.Mongo; uri != "" {
		return store.NewMongoStore(ctx, uri, c.Config.Server.Database)
	}
	return store.NewMemoryStore(), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory, preferring the configured path and
// falling back to the XDG standard (~/.cache/cartopack/).
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
// An empty string defers to the config and pipeline defaults.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	formats := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			formats = append(formats, p)
		}
	}
	return formats
}

// applyConfigDefaults fills unset layout options from the config file.
// Explicit flags always win; pipeline defaults cover whatever remains.
func (c *CLI) applyConfigDefaults(opts *pipeline.Options) {
	d := c.Config.Defaults
	if opts.MinSize == 0 && opts.MaxSize == 0 && d.MaxSize > 0 {
		opts.MinSize = d.MinSize
		opts.MaxSize = d.MaxSize
	}
	if opts.Sort == "" {
		opts.Sort = d.Sort
	}
	if len(opts.Formats) == 0 {
		opts.Formats = d.Formats
	}
}

// artifactBase derives the output base path for a layout run. An explicit
// output keeps its directory and name; otherwise the input name is reused
// with the tool appended.
func artifactBase(output, input, tool string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input)) + "." + tool
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
