package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/marvelous/internal/cache"
	"github.com/lehigh-university-libraries/marvelous/internal/catalog"
	"github.com/lehigh-university-libraries/marvelous/internal/config"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "marvelous",
		Short: "Search the Marvel character catalog with a local recent-characters cache",
		Long: `Marvelous queries the Marvel Comics character API with signed requests and
keeps a small SQLite cache of recently viewed characters, so the list of
previous results survives restarts and network loss.

Configuration is read from a .env file, an optional YAML file (--config) and
MARVEL_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newFetchCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newCacheCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

// load reads and validates configuration. Commands that only touch the
// cache pass needKeys=false so they work without API credentials.
func (o *rootOptions) load(needKeys bool) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if needKeys {
		if err := cfg.Validate(); err != nil {
			return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
		}
	} else if cfg.MaxEntries <= 0 {
		return config.Config{}, fmt.Errorf("invalid configuration: max entries must be positive, got %d", cfg.MaxEntries)
	}
	return cfg, nil
}

func newClient(cfg config.Config) *catalog.Client {
	return catalog.NewClient(cfg.BaseURL, cfg.PublicKey, cfg.PrivateKey,
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
}

func openCache(cfg config.Config) (*cache.Cache, error) {
	c, err := cache.Open(cfg.CachePath, cache.WithMaxEntries(cfg.MaxEntries))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return c, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
