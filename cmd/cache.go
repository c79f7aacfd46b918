package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/marvelous/internal/cache"
	"github.com/lehigh-university-libraries/marvelous/internal/config"
	"github.com/lehigh-university-libraries/marvelous/internal/dataset"
	"github.com/lehigh-university-libraries/marvelous/internal/lookup"
)

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the local recent-characters cache",
	}

	// withCache opens the cache for the duration of fn
	withCache := func(fn func(cfg config.Config, c *cache.Cache) error) error {
		cfg, err := opts.load(false)
		if err != nil {
			return err
		}
		c, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(cfg, c)
	}

	var n int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "List cached characters, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(cfg config.Config, c *cache.Cache) error {
				limit := n
				if !cmd.Flags().Changed("limit") {
					limit = cfg.MaxEntries
				}
				entries, err := c.MostRecentEntries(cmd.Context(), limit)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%-8d %-40s %s\n", e.Record.ID, e.Record.Name, e.WriteTimestamp.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
	recent.Flags().IntVarP(&n, "limit", "n", 0, "Number of entries (0 for all; defaults to max entries)")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Print one cached character as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return withCache(func(_ config.Config, c *cache.Cache) error {
				rec, ok, err := c.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("character %d is not cached", id)
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Remove one character from the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			return withCache(func(_ config.Config, c *cache.Cache) error {
				ok, err := c.Delete(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("character %d is not cached", id)
				}
				slog.Info("Deleted cached character", "id", id)
				return nil
			})
		},
	}

	var keep int
	trim := &cobra.Command{
		Use:   "trim",
		Short: "Evict everything older than the N-th newest entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(cfg config.Config, c *cache.Cache) error {
				if !cmd.Flags().Changed("keep") {
					keep = cfg.MaxEntries
				}
				deleted, err := c.TrimToCapacity(cmd.Context(), keep)
				if err != nil {
					return err
				}
				slog.Info("Trimmed cache", "keep", keep, "deleted", deleted)
				return nil
			})
		},
	}
	trim.Flags().IntVar(&keep, "keep", 0, "Entries to keep (defaults to max entries)")

	export := &cobra.Command{
		Use:   "export FILE",
		Short: "Write a snapshot of the cache (.jsonl, .parquet or .yaml)",
		Args:  cobra.ExactArgs(1),
		Example: `  marvelous cache export recent.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(_ config.Config, c *cache.Cache) error {
				count, err := dataset.Export(cmd.Context(), c, args[0])
				if err != nil {
					return err
				}
				slog.Info("Exported cache", "path", args[0], "records", count)
				return nil
			})
		},
	}

	var noTrim bool
	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Load a snapshot into the cache, oldest entries first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(_ config.Config, c *cache.Cache) error {
				stats, err := dataset.Import(cmd.Context(), c, args[0])
				if err != nil {
					return err
				}
				var deleted int64
				if !noTrim {
					if deleted, err = c.TrimToDefault(cmd.Context()); err != nil {
						return err
					}
				}
				slog.Info("Imported snapshot",
					"path", args[0],
					"created", stats.Created,
					"updated", stats.Updated,
					"skipped", stats.Skipped,
					"evicted", deleted)
				return nil
			})
		},
	}
	imp.Flags().BoolVar(&noTrim, "no-trim", false, "Skip trimming to max entries after import")

	var pages, pageSize int
	warm := &cobra.Command{
		Use:   "warm",
		Short: "Prefill the cache from the first pages of the catalog listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(true)
			if err != nil {
				return err
			}
			store, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			written, err := lookup.New(newClient(cfg), store, cfg.MaxEntries).Warm(cmd.Context(), pages, pageSize)
			if err != nil {
				return err
			}
			slog.Info("Warmed cache", "written", written)
			return nil
		},
	}
	warm.Flags().IntVar(&pages, "pages", 1, "Number of listing pages to fetch")
	warm.Flags().IntVar(&pageSize, "page-size", 20, "Characters per page")

	cmd.AddCommand(recent, get, del, trim, export, imp, warm)
	return cmd
}
