package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/marvelous/internal/models"
)

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var (
		matchLimit, matchOffset int
		pageLimit, pageOffset   int
		remember                bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Query the character catalog directly",
		Long: `Issue a single signed query against the characters endpoint and print the
decoded result as JSON. With --cache the returned characters are also written
to the local cache, which is then trimmed to capacity.`,
	}
	cmd.PersistentFlags().BoolVar(&remember, "cache", false, "Write returned characters to the local cache")

	// cacheRecords upserts records when --cache is set
	cacheRecords := func(ctx context.Context, records []models.Record) error {
		if !remember || len(records) == 0 {
			return nil
		}
		cfg, err := opts.load(false)
		if err != nil {
			return err
		}
		c, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		for _, rec := range records {
			if _, err := c.Upsert(ctx, rec); err != nil {
				return err
			}
		}
		deleted, err := c.TrimToDefault(ctx)
		if err != nil {
			return err
		}
		slog.Info("Cached characters", "count", len(records), "evicted", deleted)
		return nil
	}

	exact := &cobra.Command{
		Use:     "exact NAME",
		Short:   "Fetch the character with exactly this name",
		Args:    cobra.ExactArgs(1),
		Example: `  marvelous fetch exact Deadpool`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(true)
			if err != nil {
				return err
			}
			rec, err := newClient(cfg).FetchExact(cmd.Context(), args[0]).Await(cmd.Context())
			if err != nil {
				return err
			}
			if err := cacheRecords(cmd.Context(), []models.Record{rec}); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}

	match := &cobra.Command{
		Use:   "match PREFIX",
		Short: "Fetch characters whose name starts with PREFIX",
		Args:  cobra.ExactArgs(1),
		Example: `  marvelous fetch match Spider
  marvelous fetch match Spider --limit 5 --offset 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(true)
			if err != nil {
				return err
			}
			client := newClient(cfg)
			if matchLimit > 0 || matchOffset > 0 {
				resp, err := client.FetchMatchingPage(cmd.Context(), args[0], matchLimit, matchOffset).Await(cmd.Context())
				if err != nil {
					return err
				}
				if err := cacheRecords(cmd.Context(), resp.Data.Results); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			}
			records, err := client.FetchMatching(cmd.Context(), args[0]).Await(cmd.Context())
			if err != nil {
				return err
			}
			if err := cacheRecords(cmd.Context(), records); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}
	match.Flags().IntVar(&matchLimit, "limit", 0, "Page size (0 for server default)")
	match.Flags().IntVar(&matchOffset, "offset", 0, "Page offset")

	page := &cobra.Command{
		Use:     "page",
		Short:   "Fetch one page of the character listing",
		Args:    cobra.NoArgs,
		Example: `  marvelous fetch page --limit 20 --offset 40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(true)
			if err != nil {
				return err
			}
			container, err := newClient(cfg).FetchPage(cmd.Context(), pageLimit, pageOffset).Await(cmd.Context())
			if err != nil {
				return err
			}
			if err := cacheRecords(cmd.Context(), container.Results); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), container)
		},
	}
	page.Flags().IntVar(&pageLimit, "limit", 20, "Page size (0 for server default)")
	page.Flags().IntVar(&pageOffset, "offset", 0, "Page offset")

	def := &cobra.Command{
		Use:   "default",
		Short: "Fetch the default character listing with its full response envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(true)
			if err != nil {
				return err
			}
			resp, err := newClient(cfg).FetchDefault(cmd.Context()).Await(cmd.Context())
			if err != nil {
				return err
			}
			if err := cacheRecords(cmd.Context(), resp.Data.Results); err != nil {
				return err
			}
			if resp.AttributionText != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), resp.AttributionText)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.AddCommand(exact, match, page, def)
	return cmd
}
