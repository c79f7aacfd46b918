package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/marvelous/internal/lookup"
	"github.com/lehigh-university-libraries/marvelous/internal/models"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search TEXT",
		Short: "Search by name prefix, cache the first match and show recent characters",
		Long: `Search the catalog for characters whose name starts with TEXT. The first
match is written to the local cache, the cache is trimmed to capacity and the
recently viewed list is printed, newest first.`,
		Example: `  marvelous search Dead
  marvelous search "Iron Man" --json`,
		Args: cobra.MinimumNArgs(1),
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

			svc := lookup.New(newClient(cfg), store, cfg.MaxEntries)
			res, err := svc.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				title, _ := lookup.Describe(err)
				recent, rerr := svc.Recent(cmd.Context())
				if rerr == nil && !asJSON {
					printRecent(cmd, recent)
				}
				return fmt.Errorf("%s: %w", title, err)
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (#%d)\n", res.Selected.Name, res.Selected.ID)
			if res.Selected.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", res.Selected.Description)
			}
			printRecent(cmd, res.Recent)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full search result as JSON")

	return cmd
}

func printRecent(cmd *cobra.Command, recent []models.Record) {
	if len(recent) == 0 {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nRecent:")
	for _, rec := range recent {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-8d %s\n", rec.ID, rec.Name)
	}
}
