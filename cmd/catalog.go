package cmd

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/profiloom/internal/catalog"
	"github.com/KaramelBytes/profiloom/internal/utils"
	"github.com/spf13/cobra"
)

var catListJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List or download the built-in sample datasets",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in datasets and their cache status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		cat := newCatalog(c)
		type item struct {
			catalog.Entry
			Cached bool   `json:"cached"`
			Path   string `json:"path,omitempty"`
		}
		var items []item
		for _, e := range catalog.Entries() {
			it := item{Entry: e, Cached: cat.Available(e)}
			if !e.Embedded {
				it.Path = cat.CachePath(e)
			}
			items = append(items, it)
		}
		out := cmd.OutOrStdout()
		if catListJSON {
			b, err := utils.PrettyJSON(items)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		for _, it := range items {
			status := "remote"
			switch {
			case it.Embedded:
				status = "built-in"
			case it.Cached:
				status = "cached"
			}
			fmt.Fprintf(out, "- %s (%d rows, %s): %s\n", it.Name, it.Rows, status, it.Description)
		}
		return nil
	},
}

var catalogFetchCmd = &cobra.Command{
	Use:   "fetch [names...]",
	Short: "Download catalog datasets into the local cache (all when no names are given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		names := args
		if len(names) == 0 {
			names = catalog.Names()
		}
		for _, n := range names {
			if _, ok := catalog.Lookup(n); !ok {
				return fmt.Errorf("%w: %s", catalog.ErrUnknownDataset, n)
			}
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := newCatalog(c).Warm(ctx, names...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Fetched %d datasets into %s\n", len(names), c.DataDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogFetchCmd)
	catalogListCmd.Flags().BoolVar(&catListJSON, "json", false, "print the catalog as JSON")
}
