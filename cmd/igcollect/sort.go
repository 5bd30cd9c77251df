package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanath1188/insta-collections-insights/pkg/storage"
	"github.com/sanath1188/insta-collections-insights/pkg/ui"
)

func newSortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort <table>",
		Short: "Sort a table by location",
		Long: `Sort the rows of a collection table in place. Rows are ordered by each key
in turn, compared case-insensitively, with empty cells first. Rows that
tie keep their current order.`,
		Example: `  igcollect sort Food.csv
  igcollect sort Food.csv --keys country,city`,
		Args: cobra.ExactArgs(1),
		RunE: runSort,
	}
	cmd.Flags().StringSlice("keys", nil, "columns to sort by (default from config: country,state,city)")
	return cmd
}

func runSort(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("table not found: %w", err)
	}

	keys, _ := cmd.Flags().GetStringSlice("keys")
	if len(keys) == 0 {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		keys = cfg.Output.SortKeys
	}

	if err := storage.SortTable(path, storage.Columns, keys); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Sorted %s by %v", path, keys))
	return nil
}
