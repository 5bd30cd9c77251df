package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanath1188/insta-collections-insights/pkg/storage"
	"github.com/sanath1188/insta-collections-insights/pkg/ui"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Export a table as an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
		Example: `  igcollect export Food.csv
  igcollect export Food.csv --xlsx food.xlsx --sheet Food`,
	}
	cmd.Flags().String("xlsx", "", "workbook path (default: table path with .xlsx)")
	cmd.Flags().String("sheet", storage.DefaultSheetName, "sheet name")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	src := args[0]
	dst, _ := cmd.Flags().GetString("xlsx")
	if dst == "" {
		dst = strings.TrimSuffix(src, filepath.Ext(src)) + ".xlsx"
	}
	sheet, _ := cmd.Flags().GetString("sheet")

	rows, err := storage.ExportXLSX(src, dst, sheet)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Exported %d rows to %s", rows, dst))
	return nil
}
