package storage

import (
	"fmt"

	"github.com/tealeg/xlsx/v2"
)

// DefaultSheetName is used by ExportXLSX when no sheet name is given
const DefaultSheetName = "Collection"

// ExportXLSX copies a canonical table into a single-sheet workbook. Cells are
// written as strings so captions are never reinterpreted as numbers.
func ExportXLSX(csvPath, xlsxPath, sheetName string) (int, error) {
	header, rows, err := readTable(csvPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read table: %w", err)
	}
	if header == nil {
		header = Columns
	}
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return 0, fmt.Errorf("failed to add sheet: %w", err)
	}

	addRow(sheet, header)
	for _, row := range rows {
		addRow(sheet, row)
	}

	if err := file.Save(xlsxPath); err != nil {
		return 0, fmt.Errorf("failed to save workbook: %w", err)
	}
	return len(rows), nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
