package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

var geoKeys = []string{"country", "state", "city"}

func writeTable(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.csv")
	require.NoError(t, writeTableAtomic(path, Columns, rows))
	return path
}

func urls(t *testing.T, path string) []string {
	t.Helper()
	_, rows, err := readTable(path)
	require.NoError(t, err)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r[0]
	}
	return out
}

func TestSortTableByGeography(t *testing.T) {
	path := writeTable(t, [][]string{
		{"u1", "", "", "Paris", "", "France"},
		{"u2", "", "", "austin", "Texas", "USA"},
		{"u3", "", "", "", "", ""},
		{"u4", "", "", "Dallas", "texas", "usa"},
		{"u5", "", "", "Austin", "TEXAS", "USA"},
		{"u6", "", "", "Lyon", "", "france"},
	})

	require.NoError(t, SortTable(path, Columns, geoKeys))

	assert.Equal(t, []string{"u3", "u6", "u1", "u2", "u5", "u4"}, urls(t, path),
		"empty sorts first; ties on folded keys keep input order")
}

func TestSortTableIsIdempotent(t *testing.T) {
	path := writeTable(t, [][]string{
		{"b", "", "", "", "", "Zambia"},
		{"a", "", "", "", "", "Angola"},
	})

	require.NoError(t, SortTable(path, Columns, geoKeys))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, SortTable(path, Columns, geoKeys))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, []string{"a", "b"}, urls(t, path))
}

func TestSortTableErrors(t *testing.T) {
	path := writeTable(t, nil)
	err := SortTable(path, Columns, []string{"continent"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "continent")

	other := filepath.Join(t.TempDir(), "other.csv")
	require.NoError(t, os.WriteFile(other, []byte("a,b\n"), 0644))
	assert.ErrorIs(t, SortTable(other, Columns, geoKeys), ErrSchemaMismatch)

	assert.Error(t, SortTable(filepath.Join(t.TempDir(), "absent.csv"), Columns, geoKeys))
}

func TestSortTableHeaderOnly(t *testing.T) {
	path := writeTable(t, nil)
	require.NoError(t, SortTable(path, Columns, geoKeys))
	assert.Equal(t, "url,caption,place_name,city,state,country\n", readFile(t, path))
}

func TestExportXLSX(t *testing.T) {
	path := writeTable(t, [][]string{
		{"u1", "0123", "Cafe", "Rome", "Lazio", "Italy"},
	})
	out := filepath.Join(t.TempDir(), "table.xlsx")

	n, err := ExportXLSX(path, out, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	sheet, ok := f.Sheet[DefaultSheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "url", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "0123", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "Italy", sheet.Rows[1].Cells[5].String())
}
