package storage

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
)

// SortTable rewrites the table at path ordered by the given key columns.
// Keys are compared in order after Unicode case folding; empty cells sort
// first and ties keep their existing order.
func SortTable(path string, columns, keys []string) error {
	header, rows, err := readTable(path)
	if err != nil {
		return fmt.Errorf("failed to read table for sorting: %w", err)
	}
	if header == nil {
		return nil
	}
	if !headerEquals(header, columns) {
		return fmt.Errorf("%w: %s has columns %v, want %v", ErrSchemaMismatch, path, header, columns)
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	positions := make([]int, len(keys))
	for i, k := range keys {
		pos, ok := index[k]
		if !ok {
			return fmt.Errorf("sort key %q is not a column of %s", k, path)
		}
		positions[i] = pos
	}

	folder := cases.Fold()
	folded := make([][]string, len(rows))
	for r, row := range rows {
		key := make([]string, len(positions))
		for i, pos := range positions {
			if pos < len(row) {
				key[i] = folder.String(row[pos])
			}
		}
		folded[r] = key
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, kb := folded[order[a]], folded[order[b]]
		for i := range ka {
			if ka[i] != kb[i] {
				return ka[i] < kb[i]
			}
		}
		return false
	})

	sorted := make([][]string, len(rows))
	for i, idx := range order {
		sorted[i] = rows[idx]
	}
	return writeTableAtomic(path, header, sorted)
}
