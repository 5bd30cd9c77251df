package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
)

const utf8BOM = "\ufeff"

// readTable reads a whole CSV file. A missing file returns os.ErrNotExist;
// an empty file returns a nil header.
func readTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return header, rows[1:], nil
}

// writeTableAtomic writes header and rows to a temp file next to path and
// renames it into place
func writeTableAtomic(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func headerEquals(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ReadRecords decodes every row of a canonical table
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := csvutil.NewDecoder(&bomStripper{r: csv.NewReader(f)})
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	header := dec.Header()
	if !headerEquals(header, Columns) {
		return nil, fmt.Errorf("%w: %s has columns %v", ErrSchemaMismatch, path, header)
	}

	var records []Record
	for {
		var rec Record
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// bomStripper drops a UTF-8 byte order mark from the first cell read
type bomStripper struct {
	r    *csv.Reader
	seen bool
}

func (b *bomStripper) Read() ([]string, error) {
	rec, err := b.r.Read()
	if !b.seen && err == nil && len(rec) > 0 {
		rec[0] = strings.TrimPrefix(rec[0], utf8BOM)
	}
	b.seen = true
	return rec, err
}
