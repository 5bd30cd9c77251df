package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jszwec/csvutil"

	"github.com/sanath1188/insta-collections-insights/pkg/logger"
)

// HeaderPolicy decides what Open does with a table whose header is not the
// canonical one
type HeaderPolicy string

const (
	// HeaderReject fails with ErrSchemaMismatch and leaves the file alone
	HeaderReject HeaderPolicy = "reject"
	// HeaderMigrate rewrites known legacy layouts to the canonical header
	HeaderMigrate HeaderPolicy = "migrate"
)

// ParseHeaderPolicy validates a policy name; "" selects HeaderReject
func ParseHeaderPolicy(s string) (HeaderPolicy, error) {
	switch p := HeaderPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return HeaderReject, nil
	case HeaderReject, HeaderMigrate:
		return p, nil
	default:
		return "", fmt.Errorf("unknown header policy %q", s)
	}
}

// Options configures Open
type Options struct {
	HeaderPolicy HeaderPolicy
	Logger       logger.Logger
}

// Store appends records to a CSV table, skipping urls it already holds
type Store struct {
	path   string
	file   *os.File
	writer *csv.Writer
	enc    *csvutil.Encoder
	keys   map[string]struct{}
	logger logger.Logger
	mu     sync.Mutex
}

// Open prepares the table at path for appending. A missing table is
// created with the canonical header; an existing one has its keys loaded.
func Open(path string, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.HeaderPolicy == "" {
		opts.HeaderPolicy = HeaderReject
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	keys, needHeader, err := loadKeys(path, opts.HeaderPolicy, log)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}

	s := &Store{
		path:   path,
		file:   file,
		writer: csv.NewWriter(file),
		keys:   keys,
		logger: log,
	}
	s.enc = csvutil.NewEncoder(s.writer)
	s.enc.AutoHeader = false

	if needHeader {
		if err := s.writeRow(Columns); err != nil {
			file.Close()
			return nil, err
		}
	}

	log.DebugWithFields("Opened table", map[string]interface{}{
		"path":          path,
		"existing_keys": len(keys),
		"created":       needHeader,
	})
	return s, nil
}

// loadKeys reads the url column of an existing table. needHeader is true
// when the file is absent or empty.
func loadKeys(path string, policy HeaderPolicy, log logger.Logger) (map[string]struct{}, bool, error) {
	keys := make(map[string]struct{})

	header, rows, err := readTable(path)
	if errors.Is(err, os.ErrNotExist) {
		return keys, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if header == nil {
		return keys, true, nil
	}

	if !headerEquals(header, Columns) {
		if policy != HeaderMigrate {
			return nil, false, fmt.Errorf("%w: %s has columns %v, want %v", ErrSchemaMismatch, path, header, Columns)
		}
		rows, err = migrateRows(header, rows)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, path, err)
		}
		if err := writeTableAtomic(path, Columns, rows); err != nil {
			return nil, false, err
		}
		log.InfoWithFields("Migrated table to current columns", map[string]interface{}{
			"path":       path,
			"old_header": header,
			"rows":       len(rows),
		})
	}

	for _, row := range rows {
		if len(row) > 0 {
			keys[row[0]] = struct{}{}
		}
	}
	return keys, false, nil
}

// migrateRows maps rows from a legacy header onto Columns. Unknown columns
// are dropped and missing ones left empty.
func migrateRows(header []string, rows [][]string) ([][]string, error) {
	target := make(map[string]int, len(Columns))
	for i, c := range Columns {
		target[c] = i
	}

	mapping := make([]int, len(header))
	hasURL := false
	for i, name := range header {
		mapping[i] = -1
		canonical, ok := legacyColumns[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		mapping[i] = target[canonical]
		if canonical == "url" {
			hasURL = true
		}
	}
	if !hasURL {
		return nil, errors.New("no url column to migrate from")
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		converted := make([]string, len(Columns))
		for i, v := range row {
			if i < len(mapping) && mapping[i] >= 0 && converted[mapping[i]] == "" {
				converted[mapping[i]] = v
			}
		}
		out = append(out, converted)
	}
	return out, nil
}

// Has reports whether url is already stored
func (s *Store) Has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[url]
	return ok
}

// Len is the number of distinct urls stored
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Path is the table location
func (s *Store) Path() string {
	return s.path
}

// Merge appends rec unless its url is already present. It returns true when
// a row was written. Each row is flushed before returning.
func (s *Store) Merge(rec Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[rec.URL]; ok {
		return false, nil
	}
	if err := s.enc.Encode(rec); err != nil {
		return false, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := s.flush(); err != nil {
		return false, err
	}
	s.keys[rec.URL] = struct{}{}
	return true, nil
}

func (s *Store) writeRow(row []string) error {
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return s.flush()
}

func (s *Store) flush() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

// Close flushes and closes the table
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	flushErr := s.flush()
	closeErr := s.file.Close()
	s.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
