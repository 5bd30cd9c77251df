package classifier

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Cache stores successful classifications in SQLite, keyed by provider and
// the SHA-256 of the trimmed caption
type Cache struct {
	db *sql.DB
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS classifications (
	provider     TEXT NOT NULL,
	caption_hash TEXT NOT NULL,
	location     TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	PRIMARY KEY (provider, caption_hash)
);
`

// OpenCache opens or creates the cache database at path
func OpenCache(ctx context.Context, path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, eris.Wrapf(err, "cache: create dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, cacheMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: migrate")
	}
	return &Cache{db: db}, nil
}

// Get returns a cached location. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, provider, caption string) (LocationInfo, bool, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT location FROM classifications WHERE provider = ? AND caption_hash = ?`,
		provider, captionHash(caption),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return LocationInfo{}, false, nil
	}
	if err != nil {
		return LocationInfo{}, false, eris.Wrap(err, "cache: select")
	}

	var info LocationInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return LocationInfo{}, false, eris.Wrap(err, "cache: decode")
	}
	return info, true, nil
}

// Put stores a location, replacing any previous entry
func (c *Cache) Put(ctx context.Context, provider, caption string, info LocationInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return eris.Wrap(err, "cache: encode")
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO classifications (provider, caption_hash, location, created_at) VALUES (?, ?, ?, ?)`,
		provider, captionHash(caption), string(raw), time.Now().UTC(),
	)
	return eris.Wrap(err, "cache: insert")
}

// Len returns the number of cached entries
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classifications`).Scan(&n)
	return n, eris.Wrap(err, "cache: count")
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func captionHash(caption string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(caption)))
	return hex.EncodeToString(sum[:])
}
