package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Lookup kinds stored in the cache.
const (
	KindWhois       = "whois"
	KindReputation  = "reputation"
	KindGeolocation = "geolocation"
)

// ErrMiss is returned by Get when no fresh entry exists for the key.
var ErrMiss = errors.New("cache miss")

// LookupCache provides SQLite-based storage for third-party lookup
// responses. It manages connection pooling and expiry.
//
// Design decision: We use a single database file for all lookup kinds
// rather than a file per kind. One file keeps the XDG data directory tidy
// and lets a single purge sweep every table.
type LookupCache struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// ttl is the maximum entry age served by Get.
	ttl time.Duration

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// Options configures LookupCache behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool

	// TTL is the maximum entry age served by Get. Zero means the
	// default of 24 hours.
	TTL time.Duration
}

// DefaultOptions returns the default cache options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		TTL:               24 * time.Hour,
	}
}

// Open opens or creates a LookupCache at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*LookupCache, error) {
	dbPath := filepath.Join(dbDir, "urlsentry-cache.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("cache database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check cache path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite only supports one writer; a single connection avoids lock
	// contention between Get and Put.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ttl := opts.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	c := &LookupCache{
		db:     db,
		dbPath: dbPath,
		ttl:    ttl,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := c.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *LookupCache) Close() error {
	return c.db.Close()
}

// createTables creates the cache schema if it doesn't exist.
func (c *LookupCache) createTables() error {
	schema := `
	-- Lookup entries store raw upstream responses as JSON
	CREATE TABLE IF NOT EXISTS lookups (
		kind TEXT NOT NULL,
		key TEXT NOT NULL,
		payload TEXT NOT NULL,
		fetched_at INTEGER NOT NULL,
		PRIMARY KEY (kind, key)
	);

	CREATE INDEX IF NOT EXISTS idx_lookups_fetched ON lookups(fetched_at);
	`

	_, err := c.db.ExecContext(context.Background(), schema)
	return err
}

// Put stores a lookup response, replacing any previous entry for the key.
func (c *LookupCache) Put(ctx context.Context, kind, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize cache entry: %w", err)
	}

	query := `
	INSERT INTO lookups (kind, key, payload, fetched_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(kind, key) DO UPDATE SET
		payload = excluded.payload,
		fetched_at = excluded.fetched_at
	`

	if _, err := c.db.ExecContext(ctx, query, kind, key, string(payload), c.now().Unix()); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// Get retrieves a fresh lookup response into out. Expired or absent
// entries return ErrMiss; expired rows are deleted on the way out.
func (c *LookupCache) Get(ctx context.Context, kind, key string, out any) error {
	query := `
	SELECT payload, fetched_at FROM lookups
	WHERE kind = ? AND key = ?
	`

	var payload string
	var fetchedAt int64

	err := c.db.QueryRowContext(ctx, query, kind, key).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read cache entry: %w", err)
	}

	if c.now().Sub(time.Unix(fetchedAt, 0)) > c.ttl {
		_, _ = c.db.ExecContext(ctx, "DELETE FROM lookups WHERE kind = ? AND key = ?", kind, key)
		return ErrMiss
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("failed to parse cache entry: %w", err)
	}

	return nil
}

// Purge deletes every expired entry and returns how many were removed.
func (c *LookupCache) Purge(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl).Unix()

	result, err := c.db.ExecContext(ctx, "DELETE FROM lookups WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}

	return result.RowsAffected()
}
