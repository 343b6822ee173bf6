// Package cache is the content-addressable store for validation results,
// keyed on the working-tree hash plus the step that produced them. A hit
// means the tree and the command are identical to a previous run, so the
// stored result is returned without executing anything.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Cache wraps the SQLite database connection.
type Cache struct {
	conn *sql.DB
	path string
}

// DefaultPath returns ~/.sift/cache.db, creating the directory if needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".sift")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "cache.db"), nil
}

// Open opens or creates the cache database at the given path.
func Open(path string) (*Cache, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	return &Cache{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Migrate creates the schema if it does not exist yet.
func (c *Cache) Migrate() error {
	_, err := c.conn.Exec(`
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS results (
    tree_hash  TEXT NOT NULL,
    step       TEXT NOT NULL,
    command    TEXT NOT NULL,
    result     BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (tree_hash, step, command)
);
`)
	if err != nil {
		return fmt.Errorf("migrate cache: %w", err)
	}

	var n int
	if err := c.conn.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if n == 0 {
		if _, err := c.conn.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return nil
}

// Get returns the stored result for (treeHash, step, command), or ok=false.
func (c *Cache) Get(treeHash, step, command string) ([]byte, bool, error) {
	var data []byte
	err := c.conn.QueryRow(
		`SELECT result FROM results WHERE tree_hash = ? AND step = ? AND command = ?`,
		treeHash, step, command,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return data, true, nil
}

// Put stores a result, replacing any previous entry for the same key.
func (c *Cache) Put(treeHash, step, command string, result []byte) error {
	_, err := c.conn.Exec(
		`INSERT OR REPLACE INTO results (tree_hash, step, command, result) VALUES (?, ?, ?, ?)`,
		treeHash, step, command, result,
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Prune deletes entries older than the given age and returns how many were
// removed.
func (c *Cache) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	res, err := c.conn.Exec(`DELETE FROM results WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
