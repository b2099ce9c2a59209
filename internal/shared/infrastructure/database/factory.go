package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	// Driver is detected from URL when empty.
	Driver Driver
	// URL is the PostgreSQL connection string.
	URL string
	// SQLitePath is a file path or ":memory:". Defaults to ~/.taskboard/inbox.db.
	SQLitePath string
	// MaxConns caps the PostgreSQL pool.
	MaxConns int
}

// Opener opens a Connection for one driver.
type Opener func(ctx context.Context, cfg Config) (Connection, error)

var (
	openersMu sync.RWMutex
	openers   = map[Driver]Opener{}
)

// RegisterPostgresDriver is called from the postgres package's init.
func RegisterPostgresDriver(fn Opener) { register(DriverPostgres, fn) }

// RegisterSQLiteDriver is called from the sqlite package's init.
func RegisterSQLiteDriver(fn Opener) { register(DriverSQLite, fn) }

func register(d Driver, fn Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[d] = fn
}

// NewConnection opens cfg's backend. The driver package must be imported
// for its side effects.
func NewConnection(ctx context.Context, cfg Config) (Connection, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DetectDriver(cfg.URL)
	}
	if !driver.IsValid() {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	openersMu.RLock()
	open, ok := openers[driver]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s driver not registered", driver)
	}
	return open(ctx, cfg)
}

// DefaultSQLitePath is ~/.taskboard/inbox.db, next to the JSON inbox.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".taskboard", "inbox.db")
}

// EnsureDirectory creates the parent directory of a database file.
func EnsureDirectory(path string) error {
	if IsMemoryPath(path) {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// IsMemoryPath reports whether path names an in-memory SQLite database.
func IsMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}
