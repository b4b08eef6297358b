package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = sqlDialect{
	name: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS reputation_cache (
			cache_key TEXT PRIMARY KEY,
			is_safe BOOLEAN NOT NULL,
			is_blocked BOOLEAN NOT NULL,
			provider TEXT NOT NULL,
			score REAL NOT NULL DEFAULT 0,
			checked_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reputation_expires_at ON reputation_cache(expires_at)`,
	},
	upsert: `
		INSERT OR REPLACE INTO reputation_cache (cache_key, is_safe, is_blocked, provider, score, checked_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
}

// SQLiteCache is a SQLite implementation of the ReputationStore interface
type SQLiteCache struct {
	*sqlStore
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite3 serializes writers
	db.SetMaxOpenConns(1)

	store, err := newSQLStore(db, sqliteDialect, logger, cleanupFreq)
	if err != nil {
		return nil, err
	}
	return &SQLiteCache{sqlStore: store}, nil
}
