package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = sqlDialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS reputation_cache (
			cache_key VARCHAR(255) PRIMARY KEY,
			is_safe BOOLEAN NOT NULL,
			is_blocked BOOLEAN NOT NULL,
			provider VARCHAR(64) NOT NULL,
			score DOUBLE NOT NULL DEFAULT 0,
			checked_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_reputation_expires_at (expires_at)
		)`,
	},
	upsert: `
		INSERT INTO reputation_cache (cache_key, is_safe, is_blocked, provider, score, checked_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			is_safe = VALUES(is_safe),
			is_blocked = VALUES(is_blocked),
			provider = VALUES(provider),
			score = VALUES(score),
			checked_at = VALUES(checked_at),
			expires_at = VALUES(expires_at)
	`,
}

// MySQLCache is a MySQL implementation of the ReputationStore interface
type MySQLCache struct {
	*sqlStore
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	store, err := newSQLStore(db, mysqlDialect, logger, cleanupFreq)
	if err != nil {
		return nil, err
	}
	return &MySQLCache{sqlStore: store}, nil
}
