// Package database holds the relational store for the Telegram front end:
// who is subscribed, when they want to be notified. Word records never live
// here; they stay in the flat file owned by the store package.
package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the subscriber database connection
type DB struct {
	*sqlx.DB
}

// Connect opens the subscriber database. A postgres:// URL selects the
// Postgres driver; anything else is treated as a sqlite file path.
func Connect(databaseURL string) (*DB, error) {
	driver := "sqlite3"
	dsn := databaseURL
	if dsn == "" {
		dsn = "subscribers.db"
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "postgres"
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to subscriber database: %w", err)
	}

	if driver == "sqlite3" {
		// SQLite does not support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	d := &DB{DB: db}
	if err := d.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) initializeSchema() error {
	_, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS subscribers (
			chat_id BIGINT PRIMARY KEY,
			username TEXT,
			notification_hour INTEGER DEFAULT 9,
			enabled BOOLEAN DEFAULT true,
			is_admin BOOLEAN DEFAULT false,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create subscribers table: %w", err)
	}
	return nil
}

// rebind converts ? placeholders for the active driver
func (d *DB) rebind(query string) string {
	return d.Rebind(query)
}
