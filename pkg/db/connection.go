package db

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Config holds database configuration
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens a MySQL connection with retry logic for initial availability
func Connect(cfg Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	var db *sqlx.DB
	var err error

	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Open("mysql", dsn)
		if err != nil {
			if i == maxRetries-1 {
				return nil, fmt.Errorf("failed to open database after %d attempts: %w", maxRetries, err)
			}
			time.Sleep(time.Second * time.Duration(i+1))
			continue
		}

		err = db.Ping()
		if err != nil {
			if i == maxRetries-1 {
				return nil, fmt.Errorf("failed to ping database after %d attempts: %w", maxRetries, err)
			}
			time.Sleep(time.Second * time.Duration(i+1))
			continue
		}

		break
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// Migrate applies the interaction engine DDL. Every statement is idempotent.
func Migrate(db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{`
CREATE TABLE IF NOT EXISTS posts (
	id             VARCHAR(64) PRIMARY KEY,
	post_type      VARCHAR(32) NOT NULL,
	likes_count    INT NOT NULL DEFAULT 0,
	comments_count INT NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL
);
`, `
CREATE TABLE IF NOT EXISTS interactions (
	id         CHAR(36) PRIMARY KEY,
	dedupe_key VARCHAR(191) NOT NULL UNIQUE,
	user_id    VARCHAR(64) NOT NULL,
	post_type  VARCHAR(32) NOT NULL DEFAULT '',
	post_id    VARCHAR(64) NOT NULL,
	kind       VARCHAR(16) NOT NULL,
	comment_id CHAR(36) NULL,
	parent_id  CHAR(36) NULL,
	content    TEXT NULL,
	created_at DATETIME NOT NULL,
	KEY idx_post (post_id, kind),
	KEY idx_user (user_id, post_id)
);
`}
