package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/feichai0017/document-harvester/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	filename      TEXT NOT NULL,
	status        TEXT NOT NULL,
	status_reason TEXT NOT NULL DEFAULT '',
	text          TEXT NOT NULL DEFAULT '',
	findings      TEXT NOT NULL DEFAULT '[]',
	source_path   TEXT NOT NULL DEFAULT '',
	ocr_used      INTEGER NOT NULL DEFAULT 0,
	outcome       TEXT NOT NULL DEFAULT '',
	output_path   TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);
`

// Open opens (creating if needed) the sqlite database at path and applies the schema.
func Open(ctx context.Context, path string, log logger.Logger) (*DocumentRepository, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite 只允许单写者
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info("Database ready", logger.String("path", path))
	return &DocumentRepository{db: db, logger: log}, nil
}

// Ping checks the connection.
func (r *DocumentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *DocumentRepository) Close() error {
	return r.db.Close()
}
