package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// DocumentRepository persists document records in sqlite.
type DocumentRepository struct {
	db     *sql.DB
	logger logger.Logger
}

const documentColumns = `id, filename, status, status_reason, text, findings, source_path, ocr_used, outcome, output_path, created_at, updated_at`

// Save inserts or replaces the record. CreatedAt is kept from the first insert.
func (r *DocumentRepository) Save(ctx context.Context, doc *models.Document) error {
	findings := doc.Findings
	if findings == nil {
		findings = []models.Finding{}
	}
	raw, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("failed to encode findings: %w", err)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	filename = excluded.filename,
	status = excluded.status,
	status_reason = excluded.status_reason,
	text = excluded.text,
	findings = excluded.findings,
	source_path = excluded.source_path,
	ocr_used = excluded.ocr_used,
	outcome = excluded.outcome,
	output_path = excluded.output_path,
	updated_at = excluded.updated_at`,
		doc.ID, doc.Filename, doc.Status, doc.StatusReason, doc.Text, string(raw),
		doc.SourcePath, doc.OCRUsed, string(doc.Outcome), doc.OutputPath,
		doc.CreatedAt.Format(time.RFC3339Nano), doc.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		r.logger.Error("Failed to save document",
			logger.String("id", doc.ID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Get loads one record by id.
func (r *DocumentRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

// List returns all records in first-insert order.
func (r *DocumentRepository) List(ctx context.Context) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	var (
		doc       models.Document
		findings  string
		outcome   string
		createdAt string
		updatedAt string
	)
	if err := s.Scan(&doc.ID, &doc.Filename, &doc.Status, &doc.StatusReason, &doc.Text, &findings,
		&doc.SourcePath, &doc.OCRUsed, &outcome, &doc.OutputPath, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(findings), &doc.Findings); err != nil {
		return nil, fmt.Errorf("corrupt findings for %s: %w", doc.ID, err)
	}
	doc.Outcome = models.ExtractionOutcome(outcome)

	var err error
	if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at for %s: %w", doc.ID, err)
	}
	if doc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("corrupt updated_at for %s: %w", doc.ID, err)
	}
	return &doc, nil
}
