package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

func openTestRepo(t *testing.T) *DocumentRepository {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "harvester.db"), logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestDocumentRepository_SaveGet(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	doc := &models.Document{
		ID:           "doc-1",
		Filename:     "bulletin.pdf",
		Status:       "Pass (OCR)",
		Text:         "Service bulletin for TASKalfa 3554ci. Bulletin ID is SB-45.",
		StatusReason: models.ReasonDataFound,
		Findings: []models.Finding{
			{Category: models.CategoryModel, Text: "TASKalfa 3554ci"},
			{Category: models.CategoryQANumber, Text: "SB-45"},
		},
		SourcePath: "/in/bulletin.pdf",
		OCRUsed:    true,
		Outcome:    models.OutcomeOK,
		OutputPath: "bulletin.txt",
	}
	require.NoError(t, repo.Save(ctx, doc))
	require.NoError(t, repo.Ping(ctx))

	got, err := repo.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Findings, got.Findings)
	assert.Equal(t, doc.Status, got.Status)
	assert.True(t, got.OCRUsed)
	assert.Equal(t, models.OutcomeOK, got.Outcome)
	assert.True(t, doc.CreatedAt.Equal(got.CreatedAt))
}

func TestDocumentRepository_UpsertKeepsCreatedAtAndOrder(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	first := &models.Document{ID: "a", Filename: "a.pdf", Status: "Needs Review"}
	second := &models.Document{ID: "b", Filename: "b.pdf", Status: "Pass"}
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	created := first.CreatedAt
	first.Status = "Pass"
	first.Findings = []models.Finding{{Category: "topic", Text: "toner"}}
	require.NoError(t, repo.Save(ctx, first))

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "Pass", docs[0].Status)
	assert.True(t, created.Equal(docs[0].CreatedAt))
	assert.Equal(t, "b", docs[1].ID)
	assert.Empty(t, docs[1].Findings)
}

func TestDocumentRepository_NotFound(t *testing.T) {
	repo := openTestRepo(t)
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
