package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feichai0017/document-harvester/internal/models"
)

func TestDocumentStatus(t *testing.T) {
	found := models.HarvestResult{Findings: []models.Finding{{Category: models.CategoryModel, Text: "FS-1320DN"}}}
	empty := models.HarvestResult{Findings: []models.Finding{}}

	tests := []struct {
		name string
		ext  models.ExtractionResult
		h    models.HarvestResult
		want string
	}{
		{"pass", models.ExtractionResult{Outcome: models.OutcomeOK}, found, "Pass"},
		{"needs review", models.ExtractionResult{Outcome: models.OutcomeOK}, empty, "Needs Review"},
		{"pass ocr", models.ExtractionResult{Outcome: models.OutcomeOK, OCRUsed: true}, found, "Pass (OCR)"},
		{"review ocr", models.ExtractionResult{Outcome: models.OutcomeOK, OCRUsed: true}, empty, "Needs Review (OCR)"},
		{"ocr unavailable", models.ExtractionResult{Outcome: models.OutcomeOCRUnavailable, OCRUsed: true}, empty, "Needs Review (OCR)"},
		{"failed", models.ExtractionResult{Outcome: models.OutcomeFailed}, empty, "Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentStatus(tt.ext, tt.h))
		})
	}
}

func TestIsPassIsReview(t *testing.T) {
	assert.True(t, IsPass("Pass"))
	assert.True(t, IsPass("Pass (OCR)"))
	assert.False(t, IsPass("Needs Review"))
	assert.True(t, IsReview("Needs Review (OCR)"))
	assert.False(t, IsReview("Error"))
}
