package converters

import (
	"fmt"
	"time"

	"github.com/feichai0017/document-harvester/internal/models"
)

// DocumentConverter 定义文档转换器接口
type DocumentConverter interface {
	Convert(doc *models.Document, meta DocumentMetadata) (*ProcessedDocument, error)
}

// ProcessedDocument 定义处理后的文档结构
type ProcessedDocument struct {
	TaskID       string           `json:"taskId,omitempty"`
	DocumentID   string           `json:"documentId"`
	Status       string           `json:"status"`
	StatusReason string           `json:"statusReason"`
	Findings     []FindingGroup   `json:"findings"`
	Text         string           `json:"text"`
	Metadata     DocumentMetadata `json:"metadata"`
	ProcessedAt  time.Time        `json:"processedAt"`
}

// FindingGroup 同一类别的发现, 保持出现顺序
type FindingGroup struct {
	Type   models.Category `json:"type"`
	Values []string        `json:"values"`
}

// DocumentMetadata 定义文档元数据
type DocumentMetadata struct {
	FileName     string                   `json:"fileName"`
	FileSize     int64                    `json:"fileSize"`
	PageCount    int                      `json:"pageCount,omitempty"`
	OCRUsed      bool                     `json:"ocrUsed"`
	Outcome      models.ExtractionOutcome `json:"outcome"`
	OutputPath   string                   `json:"outputPath,omitempty"`
	ProcessingMs int64                    `json:"processingMs"`
}

// JSONConverter 实现文档转换器
type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

func (c *JSONConverter) Convert(doc *models.Document, meta DocumentMetadata) (*ProcessedDocument, error) {
	if doc == nil {
		return nil, fmt.Errorf("no document to convert")
	}

	meta.OCRUsed = doc.OCRUsed
	meta.Outcome = doc.Outcome
	meta.OutputPath = doc.OutputPath
	if meta.FileName == "" {
		meta.FileName = doc.Filename
	}

	return &ProcessedDocument{
		DocumentID:   doc.ID,
		Status:       doc.Status,
		StatusReason: doc.StatusReason,
		Findings:     GroupFindings(doc.Findings),
		Text:         doc.Text,
		Metadata:     meta,
		ProcessedAt:  doc.UpdatedAt,
	}, nil
}

// GroupFindings groups findings by category in first-appearance order.
func GroupFindings(findings []models.Finding) []FindingGroup {
	groups := make([]FindingGroup, 0)
	index := make(map[models.Category]int)
	for _, f := range findings {
		i, ok := index[f.Category]
		if !ok {
			i = len(groups)
			index[f.Category] = i
			groups = append(groups, FindingGroup{Type: f.Category})
		}
		groups[i].Values = append(groups[i].Values, f.Text)
	}
	return groups
}
