package document

import (
	"context"
	"mime/multipart"

	"github.com/feichai0017/document-harvester/internal/agent/harvest"
	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/pkg/converters"
	"github.com/feichai0017/document-harvester/pkg/queue"
)

type DocumentProcessor interface {
	// 本地批处理
	ProcessBatch(ctx context.Context, paths []string) <-chan Event
	Rescan(ctx context.Context, id string) (*models.Document, error)
	Harvest(text string) HarvestReport

	// 上传 + 异步队列
	ProcessFile(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.ProcessingTask, error)
	ProcessUploads(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error)
	GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error)
	HandleDocument(ctx context.Context, task *queue.Task) error
	GetProcessedDocument(ctx context.Context, taskID string) (*converters.ProcessedDocument, error)
	CancelTask(ctx context.Context, taskID string) error

	// 记录与规则
	List(ctx context.Context) ([]*models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Export(ctx context.Context) ([]byte, error)
	Patterns() []models.Rule
	AddPattern(label, pattern string) (models.Rule, error)
}

// RuleRegistry is the rule library source; implemented by rules.Registry.
type RuleRegistry interface {
	Library() models.RuleLibrary
	Compiled() *harvest.Compiled
	Add(label, pattern string) (models.Rule, error)
}

// DocumentStore persists document records; implemented by repository.DocumentRepository.
type DocumentStore interface {
	Save(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context) ([]*models.Document, error)
}

// EventType 批处理事件类型
type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventWarning  EventType = "warning"
	EventFinished EventType = "finished"
)

// Event is one notification of a batch run. Events arrive in document order;
// every batch ends with exactly one EventFinished.
type Event struct {
	Type     EventType        `json:"type"`
	Index    int              `json:"index,omitempty"` // 1-based document position
	Total    int              `json:"total"`
	Message  string           `json:"message,omitempty"`
	Progress float64          `json:"progress"`
	Document *models.Document `json:"document,omitempty"`
	Summary  *BatchSummary    `json:"summary,omitempty"`
}

// BatchSummary 批处理统计
type BatchSummary struct {
	Total       int                     `json:"total"`
	Processed   int                     `json:"processed"`
	Pass        int                     `json:"pass"`
	Review      int                     `json:"review"`
	Errors      int                     `json:"errors"`
	Cancelled   bool                    `json:"cancelled"`
	Diagnostics []models.RuleDiagnostic `json:"diagnostics,omitempty"`
}

func (s *BatchSummary) count(doc *models.Document) {
	s.Processed++
	switch {
	case harvest.IsPass(doc.Status):
		s.Pass++
	case harvest.IsReview(doc.Status):
		s.Review++
	default:
		s.Errors++
	}
}

// HarvestReport is the result of harvesting an arbitrary text blob.
type HarvestReport struct {
	Status string `json:"status"`
	models.HarvestResult
}
