package models

import (
	"time"
)

// ExtractionOutcome 提取结果类型
type ExtractionOutcome string

const (
	OutcomeOK             ExtractionOutcome = "ok"
	OutcomeOCRUnavailable ExtractionOutcome = "ocr_unavailable"
	OutcomeFailed         ExtractionOutcome = "failed"
)

// OCRUnavailableText is stored as the document text when the OCR engine cannot be resolved.
const OCRUnavailableText = "TESSERACT NOT FOUND. Please install Tesseract-OCR and ensure it's in your system's PATH."

// ExtractionErrorPrefix prefixes the diagnostic text of a failed extraction.
const ExtractionErrorPrefix = "Error extracting text: "

// ExtractionResult is the best-effort plain text of one document.
type ExtractionResult struct {
	Text       string            `json:"text"`
	OCRUsed    bool              `json:"ocrUsed"`
	Outcome    ExtractionOutcome `json:"outcome"`
	Diagnostic string            `json:"diagnostic,omitempty"`
	Pages      int               `json:"pages"`
}

// Failed reports whether the text is a diagnostic rather than document content.
func (r ExtractionResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// PDFInfo PDF 基本信息
type PDFInfo struct {
	Pages  int    `json:"pages"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// Document 单个文档的处理记录
type Document struct {
	ID           string            `json:"id"`
	Filename     string            `json:"filename"`
	Status       string            `json:"status"`
	Text         string            `json:"text"`
	Findings     []Finding         `json:"findings"`
	StatusReason string            `json:"statusReason"`
	SourcePath   string            `json:"sourcePath"`
	OCRUsed      bool              `json:"ocrUsed"`
	Outcome      ExtractionOutcome `json:"outcome"`
	OutputPath   string            `json:"outputPath,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type ProcessingTask struct {
	ID        string            `json:"id"`
	Status    ProcessingStatus  `json:"status"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)
