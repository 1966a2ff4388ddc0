package harvest

import "github.com/feichai0017/document-harvester/internal/models"

// Status 文档分类结果
type Status string

const (
	StatusPass        Status = "Pass"
	StatusNeedsReview Status = "Needs Review"
)

// StatusError is the terminal status of a document whose text could not be extracted.
const StatusError = "Error"

const ocrQualifier = " (OCR)"

// Classify passes a document iff at least one finding was harvested.
func Classify(h models.HarvestResult) Status {
	if len(h.Findings) == 0 {
		return StatusNeedsReview
	}
	return StatusPass
}

// Label renders the status shown to operators.
func Label(s Status, ocrUsed bool) string {
	if ocrUsed {
		return string(s) + ocrQualifier
	}
	return string(s)
}

// DocumentStatus combines extraction and harvest into the record status.
func DocumentStatus(e models.ExtractionResult, h models.HarvestResult) string {
	if e.Failed() {
		return StatusError
	}
	return Label(Classify(h), e.OCRUsed)
}

// IsPass reports whether a stored status label is a pass, with or without the OCR qualifier.
func IsPass(label string) bool {
	return label == string(StatusPass) || label == string(StatusPass)+ocrQualifier
}

// IsReview reports whether a stored status label needs review.
func IsReview(label string) bool {
	return label == string(StatusNeedsReview) || label == string(StatusNeedsReview)+ocrQualifier
}
