package converters

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/feichai0017/document-harvester/internal/models"
)

const reportSheet = "Documents"

var reportHeaders = []string{
	"Filename",
	"Status",
	"Status Reason",
	"Models",
	"QA Numbers",
	"Other Findings",
	"OCR Used",
	"Source Path",
}

// XLSXConverter writes document records as an Excel report.
type XLSXConverter struct{}

func NewXLSXConverter() *XLSXConverter {
	return &XLSXConverter{}
}

// Export returns the workbook bytes, one row per document.
func (c *XLSXConverter) Export(docs []*models.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// 默认工作表重命名为 Documents
	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
	}

	for r, doc := range docs {
		row := r + 2
		modelsCol, qaCol, other := splitFindings(doc.Findings)
		ocr := "No"
		if doc.OCRUsed {
			ocr = "Yes"
		}
		values := []any{doc.Filename, doc.Status, doc.StatusReason, modelsCol, qaCol, other, ocr, doc.SourcePath}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(reportSheet, cell, v); err != nil {
				return nil, fmt.Errorf("xlsx row %d: %w", row, err)
			}
		}
	}

	_ = f.SetColWidth(reportSheet, "A", "A", 32) // filename
	_ = f.SetColWidth(reportSheet, "B", "C", 20) // status
	_ = f.SetColWidth(reportSheet, "D", "F", 36) // findings
	_ = f.SetColWidth(reportSheet, "H", "H", 60) // path
	_ = f.SetPanes(reportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func splitFindings(findings []models.Finding) (modelsCol, qaCol, other string) {
	var m, q, o []string
	for _, f := range findings {
		switch f.Category {
		case models.CategoryModel:
			m = append(m, f.Text)
		case models.CategoryQANumber:
			q = append(q, f.Text)
		default:
			o = append(o, string(f.Category)+": "+f.Text)
		}
	}
	return strings.Join(m, ", "), strings.Join(q, ", "), strings.Join(o, "; ")
}
