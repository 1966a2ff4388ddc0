package document

import (
	"context"
	"errors"

	"github.com/feichai0017/document-harvester/internal/models"
)

// ErrEngineUnavailable OCR 引擎无法加载 (未安装或不在 PATH 中)
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Extractor 文档文本提取接口
type Extractor interface {
	// Extract never returns an error; failures are encoded in the result outcome.
	Extract(ctx context.Context, path string) models.ExtractionResult
}

// TextSource reads the embedded text layer of a PDF.
type TextSource interface {
	// PageTexts returns one entry per page, in page order.
	PageTexts(ctx context.Context, path string) ([]string, error)
	Info(path string) (models.PDFInfo, error)
}

// Rasterizer renders a single page (1-based) to PNG bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, page, dpi int) ([]byte, error)
}

// Recognizer 单页图像 OCR
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Name() string
	Close() error
}
