//go:build gosseract

package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/document-harvester/internal/agent/document"
)

// Processor recognizes page images in-process through gosseract (cgo).
type Processor struct {
	language string
	psm      gosseract.PageSegMode
}

func NewProcessor(language string) (*Processor, error) {
	if language == "" {
		language = "eng"
	}
	return &Processor{language: language, psm: gosseract.PSM_AUTO}, nil
}

func (p *Processor) Name() string { return "gosseract" }

func (p *Processor) Close() error { return nil }

func (p *Processor) Recognize(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// 每页创建独立的 Tesseract 客户端, 客户端不是并发安全的
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(p.language, "+")...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(p.psm); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		if strings.Contains(err.Error(), "failed to initialize TessBaseAPI") {
			return "", fmt.Errorf("%v: %w", err, document.ErrEngineUnavailable)
		}
		return "", fmt.Errorf("failed to get text: %w", err)
	}
	return text, nil
}
