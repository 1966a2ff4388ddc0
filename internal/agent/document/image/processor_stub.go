//go:build !gosseract

package image

import (
	"context"
	"fmt"

	"github.com/feichai0017/document-harvester/internal/agent/document"
)

// Processor is the stub used when the binary is built without the gosseract tag.
// Rebuild with -tags gosseract to link libtesseract.
type Processor struct{}

func NewProcessor(language string) (*Processor, error) {
	return &Processor{}, nil
}

func (p *Processor) Name() string { return "gosseract" }

func (p *Processor) Close() error { return nil }

func (p *Processor) Recognize(ctx context.Context, data []byte) (string, error) {
	return "", fmt.Errorf("built without gosseract tag: %w", document.ErrEngineUnavailable)
}
