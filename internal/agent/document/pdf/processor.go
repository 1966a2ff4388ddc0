package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/document-harvester/internal/agent/document"
	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

// Config 混合提取参数
type Config struct {
	// MinTextLength is the trimmed embedded text length below which OCR runs.
	MinTextLength int
	DPI           int
	MaxWorkers    int
}

func DefaultConfig() Config {
	return Config{
		MinTextLength: 100,
		DPI:           300,
		MaxWorkers:    4,
	}
}

// Processor extracts embedded text and falls back to OCR for scanned documents.
type Processor struct {
	cfg        Config
	source     document.TextSource
	rasterizer document.Rasterizer
	recognizer document.Recognizer
	logger     logger.Logger
}

func NewProcessor(cfg Config, source document.TextSource, rasterizer document.Rasterizer, recognizer document.Recognizer, log logger.Logger) *Processor {
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Processor{
		cfg:        cfg,
		source:     source,
		rasterizer: rasterizer,
		recognizer: recognizer,
		logger:     log,
	}
}

// Extract implements document.Extractor.
func (p *Processor) Extract(ctx context.Context, path string) (res models.ExtractionResult) {
	ocrEntered := false
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("Extraction panicked",
				logger.String("path", path),
				logger.Any("panic", rec),
			)
			res = failed(fmt.Errorf("%v", rec), ocrEntered, res.Pages)
		}
	}()

	pages, err := p.source.PageTexts(ctx, path)
	if err != nil {
		p.logger.Error("Failed to read embedded text",
			logger.String("path", path),
			logger.Error(err),
		)
		return failed(err, false, 0)
	}

	text := strings.TrimSpace(strings.Join(pages, "\n"))
	if utf8.RuneCountInString(text) >= p.cfg.MinTextLength {
		return models.ExtractionResult{
			Text:    text,
			Outcome: models.OutcomeOK,
			Pages:   len(pages),
		}
	}

	p.logger.Info("Embedded text below threshold, running OCR",
		logger.String("path", path),
		logger.Int("chars", utf8.RuneCountInString(text)),
		logger.Int("pages", len(pages)),
		logger.String("engine", p.recognizer.Name()),
	)
	ocrEntered = true

	ocrText, err := p.ocr(ctx, path, len(pages))
	switch {
	case errors.Is(err, document.ErrEngineUnavailable):
		p.logger.Warn("OCR engine unavailable",
			logger.String("path", path),
			logger.Error(err),
		)
		return models.ExtractionResult{
			Text:       models.OCRUnavailableText,
			OCRUsed:    true,
			Outcome:    models.OutcomeOCRUnavailable,
			Diagnostic: err.Error(),
			Pages:      len(pages),
		}
	case err != nil:
		p.logger.Error("OCR failed",
			logger.String("path", path),
			logger.Error(err),
		)
		return failed(err, true, len(pages))
	}

	return models.ExtractionResult{
		Text:    strings.TrimSpace(ocrText),
		OCRUsed: true,
		Outcome: models.OutcomeOK,
		Pages:   len(pages),
	}
}

// ocr 并行识别各页, 结果按页序拼接
func (p *Processor) ocr(ctx context.Context, path string, numPages int) (string, error) {
	results := make([]string, numPages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxWorkers)

	for i := 0; i < numPages; i++ {
		if gctx.Err() != nil {
			break
		}
		idx := i
		g.Go(func() (err error) {
			// Extract 的 recover 管不到这里的 goroutine
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("page %d: panic: %v", idx+1, rec)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := p.rasterizer.Rasterize(gctx, path, idx+1, p.cfg.DPI)
			if err != nil {
				return fmt.Errorf("page %d: %w", idx+1, err)
			}
			text, err := p.recognizer.Recognize(gctx, img)
			if err != nil {
				return fmt.Errorf("page %d: %w", idx+1, err)
			}
			results[idx] = text + "\n"
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}
	// parent cancelled before any page was scheduled
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.Join(results, ""), nil
}

// Close releases the recognizer.
func (p *Processor) Close() error {
	return p.recognizer.Close()
}

func failed(err error, ocrUsed bool, pages int) models.ExtractionResult {
	return models.ExtractionResult{
		Text:       models.ExtractionErrorPrefix + err.Error(),
		OCRUsed:    ocrUsed,
		Outcome:    models.OutcomeFailed,
		Diagnostic: err.Error(),
		Pages:      pages,
	}
}
