package agent

import (
	"context"
	"fmt"

	cfg "github.com/feichai0017/document-harvester/config"
	"github.com/feichai0017/document-harvester/internal/agent/document"
	"github.com/feichai0017/document-harvester/internal/agent/document/image"
	"github.com/feichai0017/document-harvester/internal/agent/document/pdf"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

// ProcessorFactory 根据配置组装文本提取器
type ProcessorFactory struct {
	config cfg.ExtractionConfig
	aws    cfg.TextractConfig
	runner document.Runner
	logger logger.Logger
}

func NewProcessorFactory(config cfg.ExtractionConfig, textract cfg.TextractConfig, log logger.Logger) *ProcessorFactory {
	return &ProcessorFactory{
		config: config,
		aws:    textract,
		runner: document.NewExecRunner(log.Named("exec")),
		logger: log,
	}
}

// Recognizer builds the OCR engine named by extraction.engine.
func (f *ProcessorFactory) Recognizer(ctx context.Context) (document.Recognizer, error) {
	var rec document.Recognizer
	switch f.config.Engine {
	case cfg.EngineTesseract, "":
		rec = image.NewCLIProcessor(f.config.TesseractPath, f.config.Language, f.config.DPI, f.runner)
	case cfg.EngineGosseract:
		p, err := image.NewProcessor(f.config.Language)
		if err != nil {
			return nil, fmt.Errorf("failed to create gosseract processor: %w", err)
		}
		rec = p
	case cfg.EngineTextract:
		p, err := image.NewTextractProcessor(ctx, image.TextractConfig{
			Region:        f.aws.Region,
			Endpoint:      f.aws.Endpoint,
			AccessKey:     f.aws.AccessKey,
			SecretKey:     f.aws.SecretKey,
			MinConfidence: float32(f.aws.MinConfidence),
		}, f.logger.Named("textract"))
		if err != nil {
			return nil, fmt.Errorf("failed to create textract processor: %w", err)
		}
		rec = p
	default:
		return nil, fmt.Errorf("unsupported OCR engine: %s", f.config.Engine)
	}

	// textract 自带预处理, 只对本地引擎生效
	if f.config.Preprocess && f.config.Engine != cfg.EngineTextract {
		rec = image.WithPreprocessing(rec, image.NewPipeline(image.DefaultPreprocessConfig()))
	}

	f.logger.Info("OCR engine ready",
		logger.String("engine", rec.Name()),
		logger.String("language", f.config.Language),
		logger.Int("dpi", f.config.DPI),
	)
	return rec, nil
}

// TextSource returns the embedded text reader.
func (f *ProcessorFactory) TextSource() document.TextSource {
	return pdf.NewTextReader()
}

// NewExtractor builds the hybrid embedded-text / OCR extractor.
func (f *ProcessorFactory) NewExtractor(ctx context.Context) (*pdf.Processor, error) {
	rec, err := f.Recognizer(ctx)
	if err != nil {
		return nil, err
	}

	return pdf.NewProcessor(
		pdf.Config{
			MinTextLength: f.config.MinTextLength,
			DPI:           f.config.DPI,
			MaxWorkers:    f.config.MaxWorkers,
		},
		f.TextSource(),
		pdf.NewPopplerRasterizer(f.config.PdftoppmPath, f.runner),
		rec,
		f.logger.Named("extractor"),
	), nil
}
