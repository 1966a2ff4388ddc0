package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/feichai0017/document-harvester/pkg/logger"
)

// TextractAPI is the subset of the Textract client used here.
type TextractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

type TextractConfig struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	MinConfidence float32
}

// TextractProcessor recognizes page images with AWS Textract.
type TextractProcessor struct {
	client TextractAPI
	logger logger.Logger
	config TextractConfig
}

func NewTextractProcessor(ctx context.Context, cfg TextractConfig, log logger.Logger) (*TextractProcessor, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	// load aws config
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := textract.NewFromConfig(awsCfg, func(o *textract.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewTextractProcessorWithClient(client, cfg, log), nil
}

func NewTextractProcessorWithClient(client TextractAPI, cfg TextractConfig, log logger.Logger) *TextractProcessor {
	if log == nil {
		log = logger.NewNop()
	}
	return &TextractProcessor{client: client, logger: log, config: cfg}
}

func (p *TextractProcessor) Name() string { return "textract" }

func (p *TextractProcessor) Close() error { return nil }

// Recognize returns the LINE blocks of the page joined with newlines.
func (p *TextractProcessor) Recognize(ctx context.Context, data []byte) (string, error) {
	result, err := p.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{
			Bytes: data,
		},
	})
	if err != nil {
		p.logger.Error("Textract request failed", logger.Error(err))
		return "", fmt.Errorf("failed to detect document text: %w", err)
	}

	lines := make([]string, 0, len(result.Blocks))
	dropped := 0
	for _, block := range result.Blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		if block.Confidence != nil && *block.Confidence < p.config.MinConfidence {
			dropped++
			continue
		}
		lines = append(lines, *block.Text)
	}

	if dropped > 0 {
		p.logger.Debug("Dropped low confidence lines",
			logger.Int("dropped", dropped),
			logger.Float64("minConfidence", float64(p.config.MinConfidence)),
		)
	}
	return strings.Join(lines, "\n"), nil
}
