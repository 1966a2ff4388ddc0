package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/feichai0017/document-harvester/internal/agent/document"
)

// ImagePreprocessor 图像预处理接口
type ImagePreprocessor interface {
	Process(img image.Image) (image.Image, error)
}

// 灰度处理器
type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// 降噪处理器
type DenoiseProcessor struct {
	strength float64
}

func NewDenoiseProcessor(strength float64) *DenoiseProcessor {
	return &DenoiseProcessor{strength: strength}
}

func (p *DenoiseProcessor) Process(img image.Image) (image.Image, error) {
	// 使用高斯模糊进行降噪
	return imaging.Blur(img, p.strength), nil
}

// 锐化处理器
type SharpenProcessor struct {
	strength float64
}

func NewSharpenProcessor(strength float64) *SharpenProcessor {
	return &SharpenProcessor{strength: strength}
}

func (p *SharpenProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Sharpen(img, p.strength), nil
}

// 对比度处理器
type ContrastNormalizationProcessor struct {
	percentage float64
}

func NewContrastNormalizationProcessor(percentage float64) *ContrastNormalizationProcessor {
	return &ContrastNormalizationProcessor{percentage: percentage}
}

func (p *ContrastNormalizationProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.AdjustContrast(img, p.percentage), nil
}

// BinarizationProcessor maps every pixel to black or white around a fixed threshold.
type BinarizationProcessor struct {
	threshold uint8
}

func NewBinarizationProcessor(threshold uint8) *BinarizationProcessor {
	return &BinarizationProcessor{threshold: threshold}
}

func (p *BinarizationProcessor) Process(img image.Image) (image.Image, error) {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	binary := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := color.GrayModel.Convert(gray.At(x, y)).(color.Gray).Y
			if v > p.threshold {
				binary.SetGray(x, y, color.Gray{Y: 255})
			} else {
				binary.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return binary, nil
}

// PreprocessConfig 预处理参数
type PreprocessConfig struct {
	DenoiseStrength   float64
	ContrastPercent   float64
	SharpenStrength   float64
	BinarizeThreshold uint8
}

func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		DenoiseStrength:   0.5,
		ContrastPercent:   20,
		SharpenStrength:   0.5,
		BinarizeThreshold: 160,
	}
}

// Pipeline applies preprocessors in order.
type Pipeline []ImagePreprocessor

func NewPipeline(cfg PreprocessConfig) Pipeline {
	return Pipeline{
		NewGrayscaleProcessor(),
		NewDenoiseProcessor(cfg.DenoiseStrength),
		NewContrastNormalizationProcessor(cfg.ContrastPercent),
		NewSharpenProcessor(cfg.SharpenStrength),
		NewBinarizationProcessor(cfg.BinarizeThreshold),
	}
}

func (p Pipeline) Apply(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}
	result := img
	for _, step := range p {
		var err error
		result, err = step.Process(result)
		if err != nil {
			return nil, fmt.Errorf("preprocessing failed: %w", err)
		}
		if result == nil {
			return nil, fmt.Errorf("preprocessor returned nil image")
		}
	}
	return result, nil
}

// PreprocessingRecognizer runs the pipeline on each page image before the wrapped recognizer.
type PreprocessingRecognizer struct {
	next     document.Recognizer
	pipeline Pipeline
}

func WithPreprocessing(next document.Recognizer, pipeline Pipeline) *PreprocessingRecognizer {
	return &PreprocessingRecognizer{next: next, pipeline: pipeline}
}

func (r *PreprocessingRecognizer) Recognize(ctx context.Context, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode page image: %w", err)
	}
	processed, err := r.pipeline.Apply(img)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, processed, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode page image: %w", err)
	}
	return r.next.Recognize(ctx, buf.Bytes())
}

func (r *PreprocessingRecognizer) Name() string {
	return r.next.Name() + "+preprocess"
}

func (r *PreprocessingRecognizer) Close() error {
	return r.next.Close()
}
