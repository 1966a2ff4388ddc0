package image

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/feichai0017/document-harvester/internal/agent/document"
)

// CLIProcessor recognizes page images with the tesseract executable.
type CLIProcessor struct {
	binary   string
	language string
	dpi      int
	runner   document.Runner
	lookPath func(string) (string, error)
}

func NewCLIProcessor(binary, language string, dpi int, runner document.Runner) *CLIProcessor {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &CLIProcessor{
		binary:   binary,
		language: language,
		dpi:      dpi,
		runner:   runner,
		lookPath: exec.LookPath,
	}
}

func (p *CLIProcessor) Name() string { return "tesseract" }

func (p *CLIProcessor) Close() error { return nil }

// Recognize writes the image to a temp file and runs `tesseract <png> stdout -l <lang>`.
func (p *CLIProcessor) Recognize(ctx context.Context, data []byte) (string, error) {
	if _, err := p.lookPath(p.binary); err != nil {
		return "", fmt.Errorf("%s: %w", p.binary, document.ErrEngineUnavailable)
	}

	tmpDir, err := os.MkdirTemp("", "harvester-ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imgPath := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(imgPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write page image: %w", err)
	}

	args := []string{imgPath, "stdout", "-l", p.language}
	if p.dpi > 0 {
		args = append(args, "--dpi", strconv.Itoa(p.dpi))
	}
	out, errb, err := p.runner.Run(ctx, p.binary, args...)
	if err != nil {
		if document.IsNotFound(err) {
			return "", fmt.Errorf("%s: %w", p.binary, document.ErrEngineUnavailable)
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}
