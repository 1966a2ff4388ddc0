package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/feichai0017/document-harvester/internal/agent/document"
)

// PopplerRasterizer renders pages with pdftoppm.
type PopplerRasterizer struct {
	binary string
	runner document.Runner
}

func NewPopplerRasterizer(binary string, runner document.Runner) *PopplerRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &PopplerRasterizer{binary: binary, runner: runner}
}

// Rasterize renders one page to a PNG at dpi.
func (r *PopplerRasterizer) Rasterize(ctx context.Context, path string, page, dpi int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "harvester-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.binary,
		"-r", strconv.Itoa(dpi), "-png", "-f", n, "-l", n, "-singlefile", path, prefix)
	if err != nil {
		if document.IsNotFound(err) {
			return nil, fmt.Errorf("%s: %w", r.binary, document.ErrEngineUnavailable)
		}
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(string(errb)))
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d: %w", page, err)
	}
	return data, nil
}
