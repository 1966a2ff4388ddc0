package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/feichai0017/document-harvester/internal/models"
)

// TextReader reads the embedded text layer with ledongthuc/pdf.
type TextReader struct{}

func NewTextReader() *TextReader {
	return &TextReader{}
}

// PageTexts returns the plain text of every page. A page without content yields "".
func (t *TextReader) PageTexts(ctx context.Context, path string) (texts []string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	// 解析器遇到损坏的结构时会 panic
	defer func() {
		if rec := recover(); rec != nil {
			texts = nil
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	numPages := r.NumPage()
	texts = make([]string, 0, numPages)
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("failed to get text from page %d: %w", i, err)
		}
		texts = append(texts, text)
	}

	return texts, nil
}

// Info reads the page count and the trailer Info dictionary.
func (t *TextReader) Info(path string) (info models.PDFInfo, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return models.PDFInfo{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	defer func() {
		if rec := recover(); rec != nil {
			info = models.PDFInfo{}
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	info.Pages = r.NumPage()

	trailer := r.Trailer()
	if trailer.IsNull() {
		return info, nil
	}
	meta := trailer.Key("Info")
	if meta.IsNull() {
		return info, nil
	}
	if title := meta.Key("Title"); !title.IsNull() {
		info.Title = strings.TrimSpace(title.Text())
	}
	if author := meta.Key("Author"); !author.IsNull() {
		info.Author = strings.TrimSpace(author.Text())
	}

	return info, nil
}
