package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-harvester/internal/models"
)

type fakeInfo struct {
	pages int
	err   error
	path  string
}

func (f *fakeInfo) Info(path string) (models.PDFInfo, error) {
	f.path = path
	return models.PDFInfo{Pages: f.pages}, f.err
}

const minimalPDF = "%PDF-1.4\n%fake body\n"

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		body     string
		size     int64
		info     *fakeInfo
		wantCode string
	}{
		{"valid", "a.pdf", minimalPDF, 20, &fakeInfo{pages: 3}, ""},
		{"upper case extension", "A.PDF", minimalPDF, 20, &fakeInfo{pages: 1}, ""},
		{"wrong extension", "a.docx", minimalPDF, 20, &fakeInfo{pages: 1}, "INVALID_FILE_TYPE"},
		{"too large", "a.pdf", minimalPDF, 1 << 30, &fakeInfo{pages: 1}, "FILE_TOO_LARGE"},
		{"not a pdf", "a.pdf", "hello world", 11, &fakeInfo{pages: 1}, "INVALID_PDF"},
		{"truncated header", "a.pdf", "%PD", 3, &fakeInfo{pages: 1}, "INVALID_PDF"},
		{"too many pages", "a.pdf", minimalPDF, 20, &fakeInfo{pages: 501}, "TOO_MANY_PAGES"},
		{"unparseable", "a.pdf", minimalPDF, 20, &fakeInfo{err: errors.New("malformed pdf")}, "UNREADABLE_PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewDocumentValidator(nil, nil, tt.info)
			res, err := v.Validate(strings.NewReader(tt.body), tt.filename, tt.size)
			require.NoError(t, err)

			if tt.wantCode == "" {
				assert.True(t, res.IsValid)
				assert.NoError(t, res.Err())
				assert.Len(t, res.FileInfo.Hash, 64)
				assert.Equal(t, tt.info.pages, res.FileInfo.Pages)
				return
			}
			require.False(t, res.IsValid)
			assert.Equal(t, tt.wantCode, res.Errors[0].Code)
			assert.True(t, errors.Is(res.Err(), ErrInvalidDocument))
		})
	}
}

func TestValidate_SkipsPageCountWithoutReader(t *testing.T) {
	v := NewDocumentValidator(nil, &ValidatorConfig{MaxFileSize: 100}, nil)
	res, err := v.Validate(strings.NewReader(minimalPDF), "a.pdf", 20)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Zero(t, res.FileInfo.Pages)
}

func TestValidate_TempFileRemoved(t *testing.T) {
	info := &fakeInfo{pages: 1}
	v := NewDocumentValidator(nil, nil, info)
	_, err := v.Validate(strings.NewReader(minimalPDF), "a.pdf", 20)
	require.NoError(t, err)
	require.NotEmpty(t, info.path)
	assert.NoFileExists(t, info.path)
}
