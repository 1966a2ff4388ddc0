package validator

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

// ErrInvalidDocument wraps every rejection reported by Validate.
var ErrInvalidDocument = errors.New("invalid document")

var pdfMagic = []byte("%PDF-")

// InfoReader reads page counts; satisfied by the pdf text reader.
type InfoReader interface {
	Info(path string) (models.PDFInfo, error)
}

// DocumentValidator 文档验证器
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
	info   InfoReader
}

// ValidatorConfig 验证器配置
type ValidatorConfig struct {
	MaxFileSize  int64 // 最大文件大小（字节）
	MaxPageCount int   // PDF最大页数, 0 表示不检查
}

// ValidationResult 验证结果
type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	FileInfo FileInfo          `json:"fileInfo"`
}

// ValidationError 验证错误
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// FileInfo 文件信息
type FileInfo struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
	Hash      string `json:"hash"`
	Pages     int    `json:"pages,omitempty"`
}

// Err returns nil for a valid result, otherwise an ErrInvalidDocument listing every problem.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}

// NewDocumentValidator 创建新的文档验证器
func NewDocumentValidator(log logger.Logger, config *ValidatorConfig, info InfoReader) *DocumentValidator {
	if config == nil {
		config = &ValidatorConfig{
			MaxFileSize:  50 * 1024 * 1024, // 50MB
			MaxPageCount: 500,
		}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &DocumentValidator{
		logger: log,
		config: config,
		info:   info,
	}
}

// ValidateFile 验证上传的文件
func (v *DocumentValidator) ValidateFile(header *multipart.FileHeader) (*ValidationResult, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return v.Validate(f, header.Filename, header.Size)
}

// Validate checks name, size, header bytes and page count of the document read from r.
func (v *DocumentValidator) Validate(r io.Reader, filename string, size int64) (*ValidationResult, error) {
	result := &ValidationResult{
		IsValid: true,
		Errors:  make([]ValidationError, 0),
		FileInfo: FileInfo{
			Filename:  filename,
			Size:      size,
			Extension: strings.ToLower(filepath.Ext(filename)),
		},
	}

	// 基本验证
	result.add(v.performBasicValidation(result.FileInfo)...)
	if !result.IsValid {
		return result, nil
	}

	// 页数检查需要文件路径, 先落盘到临时文件
	tmp, err := os.CreateTemp("", "harvester-validate-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	hash := sha256.New()
	head := &headBuffer{limit: len(pdfMagic)}
	if _, err := io.Copy(io.MultiWriter(tmp, hash, head), r); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	result.FileInfo.Hash = hex.EncodeToString(hash.Sum(nil))

	if !bytes.Equal(head.buf, pdfMagic) {
		result.add(ValidationError{
			Code:    "INVALID_PDF",
			Message: "File does not start with a PDF header",
			Field:   "content",
		})
		return result, nil
	}

	if v.info != nil && v.config.MaxPageCount > 0 {
		if err := tmp.Close(); err != nil {
			return nil, fmt.Errorf("failed to flush temp file: %w", err)
		}
		info, err := v.info.Info(tmp.Name())
		if err != nil {
			result.add(ValidationError{
				Code:    "UNREADABLE_PDF",
				Message: fmt.Sprintf("PDF could not be parsed: %v", err),
				Field:   "content",
			})
			return result, nil
		}
		result.FileInfo.Pages = info.Pages
		if info.Pages > v.config.MaxPageCount {
			result.add(ValidationError{
				Code:    "TOO_MANY_PAGES",
				Message: fmt.Sprintf("PDF has %d pages, maximum is %d", info.Pages, v.config.MaxPageCount),
				Field:   "pages",
			})
		}
	}

	if !result.IsValid {
		v.logger.Debug("Document rejected",
			logger.String("filename", filename),
			logger.Int("problems", len(result.Errors)),
		)
	}
	return result, nil
}

// 基本验证
func (v *DocumentValidator) performBasicValidation(fileInfo FileInfo) []ValidationError {
	var errs []ValidationError

	if fileInfo.Extension != ".pdf" {
		errs = append(errs, ValidationError{
			Code:    "INVALID_FILE_TYPE",
			Message: fmt.Sprintf("File type %s is not allowed", fileInfo.Extension),
			Field:   "extension",
		})
	}

	if v.config.MaxFileSize > 0 && fileInfo.Size > v.config.MaxFileSize {
		errs = append(errs, ValidationError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum limit of %d bytes", v.config.MaxFileSize),
			Field:   "size",
		})
	}

	return errs
}

func (r *ValidationResult) add(errs ...ValidationError) {
	if len(errs) == 0 {
		return
	}
	r.IsValid = false
	r.Errors = append(r.Errors, errs...)
}

// headBuffer keeps the first limit bytes written to it.
type headBuffer struct {
	buf   []byte
	limit int
}

func (h *headBuffer) Write(p []byte) (int, error) {
	if n := h.limit - len(h.buf); n > 0 {
		if n > len(p) {
			n = len(p)
		}
		h.buf = append(h.buf, p[:n]...)
	}
	return len(p), nil
}
