package document

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

const ocrUnavailableWarning = "Tesseract is not installed or not in your system's PATH. OCR will fail."

// ProcessBatch processes paths in order on a single worker goroutine.
// For each document it sends one EventProgress and one EventResult, and it ends
// with one EventFinished before closing the channel. Cancelling ctx stops the
// batch between documents. Callers must drain the channel; a caller that stops
// reading must cancel ctx, after which undeliverable events are dropped.
func (s *DocumentService) ProcessBatch(ctx context.Context, paths []string) <-chan Event {
	events := make(chan Event, s.config.EventBuffer)
	go func() {
		defer close(events)
		s.runBatch(ctx, paths, events)
	}()
	return events
}

func (s *DocumentService) runBatch(ctx context.Context, paths []string, events chan<- Event) {
	total := len(paths)

	// 整批使用同一个规则快照
	compiled := s.rules.Compiled()
	diags := compiled.Diagnostics()
	s.logDiagnostics(diags)

	summary := &BatchSummary{Total: total, Diagnostics: diags}
	warned := false

	s.logger.Info("Batch started", logger.Int("documents", total))

	for i, path := range paths {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		record := localRecord(path)
		if !send(ctx, events, Event{
			Type:     EventProgress,
			Index:    i + 1,
			Total:    total,
			Message:  fmt.Sprintf("Processing %s...", record.Filename),
			Progress: fraction(i, total),
		}) {
			s.logAbandoned(summary)
			return
		}

		record, res, err := s.process(ctx, compiled, path, record, textName(record.Filename))
		interrupted := err != nil && ctx.Err() != nil
		if err != nil && !interrupted {
			s.logger.Error("Failed to save document",
				logger.String("filename", record.Filename),
				logger.Error(err),
			)
		}

		if res.Outcome == models.OutcomeOCRUnavailable && !warned {
			warned = true
			if !send(ctx, events, Event{Type: EventWarning, Index: i + 1, Total: total, Message: ocrWarning(res)}) {
				s.logAbandoned(summary)
				return
			}
		}

		summary.count(record)
		if !send(ctx, events, Event{
			Type:     EventResult,
			Index:    i + 1,
			Total:    total,
			Message:  record.Status,
			Progress: fraction(i+1, total),
			Document: record,
		}) {
			s.logAbandoned(summary)
			return
		}

		if interrupted {
			summary.Cancelled = true
			break
		}
	}

	msg := "Processing complete."
	if summary.Cancelled {
		msg = "Processing cancelled."
	}

	s.logger.Info("Batch finished",
		logger.Int("processed", summary.Processed),
		logger.Int("pass", summary.Pass),
		logger.Int("review", summary.Review),
		logger.Int("errors", summary.Errors),
		logger.Bool("cancelled", summary.Cancelled),
	)

	if !send(ctx, events, Event{Type: EventFinished, Total: total, Message: msg, Progress: 1, Summary: summary}) {
		s.logAbandoned(summary)
	}
}

func (s *DocumentService) logAbandoned(summary *BatchSummary) {
	s.logger.Warn("Batch abandoned, events are no longer read",
		logger.Int("processed", summary.Processed),
		logger.Int("documents", summary.Total),
	)
}

// send delivers ev unless the buffer is full and ctx is already done.
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	default:
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// ocrWarning names the missing tool when the extractor reported one.
func ocrWarning(res models.ExtractionResult) string {
	if res.Diagnostic == "" {
		return ocrUnavailableWarning
	}
	return fmt.Sprintf("OCR is unavailable (%s). Documents without embedded text will need review.", res.Diagnostic)
}

func fraction(done, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(done) / float64(total)
}

// LocalID derives a stable record id from a file path, so scanning the same file again
// updates its record instead of adding one.
func LocalID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(abs))).String()
}

func localRecord(path string) *models.Document {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &models.Document{
		ID:         LocalID(abs),
		Filename:   filepath.Base(path),
		SourcePath: abs,
	}
}

// ExpandPaths replaces every directory argument by the PDF files it contains, sorted by name.
// Subdirectories are walked only when recursive is set. File arguments are kept as given.
func ExpandPaths(args []string, recursive bool) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".pdf") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}
