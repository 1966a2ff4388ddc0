package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-harvester/api/handlers"
	"github.com/feichai0017/document-harvester/internal/agent/harvest"
	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/internal/repository"
	"github.com/feichai0017/document-harvester/internal/service/document"
	"github.com/feichai0017/document-harvester/internal/utils/validator"
	"github.com/feichai0017/document-harvester/pkg/converters"
	"github.com/feichai0017/document-harvester/pkg/logger"
	"github.com/feichai0017/document-harvester/pkg/queue"
)

type fakeService struct {
	docs       map[string]*models.Document
	uploads    []string
	processErr error
	rules      []models.Rule
	cancelled  []string
}

func newFakeService() *fakeService {
	return &fakeService{
		docs: map[string]*models.Document{
			"d1": {ID: "d1", Filename: "a.pdf", Status: "Pass", StatusReason: models.ReasonDataFound},
		},
		rules: harvest.Builtin().Rules(),
	}
}

func (f *fakeService) ProcessBatch(ctx context.Context, paths []string) <-chan document.Event {
	ch := make(chan document.Event, 1)
	ch <- document.Event{Type: document.EventFinished, Summary: &document.BatchSummary{}}
	close(ch)
	return ch
}

func (f *fakeService) Rescan(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, repository.ErrNotFound)
	}
	doc.Status = "Pass (OCR)"
	return doc, nil
}

func (f *fakeService) Harvest(text string) document.HarvestReport {
	h := harvest.Harvest(text, harvest.Builtin())
	return document.HarvestReport{Status: harvest.Label(harvest.Classify(h), false), HarvestResult: h}
}

func (f *fakeService) ProcessFile(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.ProcessingTask, error) {
	if f.processErr != nil {
		return nil, f.processErr
	}
	f.uploads = append(f.uploads, header.Filename)
	return &models.ProcessingTask{
		ID:        "task-" + header.Filename,
		Status:    models.StatusPending,
		Metadata:  map[string]string{"filename": header.Filename},
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeService) ProcessUploads(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error) {
	var tasks []*models.ProcessingTask
	for _, h := range files {
		task, err := f.ProcessFile(ctx, nil, h)
		if err != nil {
			return tasks, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (f *fakeService) GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	if taskID != "t1" {
		return nil, fmt.Errorf("failed to get task status: %w", queue.ErrTaskNotFound)
	}
	return &models.ProcessingTask{ID: "t1", Status: models.StatusCompleted, Progress: 1, Metadata: map[string]string{"documentId": "t1"}}, nil
}

func (f *fakeService) HandleDocument(ctx context.Context, task *queue.Task) error {
	return nil
}

func (f *fakeService) GetProcessedDocument(ctx context.Context, taskID string) (*converters.ProcessedDocument, error) {
	if taskID != "t1" {
		return nil, errors.New("task is not completed: pending")
	}
	return &converters.ProcessedDocument{TaskID: "t1", DocumentID: "t1", Status: "Pass"}, nil
}

func (f *fakeService) CancelTask(ctx context.Context, taskID string) error {
	f.cancelled = append(f.cancelled, taskID)
	return nil
}

func (f *fakeService) List(ctx context.Context) ([]*models.Document, error) {
	return []*models.Document{f.docs["d1"]}, nil
}

func (f *fakeService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, repository.ErrNotFound)
	}
	return doc, nil
}

func (f *fakeService) Export(ctx context.Context) ([]byte, error) {
	return []byte("PK-fake"), nil
}

func (f *fakeService) Patterns() []models.Rule {
	return f.rules
}

func (f *fakeService) AddPattern(label, pattern string) (models.Rule, error) {
	if pattern == "(" {
		return models.Rule{}, errors.New("invalid pattern: missing closing )")
	}
	rule := models.Rule{Category: models.NormalizeCategory(label), Pattern: pattern, Source: models.SourceCustom}
	f.rules = append(f.rules, rule)
	return rule, nil
}

func newRouter(svc document.DocumentProcessor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log := logger.NewTestLogger()
	SetupRoutes(r, handlers.NewHandlers(svc, log), log, Options{MaxUploadSize: 1 << 20})
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func upload(r http.Handler, path, field string, names ...string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range names {
		part, _ := mw.CreateFormFile(field, name)
		part.Write([]byte("%PDF-1.4"))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	w := doJSON(newRouter(newFakeService()), http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestProcessDocument(t *testing.T) {
	svc := newFakeService()
	w := upload(newRouter(svc), "/api/v1/documents/process", "file", "a.pdf")

	assert.Equal(t, http.StatusAccepted, w.Code)
	body := decode(t, w)
	assert.Equal(t, "task-a.pdf", body["taskId"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, []string{"a.pdf"}, svc.uploads)
}

func TestProcessDocument_Errors(t *testing.T) {
	svc := newFakeService()
	r := newRouter(svc)

	w := upload(r, "/api/v1/documents/process", "wrong", "a.pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.processErr = fmt.Errorf("%w: File type .txt is not allowed", validator.ErrInvalidDocument)
	w = upload(r, "/api/v1/documents/process", "file", "a.txt")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "not allowed")

	svc.processErr = document.ErrQueueUnavailable
	w = upload(r, "/api/v1/documents/process", "file", "a.pdf")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProcessBatch(t *testing.T) {
	svc := newFakeService()
	r := newRouter(svc)

	w := upload(r, "/api/v1/documents/batch", "files", "1.pdf", "2.pdf")
	assert.Equal(t, http.StatusAccepted, w.Code)
	tasks := decode(t, w)["tasks"].([]any)
	assert.Len(t, tasks, 2)

	w = upload(r, "/api/v1/documents/batch", "other", "1.pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusDownloadCancel(t *testing.T) {
	svc := newFakeService()
	r := newRouter(svc)

	w := doJSON(r, http.MethodGet, "/api/v1/documents/status/t1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode(t, w)["status"])

	w = doJSON(r, http.MethodGet, "/api/v1/documents/status/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/documents/download/t1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "result_t1.json")

	w = doJSON(r, http.MethodGet, "/api/v1/documents/download/t2", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodDelete, "/api/v1/documents/task/t3", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"t3"}, svc.cancelled)
}

func TestDocumentRecords(t *testing.T) {
	r := newRouter(newFakeService())

	w := doJSON(r, http.MethodGet, "/api/v1/documents", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = doJSON(r, http.MethodGet, "/api/v1/documents/d1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a.pdf", decode(t, w)["filename"])

	w = doJSON(r, http.MethodGet, "/api/v1/documents/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/documents/d1/rescan", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pass (OCR)", decode(t, w)["status"])

	w = doJSON(r, http.MethodPost, "/api/v1/documents/missing/rescan", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/documents/export", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Equal(t, "PK-fake", w.Body.String())
}

func TestHarvestEndpoint(t *testing.T) {
	r := newRouter(newFakeService())

	w := doJSON(r, http.MethodPost, "/api/v1/harvest", `{"text":"Service bulletin for TASKalfa 3554ci. Bulletin ID is SB-45."}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Pass", body["status"])
	assert.Equal(t, models.ReasonDataFound, body["statusReason"])
	assert.Len(t, body["findings"], 2)

	w = doJSON(r, http.MethodPost, "/api/v1/harvest", `{"text":"No identifiers here."}`)
	body = decode(t, w)
	assert.Equal(t, "Needs Review", body["status"])
	assert.Empty(t, body["findings"])

	w = doJSON(r, http.MethodPost, "/api/v1/harvest", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatternEndpoints(t *testing.T) {
	svc := newFakeService()
	r := newRouter(svc)
	before := len(svc.rules)

	w := doJSON(r, http.MethodGet, "/api/v1/patterns", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(before), decode(t, w)["count"])

	w = doJSON(r, http.MethodPost, "/api/v1/patterns", `{"category":"Author","pattern":"Author:\\s*\\w+"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "author", decode(t, w)["category"])
	assert.Len(t, svc.rules, before+1)

	w = doJSON(r, http.MethodPost, "/api/v1/patterns", `{"category":"model","pattern":"("}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/patterns", `{"category":"model"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/patterns/suggest", `{"selection":"SB-45"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["pattern"])

	w = doJSON(r, http.MethodPost, "/api/v1/patterns/test", `{"pattern":"sb-\\d+","sample":"SB-45 and SB-46"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])

	w = doJSON(r, http.MethodPost, "/api/v1/patterns/test", `{"pattern":"(","sample":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(newFakeService())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
