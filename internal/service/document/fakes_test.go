package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-harvester/internal/agent/harvest"
	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/internal/repository"
	"github.com/feichai0017/document-harvester/pkg/queue"
)

type fakeExtractor struct {
	mu       sync.Mutex
	results  map[string]models.ExtractionResult // by base name
	fallback models.ExtractionResult
	onCall   func(path string)
	calls    []string
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) models.ExtractionResult {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook(path)
	}
	if res, ok := f.results[filepath.Base(path)]; ok {
		return res
	}
	return f.fallback
}

type fakeRegistry struct {
	mu  sync.Mutex
	lib models.RuleLibrary
}

func newFakeRegistry(rules ...models.Rule) *fakeRegistry {
	return &fakeRegistry{lib: harvest.Builtin().With(rules...)}
}

func (r *fakeRegistry) Library() models.RuleLibrary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lib
}

func (r *fakeRegistry) Compiled() *harvest.Compiled {
	return harvest.Compile(r.Library())
}

func (r *fakeRegistry) Add(label, pattern string) (models.Rule, error) {
	rule := models.Rule{Category: models.NormalizeCategory(label), Pattern: pattern, Source: models.SourceCustom}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lib = r.lib.With(rule)
	return rule, nil
}

type fakeRepo struct {
	mu    sync.Mutex
	docs  map[string]models.Document
	order []string
	saves int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: make(map[string]models.Document)}
}

func (r *fakeRepo) Save(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		r.order = append(r.order, doc.ID)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.UpdatedAt = time.Now()
	cp := *doc
	cp.Findings = append([]models.Finding(nil), doc.Findings...)
	r.docs[doc.ID] = cp
	r.saves++
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, repository.ErrNotFound)
	}
	return &doc, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Document, 0, len(r.order))
	for _, id := range r.order {
		doc := r.docs[id]
		out = append(out, &doc)
	}
	return out, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return key, nil
}

func (s *fakeStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) CleanupBefore(ctx context.Context, threshold time.Time) error {
	return nil
}

func (s *fakeStorage) object(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return string(data), ok
}

type fakeQueue struct {
	mu        sync.Mutex
	enqueued  []*queue.Task
	statuses  map[string][]queue.TaskStatus
	cancelled []string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{statuses: make(map[string][]queue.TaskStatus)}
}

func (q *fakeQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, task)
	return nil
}

func (q *fakeQueue) GetTaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	all := q.statuses[taskID]
	if len(all) == 0 {
		return nil, fmt.Errorf("%s: %w", taskID, queue.ErrTaskNotFound)
	}
	last := all[len(all)-1]
	return &last, nil
}

func (q *fakeQueue) CancelTask(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancelled = append(q.cancelled, taskID)
	return nil
}

func (q *fakeQueue) SaveFinalStatus(ctx context.Context, status *queue.TaskStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[status.TaskID] = append(q.statuses[status.TaskID], *status)
	return nil
}

func (q *fakeQueue) history(taskID string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, s := range q.statuses[taskID] {
		out = append(out, s.Status)
	}
	return out
}

func newFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func collect(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}
