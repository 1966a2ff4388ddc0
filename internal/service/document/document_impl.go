package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cfg "github.com/feichai0017/document-harvester/config"
	"github.com/feichai0017/document-harvester/internal/agent"
	docagent "github.com/feichai0017/document-harvester/internal/agent/document"
	"github.com/feichai0017/document-harvester/internal/agent/harvest"
	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/internal/repository"
	"github.com/feichai0017/document-harvester/internal/rules"
	"github.com/feichai0017/document-harvester/internal/utils/validator"
	"github.com/feichai0017/document-harvester/pkg/converters"
	"github.com/feichai0017/document-harvester/pkg/logger"
	"github.com/feichai0017/document-harvester/pkg/queue"
	"github.com/feichai0017/document-harvester/pkg/storage"
)

// ErrQueueUnavailable is returned by upload operations when no queue is configured.
var ErrQueueUnavailable = errors.New("task queue is not configured")

type DocumentService struct {
	extractor docagent.Extractor
	rules     RuleRegistry
	repo      DocumentStore
	storage   storage.Storage
	queue     queue.Queue
	validator *validator.DocumentValidator
	logger    logger.Logger
	config    *ServiceConfig
	closers   []io.Closer
}

type ServiceConfig struct {
	MaxFileSize     int64
	QueuePriority   int
	MaxConcurrent   int
	EventBuffer     int
	ProcessTimeout  time.Duration
	RetentionPeriod time.Duration
}

// DefaultServiceConfig 默认配置
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxFileSize:     50 * 1024 * 1024, // 50MB
		QueuePriority:   2,
		MaxConcurrent:   5,
		EventBuffer:     16,
		ProcessTimeout:  30 * time.Minute,
		RetentionPeriod: 24 * time.Hour,
	}
}

// Option configures optional collaborators.
type Option func(*DocumentService)

// WithQueue enables the upload operations.
func WithQueue(q queue.Queue) Option {
	return func(s *DocumentService) {
		s.queue = q
	}
}

// WithValidator checks uploads before they are stored.
func WithValidator(v *validator.DocumentValidator) Option {
	return func(s *DocumentService) {
		s.validator = v
	}
}

// WithCloser registers a resource released by Close.
func WithCloser(c io.Closer) Option {
	return func(s *DocumentService) {
		s.closers = append(s.closers, c)
	}
}

func NewService(
	extractor docagent.Extractor,
	registry RuleRegistry,
	repo DocumentStore,
	store storage.Storage,
	log logger.Logger,
	config *ServiceConfig,
	opts ...Option,
) *DocumentService {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 1
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := &DocumentService{
		extractor: extractor,
		rules:     registry,
		repo:      repo,
		storage:   store,
		logger:    log,
		config:    config,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetService wires the service from configuration: extractor, rules, sqlite and output storage.
func GetService(ctx context.Context, c *cfg.Config, log logger.Logger, opts ...Option) (*DocumentService, error) {
	// 初始化存储
	store, err := storage.NewStorage(ctx, c, log.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	registry, err := rules.NewRegistry(c.Rules.CustomFile, log.Named("rules"))
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	// 初始化处理器工厂
	factory := agent.NewProcessorFactory(c.Extraction, c.Textract, log)
	extractor, err := factory.NewExtractor(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}

	repo, err := repository.Open(ctx, c.Database.Path, log.Named("repository"))
	if err != nil {
		extractor.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	config := DefaultServiceConfig()
	config.MaxFileSize = c.Server.MaxUploadSize

	v := validator.NewDocumentValidator(log.Named("validator"), &validator.ValidatorConfig{
		MaxFileSize:  c.Server.MaxUploadSize,
		MaxPageCount: c.Server.MaxPages,
	}, factory.TextSource())

	opts = append([]Option{WithValidator(v), WithCloser(extractor), WithCloser(repo)}, opts...)
	return NewService(extractor, registry, repo, store, log.Named("service"), config, opts...), nil
}

// Close releases the extractor, database and any registered resources.
func (s *DocumentService) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// process extracts, harvests and stores one document. The record is returned even when
// persisting it fails; the error reports the persistence failure only.
func (s *DocumentService) process(ctx context.Context, compiled *harvest.Compiled, path string, record *models.Document, outKey string) (*models.Document, models.ExtractionResult, error) {
	started := time.Now()
	res := s.extractor.Extract(ctx, path)
	h := harvestExtraction(compiled, res)

	record.Text = res.Text
	record.OCRUsed = res.OCRUsed
	record.Outcome = res.Outcome
	record.Findings = h.Findings
	record.StatusReason = h.StatusReason
	record.Status = harvest.DocumentStatus(res, h)

	// 提取被取消时不落盘, 避免覆盖已有记录
	if res.Failed() && ctx.Err() != nil {
		return record, res, ctx.Err()
	}

	if key, err := s.storage.Store(ctx, strings.NewReader(res.Text), outKey); err != nil {
		s.logger.Error("Failed to write text output",
			logger.String("filename", record.Filename),
			logger.String("key", outKey),
			logger.Error(err),
		)
	} else {
		record.OutputPath = key
	}

	if err := s.repo.Save(ctx, record); err != nil {
		return record, res, err
	}

	s.logger.Info("Document processed",
		logger.String("id", record.ID),
		logger.String("filename", record.Filename),
		logger.String("status", record.Status),
		logger.Int("findings", len(record.Findings)),
		logger.Bool("ocrUsed", res.OCRUsed),
		logger.Duration("elapsed", time.Since(started)),
	)
	return record, res, nil
}

// harvestExtraction skips rules for failed extractions: their text is a diagnostic.
func harvestExtraction(compiled *harvest.Compiled, res models.ExtractionResult) models.HarvestResult {
	if res.Failed() {
		return models.HarvestResult{
			Findings:     []models.Finding{},
			StatusReason: models.ReasonNoMatch,
		}
	}
	return compiled.Harvest(res.Text)
}

// Rescan re-harvests the stored text with the current rules. The extraction is not repeated.
func (s *DocumentService) Rescan(ctx context.Context, id string) (*models.Document, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	res := models.ExtractionResult{Text: record.Text, OCRUsed: record.OCRUsed, Outcome: record.Outcome}
	h := harvestExtraction(s.rules.Compiled(), res)
	s.logDiagnostics(h.Diagnostics)

	record.Findings = h.Findings
	record.StatusReason = h.StatusReason
	record.Status = harvest.DocumentStatus(res, h)

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("Document rescanned",
		logger.String("id", record.ID),
		logger.String("status", record.Status),
		logger.Int("findings", len(record.Findings)),
	)
	return record, nil
}

// Harvest runs the current rules over text without touching any record.
func (s *DocumentService) Harvest(text string) HarvestReport {
	h := s.rules.Compiled().Harvest(text)
	return HarvestReport{
		Status:        harvest.Label(harvest.Classify(h), false),
		HarvestResult: h,
	}
}

func (s *DocumentService) logDiagnostics(diags []models.RuleDiagnostic) {
	for _, d := range diags {
		s.logger.Warn("Skipping malformed rule",
			logger.String("category", string(d.Category)),
			logger.String("pattern", d.Pattern),
			logger.String("cause", d.Cause),
		)
	}
}

// ProcessFile 校验并存储上传文件, 然后加入处理队列
func (s *DocumentService) ProcessFile(
	ctx context.Context,
	file multipart.File,
	header *multipart.FileHeader,
) (*models.ProcessingTask, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}

	s.logger.Info("Starting file processing",
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size),
	)

	// 验证文件
	if s.validator != nil {
		result, err := s.validator.Validate(file, header.Filename, header.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to validate file: %w", err)
		}
		if err := result.Err(); err != nil {
			s.logger.Warn("File validation failed",
				logger.String("filename", header.Filename),
				logger.Error(err),
			)
			return nil, err
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to rewind file: %w", err)
		}
	}

	taskID := uuid.New().String()
	filename := filepath.Base(header.Filename)
	now := time.Now()

	task := &models.ProcessingTask{
		ID:        taskID,
		Status:    models.StatusPending,
		Type:      queue.TaskTypeDocumentHarvest,
		Priority:  s.config.QueuePriority,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata: map[string]string{
			"filename": filename,
			"size":     strconv.FormatInt(header.Size, 10),
		},
	}

	// 存储文件
	fileKey, err := s.storage.Store(ctx, file, uploadKey(taskID, filename))
	if err != nil {
		s.logger.Error("Failed to store file",
			logger.String("filename", filename),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	queueTask := &queue.Task{
		ID:       taskID,
		Type:     task.Type,
		Priority: task.Priority,
		Payload: queue.TaskPayload{
			FileKey:  fileKey,
			Filename: filename,
			Size:     header.Size,
		},
		Metadata:  task.Metadata,
		CreatedAt: task.CreatedAt,
	}

	// 加入处理队列
	if err := s.queue.Enqueue(ctx, queueTask); err != nil {
		s.logger.Error("Failed to enqueue task",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	// 保存初始状态
	if err := s.queue.SaveFinalStatus(ctx, &queue.TaskStatus{
		TaskID:    taskID,
		Status:    string(models.StatusPending),
		StartedAt: now,
	}); err != nil {
		s.logger.Error("Failed to save initial status",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
	}

	s.logger.Info("File processing task created",
		logger.String("taskId", taskID),
		logger.String("filename", filename),
	)
	return task, nil
}

// ProcessUploads 批量上传, 返回已创建的任务
func (s *DocumentService) ProcessUploads(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error) {
	tasks := make([]*models.ProcessingTask, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxConcurrent)

	for i, header := range files {
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open file %s: %w", header.Filename, err)
			}
			defer file.Close()

			task, err := s.ProcessFile(ctx, file, header)
			if err != nil {
				return fmt.Errorf("failed to process file %s: %w", header.Filename, err)
			}
			tasks[i] = task
			return nil
		})
	}

	err := g.Wait()

	// 保持上传顺序, 去掉失败的位置
	created := make([]*models.ProcessingTask, 0, len(tasks))
	for _, t := range tasks {
		if t != nil {
			created = append(created, t)
		}
	}
	return created, err
}

// HandleDocument runs one queued upload through the pipeline.
func (s *DocumentService) HandleDocument(ctx context.Context, task *queue.Task) error {
	if task == nil || task.Payload.FileKey == "" {
		return fmt.Errorf("invalid task: missing required data")
	}
	if s.queue == nil {
		return ErrQueueUnavailable
	}

	log := s.logger.With(logger.String("taskId", task.ID))
	log.Info("Processing document", logger.String("filename", task.Payload.Filename))

	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:    task.ID,
		Status:    string(models.StatusRunning),
		Progress:  0.1,
		StartedAt: task.CreatedAt,
	})

	path, cleanup, err := s.download(ctx, task.Payload.FileKey)
	if err != nil {
		return s.failTask(ctx, task, err)
	}
	defer cleanup()

	record := &models.Document{
		ID:         task.ID,
		Filename:   task.Payload.Filename,
		SourcePath: task.Payload.FileKey,
	}
	record, res, err := s.process(ctx, s.rules.Compiled(), path, record, resultKey(task.ID, textName(task.Payload.Filename)))
	if err != nil {
		return s.failTask(ctx, task, err)
	}

	// 使用 JSONConverter 转换结果
	processed, err := converters.NewJSONConverter().Convert(record, converters.DocumentMetadata{
		FileName:  task.Payload.Filename,
		FileSize:  task.Payload.Size,
		PageCount: res.Pages,
	})
	if err != nil {
		return s.failTask(ctx, task, err)
	}
	processed.TaskID = task.ID
	processed.Metadata.ProcessingMs = time.Since(task.CreatedAt).Milliseconds()

	data, err := json.Marshal(processed)
	if err != nil {
		return s.failTask(ctx, task, fmt.Errorf("failed to marshal result: %w", err))
	}
	if _, err := s.storage.Store(ctx, strings.NewReader(string(data)), resultKey(task.ID, "result.json")); err != nil {
		return s.failTask(ctx, task, fmt.Errorf("failed to store result: %w", err))
	}

	// 在处理完成后，将最终状态保存到 Redis
	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     string(models.StatusCompleted),
		Progress:   1.0,
		DocumentID: record.ID,
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now(),
	})

	log.Info("Document processing completed",
		logger.String("status", record.Status),
		logger.Int("findings", len(record.Findings)),
	)
	return nil
}

func (s *DocumentService) failTask(ctx context.Context, task *queue.Task, err error) error {
	s.logger.Error("Document processing failed",
		logger.String("taskId", task.ID),
		logger.Error(err),
	)
	s.saveStatus(context.WithoutCancel(ctx), &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     string(models.StatusFailed),
		Error:      err.Error(),
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now(),
	})
	return err
}

func (s *DocumentService) saveStatus(ctx context.Context, status *queue.TaskStatus) {
	if err := s.queue.SaveFinalStatus(ctx, status); err != nil {
		s.logger.Error("Failed to save task status",
			logger.String("taskId", status.TaskID),
			logger.String("status", status.Status),
			logger.Error(err),
		)
	}
}

// download copies a stored object into a temp file; the extractor needs a path.
func (s *DocumentService) download(ctx context.Context, key string) (string, func(), error) {
	reader, err := s.storage.Get(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get file: %w", err)
	}
	defer reader.Close()

	tmp, err := os.CreateTemp("", "harvester-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to download file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to download file: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

// GetProcessingStatus 获取处理状态
func (s *DocumentService) GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	// 确保状态正确映射
	var taskStatus models.ProcessingStatus
	switch status.Status {
	case "active", "running":
		taskStatus = models.StatusRunning
	case "completed":
		taskStatus = models.StatusCompleted
	case "failed":
		taskStatus = models.StatusFailed
	case "cancelled":
		taskStatus = models.StatusCancelled
	default:
		taskStatus = models.StatusPending
	}

	metadata := make(map[string]string)
	if status.DocumentID != "" {
		metadata["documentId"] = status.DocumentID
	}

	return &models.ProcessingTask{
		ID:        status.TaskID,
		Status:    taskStatus,
		Type:      queue.TaskTypeDocumentHarvest,
		Progress:  status.Progress,
		Error:     status.Error,
		Metadata:  metadata,
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}, nil
}

// GetProcessedDocument 获取处理结果
func (s *DocumentService) GetProcessedDocument(ctx context.Context, taskID string) (*converters.ProcessedDocument, error) {
	// 检查任务状态
	status, err := s.GetProcessingStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if status.Status != models.StatusCompleted {
		return nil, fmt.Errorf("task is not completed: %s", status.Status)
	}

	reader, err := s.storage.Get(ctx, resultKey(taskID, "result.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	defer reader.Close()

	var result converters.ProcessedDocument
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

// CancelTask 取消任务
func (s *DocumentService) CancelTask(ctx context.Context, taskID string) error {
	if s.queue == nil {
		return ErrQueueUnavailable
	}
	if err := s.queue.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	s.logger.Info("Task cancelled",
		logger.String("taskId", taskID),
	)
	return nil
}

// CleanupTasks 清理过期文件; olderThan <= 0 时使用配置的保留期
func (s *DocumentService) CleanupTasks(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		olderThan = s.config.RetentionPeriod
	}
	threshold := time.Now().Add(-olderThan)

	if err := s.storage.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}

	s.logger.Info("Completed tasks cleanup",
		logger.Time("threshold", threshold),
	)
	return nil
}

func (s *DocumentService) List(ctx context.Context) ([]*models.Document, error) {
	return s.repo.List(ctx)
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.repo.Get(ctx, id)
}

// Export renders every stored record as an XLSX report.
func (s *DocumentService) Export(ctx context.Context) ([]byte, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return converters.NewXLSXConverter().Export(docs)
}

// Patterns returns the active library in evaluation order.
func (s *DocumentService) Patterns() []models.Rule {
	return s.rules.Library().Rules()
}

func (s *DocumentService) AddPattern(label, pattern string) (models.Rule, error) {
	return s.rules.Add(label, pattern)
}

func uploadKey(taskID, filename string) string {
	return fmt.Sprintf("uploads/%s/%s", taskID, filename)
}

func resultKey(taskID, name string) string {
	return fmt.Sprintf("results/%s/%s", taskID, name)
}

// textName maps "bulletin.pdf" to "bulletin.txt".
func textName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".txt"
}

var _ DocumentProcessor = (*DocumentService)(nil)
