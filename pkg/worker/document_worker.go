package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/document-harvester/pkg/logger"
	"github.com/feichai0017/document-harvester/pkg/queue"
)

// DocumentHandler runs the single-document pipeline for a queued task.
type DocumentHandler interface {
	HandleDocument(ctx context.Context, task *queue.Task) error
}

type DocumentWorker struct {
	*BaseWorker
	docService DocumentHandler
}

func NewDocumentWorker(cfg *Config, docService DocumentHandler, log logger.Logger) (*DocumentWorker, error) {
	if docService == nil {
		return nil, fmt.Errorf("document service is required")
	}
	w := &DocumentWorker{
		BaseWorker: newBaseWorker(cfg, log),
		docService: docService,
	}

	// 注册任务处理器
	w.registerHandlers()
	return w, nil
}

func (w *DocumentWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeDocumentHarvest, w.handleDocumentHarvest)
}

func (w *DocumentWorker) handleDocumentHarvest(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		// 格式错误的任务重试也不会成功
		return fmt.Errorf("failed to unmarshal task: %v: %w", err, asynq.SkipRetry)
	}

	if task.ID == "" || task.Payload.FileKey == "" {
		w.logger.Error("Invalid task data",
			logger.String("taskId", task.ID),
			logger.Any("payload", task.Payload),
		)
		return fmt.Errorf("invalid task data: missing required fields: %w", asynq.SkipRetry)
	}

	w.logger.Info("Processing document task",
		logger.String("taskId", task.ID),
		logger.String("filename", task.Payload.Filename),
	)

	w.writeResult(t, `{"status":"running","progress":0}`)

	if err := w.docService.HandleDocument(ctx, &task); err != nil {
		w.writeResult(t, fmt.Sprintf(`{"status":"failed","error":%q}`, err.Error()))
		return err
	}

	w.writeResult(t, `{"status":"completed","progress":1}`)
	return nil
}

// writeResult 写入 asynq 结果, 测试中构造的任务没有 ResultWriter
func (w *DocumentWorker) writeResult(t *asynq.Task, body string) {
	rw := t.ResultWriter()
	if rw == nil {
		return
	}
	if _, err := rw.Write([]byte(body)); err != nil {
		w.logger.Error("Failed to write task result", logger.Error(err))
	}
}

func (w *DocumentWorker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
