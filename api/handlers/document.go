package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/document-harvester/internal/models"
	"github.com/feichai0017/document-harvester/internal/service/document"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DocumentHandler struct {
	service document.DocumentProcessor
	logger  logger.Logger
}

// ProcessResponse 定义处理响应结构
type ProcessResponse struct {
	TaskID    string `json:"taskId"`
	Status    string `json:"status"`
	Filename  string `json:"filename"`
	FileSize  int64  `json:"fileSize"`
	CreatedAt string `json:"createdAt"`
}

func NewDocumentHandler(service document.DocumentProcessor, logger logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		logger:  logger,
	}
}

func toProcessResponse(task *models.ProcessingTask, size int64) ProcessResponse {
	return ProcessResponse{
		TaskID:    task.ID,
		Status:    string(task.Status),
		Filename:  task.Metadata["filename"],
		FileSize:  size,
		CreatedAt: task.CreatedAt.Format(time.RFC3339),
	}
}

// ProcessDocument 上传单个文档
func (h *DocumentHandler) ProcessDocument(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid file upload", err)
		return
	}
	defer file.Close()

	task, err := h.service.ProcessFile(c.Request.Context(), file, header)
	if err != nil {
		h.handleError(c, statusFor(err, http.StatusInternalServerError), "Failed to process file", err)
		return
	}

	c.JSON(http.StatusAccepted, toProcessResponse(task, header.Size))
}

// ProcessBatch 批量上传文档
func (h *DocumentHandler) ProcessBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid form data", err)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		h.handleError(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	tasks, err := h.service.ProcessUploads(c.Request.Context(), files)
	if err != nil && len(tasks) == 0 {
		h.handleError(c, statusFor(err, http.StatusInternalServerError), "Failed to process files", err)
		return
	}

	sizes := make(map[string]int64, len(files))
	for _, f := range files {
		sizes[f.Filename] = f.Size
	}
	responses := make([]ProcessResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = toProcessResponse(task, sizes[task.Metadata["filename"]])
	}

	body := gin.H{
		"message": fmt.Sprintf("Processing %d documents", len(tasks)),
		"tasks":   responses,
	}
	if err != nil {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusAccepted, body)
}

// GetStatus 获取处理状态
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("taskId")

	task, err := h.service.GetProcessingStatus(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, statusFor(err, http.StatusInternalServerError), "Failed to get status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"taskId":    task.ID,
		"status":    string(task.Status),
		"progress":  task.Progress,
		"error":     task.Error,
		"metadata":  task.Metadata,
		"createdAt": task.CreatedAt.Format(time.RFC3339),
		"updatedAt": task.UpdatedAt.Format(time.RFC3339),
	})
}

// DownloadResult 下载处理结果
func (h *DocumentHandler) DownloadResult(c *gin.Context) {
	taskID := c.Param("taskId")

	result, err := h.service.GetProcessedDocument(c.Request.Context(), taskID)
	if err != nil {
		h.handleError(c, statusFor(err, http.StatusConflict), "Failed to get result", err)
		return
	}

	// 将结果转换为 JSON
	resultJSON, err := json.Marshal(result)
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to serialize result", err)
		return
	}

	filename := fmt.Sprintf("result_%s.json", taskID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/json", resultJSON)
}

// CancelTask 取消处理任务
func (h *DocumentHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("taskId")

	if err := h.service.CancelTask(c.Request.Context(), taskID); err != nil {
		h.handleError(c, statusFor(err, http.StatusInternalServerError), "Failed to cancel task", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}

// List 所有文档记录
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.service.List(c.Request.Context())
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to list documents", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, statusFor(err, http.StatusInternalServerError), "Failed to get document", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Rescan 用当前规则重新扫描已保存的文本
func (h *DocumentHandler) Rescan(c *gin.Context) {
	doc, err := h.service.Rescan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, statusFor(err, http.StatusInternalServerError), "Failed to rescan document", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Export 导出 Excel 报表
func (h *DocumentHandler) Export(c *gin.Context) {
	data, err := h.service.Export(c.Request.Context())
	if err != nil {
		h.handleError(c, http.StatusInternalServerError, "Failed to export documents", err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=documents.xlsx")
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *DocumentHandler) handleError(c *gin.Context, status int, message string, err error) {
	handleError(h.logger, c, status, message, err)
}
