package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/document-harvester/internal/repository"
	"github.com/feichai0017/document-harvester/internal/service/document"
	"github.com/feichai0017/document-harvester/internal/utils/validator"
	"github.com/feichai0017/document-harvester/pkg/logger"
	"github.com/feichai0017/document-harvester/pkg/queue"
)

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps service errors onto HTTP status codes; fallback is used for the rest.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, validator.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, queue.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, document.ErrQueueUnavailable):
		return http.StatusServiceUnavailable
	default:
		return fallback
	}
}

// handleError 统一错误处理
func handleError(log logger.Logger, c *gin.Context, status int, message string, err error) {
	fields := []logger.Field{
		logger.String("path", c.Request.URL.Path),
		logger.Int("status", status),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if status >= http.StatusInternalServerError {
		log.Error(message, fields...)
	} else {
		log.Warn(message, fields...)
	}

	response := ErrorResponse{
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(status, response)
}
