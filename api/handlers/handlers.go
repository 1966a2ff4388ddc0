package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/document-harvester/internal/service/document"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

type Handlers struct {
	Document *DocumentHandler
	Pattern  *PatternHandler
	started  time.Time
}

func NewHandlers(
	documentService document.DocumentProcessor,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		Document: NewDocumentHandler(documentService, logger),
		Pattern:  NewPatternHandler(documentService, logger),
		started:  time.Now(),
	}
}

// Health 健康检查
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
