package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/document-harvester/internal/agent/harvest"
	"github.com/feichai0017/document-harvester/internal/service/document"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

// PatternHandler serves the rule library and ad-hoc harvesting.
type PatternHandler struct {
	service document.DocumentProcessor
	logger  logger.Logger
}

type AddPatternRequest struct {
	Category string `json:"category" binding:"required"`
	Pattern  string `json:"pattern" binding:"required"`
}

type SuggestRequest struct {
	Selection string `json:"selection" binding:"required"`
}

type TestPatternRequest struct {
	Pattern string `json:"pattern" binding:"required"`
	Sample  string `json:"sample"`
}

type HarvestRequest struct {
	Text string `json:"text"`
}

func NewPatternHandler(service document.DocumentProcessor, logger logger.Logger) *PatternHandler {
	return &PatternHandler{
		service: service,
		logger:  logger,
	}
}

func (h *PatternHandler) List(c *gin.Context) {
	rules := h.service.Patterns()
	c.JSON(http.StatusOK, gin.H{"patterns": rules, "count": len(rules)})
}

// Add 追加自定义规则
func (h *PatternHandler) Add(c *gin.Context) {
	var req AddPatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(h.logger, c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := h.service.AddPattern(req.Category, req.Pattern)
	if err != nil {
		handleError(h.logger, c, http.StatusBadRequest, "Failed to add pattern", err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// Suggest 从选中文本生成规则
func (h *PatternHandler) Suggest(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(h.logger, c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	pattern, err := harvest.SuggestPattern(req.Selection)
	if err != nil {
		handleError(h.logger, c, http.StatusBadRequest, "Failed to suggest pattern", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pattern": pattern})
}

// Test 在样例文本上试运行规则
func (h *PatternHandler) Test(c *gin.Context) {
	var req TestPatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(h.logger, c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	matches, err := harvest.TestPattern(req.Pattern, req.Sample)
	if err != nil {
		handleError(h.logger, c, http.StatusBadRequest, "Invalid pattern", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches, "count": len(matches)})
}

// Harvest 对任意文本执行规则扫描
func (h *PatternHandler) Harvest(c *gin.Context) {
	var req HarvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(h.logger, c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c.JSON(http.StatusOK, h.service.Harvest(req.Text))
}
