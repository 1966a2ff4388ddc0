package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/document-harvester/api/handlers"
	"github.com/feichai0017/document-harvester/api/middleware"
	"github.com/feichai0017/document-harvester/pkg/logger"
)

// Options 路由配置
type Options struct {
	AllowOrigins  []string
	MaxUploadSize int64
}

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, log logger.Logger, opts Options) {
	// 全局中间件
	r.Use(middleware.CORS(opts.AllowOrigins...))
	r.Use(middleware.RequestLogger(log))

	// API 版本组
	v1 := r.Group("/api/v1")

	// 健康检查
	v1.GET("/health", h.Health)

	// 文档处理路由组
	docs := v1.Group("/documents")
	{
		// 上传体积按 multipart 额外开销放宽 1MB
		var limit int64
		if opts.MaxUploadSize > 0 {
			limit = opts.MaxUploadSize + 1<<20
		}
		upload := middleware.MaxBodySize(limit)
		docs.POST("/process", upload, h.Document.ProcessDocument)
		docs.POST("/batch", h.Document.ProcessBatch)
		docs.GET("/status/:taskId", h.Document.GetStatus)
		docs.GET("/download/:taskId", h.Document.DownloadResult)
		docs.DELETE("/task/:taskId", h.Document.CancelTask)

		docs.GET("", h.Document.List)
		docs.GET("/export", h.Document.Export)
		docs.GET("/:id", h.Document.Get)
		docs.POST("/:id/rescan", h.Document.Rescan)
	}

	v1.POST("/harvest", h.Pattern.Harvest)

	patterns := v1.Group("/patterns")
	{
		patterns.GET("", h.Pattern.List)
		patterns.POST("", h.Pattern.Add)
		patterns.POST("/suggest", h.Pattern.Suggest)
		patterns.POST("/test", h.Pattern.Test)
	}
}
