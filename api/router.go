package api

import (
	"net/http"

	"github.com/fyerfyer/slideai/api/handler"
	"github.com/fyerfyer/slideai/api/middleware"
	"github.com/fyerfyer/slideai/api/model"
	"github.com/gin-gonic/gin"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Preview       *handler.PreviewHandler
	Presentations *handler.PresentationHandler
	Sessions      *handler.SessionHandler
	Exports       *handler.ExportHandler
	Notices       *handler.NoticeHandler
}

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(h Handlers) (*gin.Engine, error) {
	if err := model.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()

	// 应用全局中间件
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(Cors())

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestLogger())
	}

	api := router.Group("/api")
	{
		// 健康检查 - GET /api/health
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		// 无状态预览 - POST /api/preview
		api.POST("/preview", h.Preview.Preview)

		// 导出文件下载 - GET /api/exports/:file_id
		api.GET("/exports/:file_id", h.Exports.DownloadExport)

		user := api.Group("", middleware.RequireUser())
		{
			presentations := user.Group("/presentations")
			{
				presentations.GET("", h.Presentations.List)
				presentations.POST("", h.Presentations.Create)
				presentations.GET("/:id", h.Presentations.Get)
				presentations.PATCH("/:id", h.Presentations.Update)
				presentations.DELETE("/:id", h.Presentations.Delete)
				presentations.GET("/:id/download", h.Presentations.Download)
				presentations.POST("/:id/exports", h.Exports.Export)
				presentations.GET("/:id/exports", h.Exports.ListTasks)
			}

			sessions := user.Group("/sessions")
			{
				sessions.POST("", h.Sessions.Open)
				sessions.GET("/:id", h.Sessions.Get)
				sessions.PUT("/:id/text", h.Sessions.Edit)
				sessions.PUT("/:id/title", h.Sessions.Rename)
				sessions.POST("/:id/save", h.Sessions.Save)
				sessions.DELETE("/:id", h.Sessions.Close)
			}

			// 导出任务状态 - GET /api/tasks/:id
			user.GET("/tasks/:id", h.Exports.GetTask)
			user.GET("/tasks/:id/wait", h.Exports.WaitTask)
			user.DELETE("/tasks/:id", h.Exports.CancelTask)

			// 取走通知 - GET /api/notices
			user.GET("/notices", h.Notices.Drain)
		}
	}

	return router, nil
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID, X-User-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
