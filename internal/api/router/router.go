package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classroom-attendance/config"
	"classroom-attendance/internal/api/handler"
	"classroom-attendance/internal/api/middleware"
	"classroom-attendance/pkg/metrics"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil（Redis 不可用）时限流中间件降级放行
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	limiter middleware.RateLimiter,
	m *metrics.Metrics,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders(strings.HasPrefix(cfg.Server.BaseURL, "https://")))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter, cfg.RateLimit.Limit, cfg.RateLimit.Window))
	{
		// 学生与花名册模块
		students := v1.Group("/students")
		{
			students.GET("", h.Student.ListStudents)
			students.POST("", h.Student.CreateStudent)
			students.POST("/bulk", h.Student.BulkCreateStudents)
			students.POST("/import", h.Student.ImportStudents)
			students.GET("/export", h.Student.ExportStudents)
			students.GET("/template", h.Student.DownloadTemplate)
			students.PUT("/:id", h.Student.UpdateStudent)
			students.DELETE("/:id", h.Student.DeleteStudent)
		}

		// 考勤模块
		attendance := v1.Group("/attendance")
		{
			attendance.GET("", h.Attendance.ListAttendance)
			attendance.GET("/hours", h.Attendance.GetDayHours)
			attendance.GET("/stats", h.Attendance.GetStats)
			attendance.PUT("", h.Attendance.MarkAttendance)
			attendance.POST("/bulk", h.Attendance.BulkMarkAttendance)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/attendance", h.Export.ExportAttendance)
		}

		// 运维
		v1.POST("/maintenance/sweep-orphans", h.Attendance.SweepOrphans)
	}

	return r
}
