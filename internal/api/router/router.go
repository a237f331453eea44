package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"save-serve/backend/config"
	"save-serve/backend/internal/api/handler"
	"save-serve/backend/internal/api/middleware"
	"save-serve/backend/pkg/jwt"
	"save-serve/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 就餐参与模块
		participation := v1.Group("/participation")
		{
			// 学生侧
			participation.POST("/selections", middleware.RoleAuth("student"), h.Participation.SubmitSelection)
			participation.GET("/me", middleware.RoleAuth("student"), h.Participation.GetMyRecord)
			participation.GET("/me/calendar", middleware.RoleAuth("student"), h.Participation.GetMyCalendar)

			// 周菜单只读视图（学生选餐前查看，店主核对目录）
			participation.GET("/menu", middleware.RoleAuth("student", "owner", "admin"), h.Participation.GetWeeklyMenu)

			// 店主侧（扫码端加滑动窗口限流，抑制扫码枪连环触发）
			participation.POST("/redeem",
				middleware.RoleAuth("owner", "admin"),
				middleware.RateLimit(rdb, 30, 10*time.Second),
				h.Participation.Redeem)
			participation.GET("/status", middleware.RoleAuth("owner", "admin"), h.Participation.GetDailyStatus)
			participation.GET("/counts", middleware.RoleAuth("owner", "admin"), h.Participation.GetAggregateCounts)
			participation.PUT("/consumed", middleware.RoleAuth("owner", "admin"), h.Participation.BulkSetConsumed)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/daily-status", middleware.RoleAuth("owner", "admin"), h.Export.ExportDailyStatus)
		}

		// 运维模块
		admin := v1.Group("/admin")
		{
			admin.POST("/retention/sweep", middleware.RoleAuth("admin"), h.Participation.SweepExpired)
		}
	}

	return r
}

