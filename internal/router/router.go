package router

import (
	"github.com/fenxiao-next/internal/config"
	adminhandlers "github.com/fenxiao-next/internal/http/handlers/admin"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		admin := apiV1.Group("/admin")
		{
			// 佣金台账
			admin.GET("/commissions", adminHandler.GetCommissions)
			admin.GET("/commissions/:id", adminHandler.GetCommission)
			admin.POST("/commissions/:id/reject", adminHandler.RejectCommission)
			admin.POST("/commissions/process-eligible", adminHandler.ProcessEligibleCommissions)

			// 订单侧佣金操作
			admin.POST("/orders/:id/commissions/calculate", adminHandler.CalculateOrderCommissions)
			admin.POST("/orders/:id/commissions/recalculate", adminHandler.RecalculateOrderCommissions)
			admin.POST("/orders/:id/commissions/return-policy", adminHandler.ApplyOrderReturnPolicy)
			admin.POST("/orders/:id/status-events", adminHandler.HandleOrderStatusEvent)

			// 提现结算
			admin.GET("/withdrawals", adminHandler.GetWithdrawals)
			admin.GET("/withdrawals/:id", adminHandler.GetWithdrawal)
			admin.POST("/withdrawals", adminHandler.CreateWithdrawal)
			admin.POST("/withdrawals/:id/commissions", adminHandler.AttachWithdrawalCommissions)
			admin.DELETE("/withdrawals/:id/commissions", adminHandler.DetachWithdrawalCommissions)
			admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)
			admin.POST("/withdrawals/:id/mark-paid", adminHandler.MarkWithdrawalPaid)

			// 看板
			admin.GET("/dashboard/overview", adminHandler.GetLedgerOverview)
			admin.GET("/dashboard/affiliates/:id", adminHandler.GetAffiliateSummary)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
