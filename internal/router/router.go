package router

import (
	"pocket-ledger/internal/config"
	"pocket-ledger/internal/handler"
	"pocket-ledger/internal/middleware"
	"pocket-ledger/internal/rates"
	"pocket-ledger/internal/scheduler"
	"pocket-ledger/internal/syncengine"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps 是路由层需要的已组装好的服务
type Deps struct {
	DB     *gorm.DB
	Engine *syncengine.Engine
	Sched  *scheduler.Scheduler
	Rates  *rates.Provider
}

// SetupRouter configures the Gin engine and mounts the API.
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	api := r.Group("/api")

	// 从配置中读取 JWT 密钥和过期时间
	jwtSecret := cfg.JWT.Secret
	// 登录/注册接口（不需要鉴权）
	authHandler := handler.NewAuthHandler(deps.DB, jwtSecret, cfg.JWT.ExpireHours)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// 需要登录才能访问的接口
	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(jwtSecret, deps.DB),
		middleware.AuditMiddleware(deps.DB),
	)

	protected.GET("/me", handler.GetMe)
	protected.POST("/profile/password", handler.ChangePassword(deps.DB))

	accountHandler := handler.NewAccountHandler(deps.DB)
	protected.GET("/accounts", accountHandler.ListAccounts)
	protected.POST("/accounts", accountHandler.CreateAccount)
	protected.PUT("/accounts/:id", accountHandler.UpdateAccount)
	protected.DELETE("/accounts/:id", accountHandler.DeleteAccount)

	entryHandler := handler.NewEntryHandler(deps.DB)
	protected.POST("/entries", entryHandler.CreateEntry)
	protected.GET("/entries", entryHandler.ListEntries)
	protected.PUT("/entries/:id", entryHandler.UpdateEntry)
	protected.DELETE("/entries/:id", entryHandler.DeleteEntry)

	debtHandler := handler.NewDebtHandler(deps.DB)
	protected.GET("/debts", debtHandler.ListDebts)
	protected.POST("/debts", debtHandler.CreateDebt)
	protected.POST("/debts/:id/settle", debtHandler.SettleDebt)
	protected.DELETE("/debts/:id", debtHandler.DeleteDebt)

	budgetHandler := handler.NewBudgetHandler(deps.DB)
	protected.GET("/budgets", budgetHandler.BudgetStatus)
	protected.POST("/budgets", budgetHandler.SetBudget)
	protected.DELETE("/budgets/:id", budgetHandler.DeleteBudget)

	ruleHandler := handler.NewRuleHandler(deps.DB, deps.Sched)
	protected.GET("/rules", ruleHandler.ListRules)
	protected.POST("/rules", ruleHandler.CreateRule)
	protected.PUT("/rules/:id", ruleHandler.UpdateRule)
	protected.DELETE("/rules/:id", ruleHandler.DeleteRule)
	protected.POST("/rules/run", ruleHandler.RunNow)

	syncHandler := handler.NewSyncHandler(deps.Engine)
	protected.GET("/sync/status", syncHandler.Status)
	protected.POST("/sync/execute", syncHandler.Execute)

	exportHandler := handler.NewExportHandler(deps.DB)
	protected.GET("/export/csv", exportHandler.ExportCSV)
	protected.GET("/export/xlsx", exportHandler.ExportXLSX)
	protected.POST("/import/csv", exportHandler.ImportCSV)

	if deps.Rates != nil {
		ratesHandler := handler.NewRatesHandler(deps.Rates)
		protected.GET("/rates/convert", ratesHandler.Convert)
		protected.POST("/rates/refresh", ratesHandler.Refresh)
	}

	protected.GET("/logs", handler.ListLogs(deps.DB))

	return r
}
