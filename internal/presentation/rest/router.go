package rest

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	authapp "ledger-server/internal/application/auth"
	"ledger-server/internal/application/economy"
	"ledger-server/internal/infrastructure/config"
	otelinfra "ledger-server/internal/infrastructure/observability/otel"
	"ledger-server/internal/presentation/rest/handler"
	restmiddleware "ledger-server/internal/presentation/rest/middleware"
)

// Router REST APIルーター
type Router struct {
	echo           *echo.Echo
	authHandler    *handler.AuthHandler
	economyHandler *handler.EconomyHandler
	adminHandler   *handler.AdminHandler
	historyHandler *handler.HistoryHandler
}

// NewRouter 新しいRouterを作成
func NewRouter(
	cfg *config.Config,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
	authService *authapp.AuthApplicationService,
	economyService *economy.Service,
) (*Router, error) {
	e := echo.New()

	// Echoのデフォルトエラーハンドラーを無効化（カスタムエラーハンドラーを使用）
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		// エラーハンドリングミドルウェアで処理される
	}

	// ミドルウェアの設定
	setupMiddleware(e, cfg, logger, metrics)

	// ハンドラーの作成
	authHandler := handler.NewAuthHandler(authService)
	economyHandler := handler.NewEconomyHandler(economyService, &cfg.Pay, &cfg.Baltop)
	adminHandler := handler.NewAdminHandler(economyService)
	historyHandler := handler.NewHistoryHandler(economyService)

	// ルーティングの設定
	setupRoutes(e, cfg, logger, authHandler, economyHandler, adminHandler, historyHandler)

	return &Router{
		echo:           e,
		authHandler:    authHandler,
		economyHandler: economyHandler,
		adminHandler:   adminHandler,
		historyHandler: historyHandler,
	}, nil
}

// setupMiddleware ミドルウェアを設定
func setupMiddleware(e *echo.Echo, cfg *config.Config, logger *otelinfra.Logger, metrics *otelinfra.Metrics) {
	// リカバリーミドルウェア
	e.Use(middleware.Recover())

	// CORS設定
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"}, // 本番環境では適切に設定
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// リクエストIDの設定
	e.Use(middleware.RequestID())

	// セキュリティヘッダー
	e.Use(restmiddleware.SecurityHeadersMiddleware())

	// トレーシングミドルウェア
	e.Use(restmiddleware.TracingMiddleware())

	// メトリクスミドルウェア
	e.Use(restmiddleware.MetricsMiddleware(metrics))

	// ログミドルウェア
	e.Use(restmiddleware.LoggingMiddleware(logger))

	// エラーハンドリングミドルウェア
	e.Use(restmiddleware.ErrorHandlerMiddleware(logger))
}

// setupRoutes ルーティングを設定
func setupRoutes(
	e *echo.Echo,
	cfg *config.Config,
	logger *otelinfra.Logger,
	authHandler *handler.AuthHandler,
	economyHandler *handler.EconomyHandler,
	adminHandler *handler.AdminHandler,
	historyHandler *handler.HistoryHandler,
) {
	// API v1グループ
	api := e.Group("/api/v1")

	// プレイヤー認証が必要なエンドポイント
	playerGroup := api.Group("", restmiddleware.AuthMiddleware(&cfg.JWT, logger))

	// 残高関連エンドポイント
	playerGroup.GET("/players/me/balance", economyHandler.GetBalance)
	playerGroup.GET("/players/me/balances", economyHandler.GetBalances)

	// プレイヤー間送金エンドポイント
	playerGroup.POST("/pay", economyHandler.Pay)

	// 残高ランキングエンドポイント
	playerGroup.GET("/baltop", economyHandler.GetBaltop)

	// 履歴関連エンドポイント
	playerGroup.GET("/players/me/transactions", historyHandler.GetTransactionHistory)

	// APIキー認証が必要な管理エンドポイント
	adminGroup := api.Group("/admin", restmiddleware.APIKeyMiddleware(&cfg.AdminAPI, logger))

	// トークン発行（ゲームサーバー向け）
	adminGroup.POST("/auth/token", authHandler.GenerateToken)

	// 口座管理エンドポイント
	adminGroup.POST("/players", adminHandler.CreateAccount)
	adminGroup.GET("/players/:player_id", adminHandler.GetAccount)
	adminGroup.DELETE("/players/:player_id", adminHandler.DeleteAccount)

	// 残高操作エンドポイント
	adminGroup.POST("/players/:player_id/deposit", adminHandler.Deposit)
	adminGroup.POST("/players/:player_id/withdraw", adminHandler.Withdraw)
	adminGroup.PUT("/players/:player_id/balance", adminHandler.SetBalance)
	adminGroup.POST("/players/:player_id/reset", adminHandler.Reset)
	adminGroup.POST("/players/:player_id/transfer", adminHandler.Transfer)

	// 履歴・統計エンドポイント
	adminGroup.GET("/players/:player_id/transactions", historyHandler.GetTransactionHistoryAdmin)
	adminGroup.GET("/stats", adminHandler.GetStats)
	adminGroup.GET("/currencies", adminHandler.GetCurrencies)

	// 通貨管理エンドポイント
	adminGroup.POST("/currencies", adminHandler.RegisterCurrency)
	adminGroup.DELETE("/currencies/:currency_id", adminHandler.UnregisterCurrency)

	// ヘルスチェックエンドポイント（認証不要）
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
}

// Start サーバーを起動
func (r *Router) Start(address string) error {
	return r.echo.Start(address)
}

// Shutdown サーバーをシャットダウン
func (r *Router) Shutdown() error {
	return r.echo.Close()
}
