package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	authapp "ledger-server/internal/application/auth"
	"ledger-server/internal/application/economy"
	"ledger-server/internal/application/event"
	"ledger-server/internal/domain/account"
	"ledger-server/internal/domain/currency"
	"ledger-server/internal/domain/transaction"
	"ledger-server/internal/infrastructure/cache"
	"ledger-server/internal/infrastructure/config"
	"ledger-server/internal/infrastructure/notification"
	otelinfra "ledger-server/internal/infrastructure/observability/otel"
	"ledger-server/internal/infrastructure/persistence/jsonfile"
	"ledger-server/internal/infrastructure/persistence/mysql"
	"ledger-server/internal/infrastructure/persistence/sqlite"
	"ledger-server/internal/presentation/rest"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// OpenTelemetryの初期化
	tracerShutdown, err := otelinfra.InitTracer(&cfg.OpenTelemetry)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(ctx); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	meterShutdown, err := otelinfra.InitMeter(&cfg.OpenTelemetry)
	if err != nil {
		log.Fatalf("Failed to initialize meter: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterShutdown(ctx); err != nil {
			log.Printf("Failed to shutdown meter: %v", err)
		}
	}()

	// ロガーとメトリクスの初期化
	tracer := otelinfra.Tracer("ledger-server")
	logger := otelinfra.NewLogger(tracer)
	metrics, err := otelinfra.NewMetrics("ledger-server")
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	ctx := context.Background()

	// 口座ストレージの初期化
	storage, cleanup, err := newStorageProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to create storage provider: %v", err)
	}
	defer cleanup()
	if err := storage.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := storage.Close(closeCtx); err != nil {
			log.Printf("Error closing storage: %v", err)
		}
	}()

	// トランザクション監査ログの初期化
	var recorder transaction.Recorder
	if cfg.Audit.Enabled {
		auditLog := sqlite.NewTransactionLog(cfg.Audit.SQLitePath)
		if err := auditLog.Initialize(ctx); err != nil {
			log.Fatalf("Failed to initialize audit log: %v", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := auditLog.Close(closeCtx); err != nil {
				log.Printf("Error closing audit log: %v", err)
			}
		}()
		recorder = auditLog
	}

	// 送金通知の初期化
	var notifier notification.Notifier
	if cfg.Notification.WebhookURL != "" {
		notifier = notification.NewWebhook(cfg.Notification.WebhookURL, cfg.Notification.Timeout)
	} else {
		notifier = notification.NewNoop()
	}

	// プライマリ通貨の登録
	registry := currency.NewRegistry()
	primary, err := currency.NewCurrency(currency.Definition{
		Identifier:     cfg.Currency.Identifier,
		DisplayName:    cfg.Currency.DisplayName,
		NameSingular:   cfg.Currency.NameSingular,
		NamePlural:     cfg.Currency.NamePlural,
		Symbol:         cfg.Currency.Symbol,
		DecimalPlaces:  cfg.Currency.DecimalPlaces,
		DefaultBalance: cfg.Currency.DefaultBalance,
		MinBalance:     cfg.Currency.MinBalance,
		MaxBalance:     cfg.Currency.MaxBalance,
		Primary:        true,
	})
	if err != nil {
		log.Fatalf("Invalid currency definition: %v", err)
	}
	if _, err := registry.Register(primary); err != nil {
		log.Fatalf("Failed to register currency: %v", err)
	}

	// 口座キャッシュの初期化と起動時ウォームアップ
	accountCache := cache.NewAccountCache(cfg.Cache.TTL)
	if provider, ok := storage.(*jsonfile.Provider); ok {
		snapshots, err := provider.LoadAll(ctx)
		if err != nil {
			log.Fatalf("Failed to warm up account cache: %v", err)
		}
		for _, snapshot := range snapshots {
			accountCache.Put(account.FromSnapshot(snapshot))
		}
		log.Printf("Warmed up account cache with %d accounts", len(snapshots))
	}

	// 台帳サービスの初期化
	economyService := economy.NewService(
		registry,
		storage,
		accountCache,
		event.NewManager(logger),
		recorder,
		notifier,
		logger,
		metrics,
	)

	// キャッシュの定期清掃
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go economyService.RunCacheJanitor(janitorCtx, cfg.Cache.CleanupInterval)

	// 認証サービスの初期化
	authService := authapp.NewAuthApplicationService(&cfg.JWT, logger)

	// REST APIルーターの初期化
	router, err := rest.NewRouter(cfg, logger, metrics, authService, economyService)
	if err != nil {
		log.Fatalf("Failed to create router: %v", err)
	}

	// サーバーアドレスの設定
	address := fmt.Sprintf(":%d", cfg.Server.Port)

	// グレースフルシャットダウンの設定
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// REST APIサーバーを別ゴルーチンで起動
	go func() {
		log.Printf("REST API server starting on %s (storage=%s)", address, storage.Type())
		if err := router.Start(address); err != nil {
			log.Printf("REST API server error: %v", err)
		}
	}()

	// シグナルを待機
	<-quit
	log.Println("Shutting down server...")

	stopJanitor()

	if err := router.Shutdown(); err != nil {
		log.Printf("Error shutting down REST API server: %v", err)
	}

	log.Println("Server stopped")
}

// newStorageProvider 設定に応じた口座ストレージを構築する
func newStorageProvider(cfg *config.Config) (account.StorageProvider, func(), error) {
	switch cfg.Storage.Type {
	case config.StorageTypeJSON:
		return jsonfile.NewProvider(cfg.Storage.JSONDirectory), func() {}, nil
	case config.StorageTypeSQLite:
		return sqlite.NewProvider(cfg.Storage.SQLitePath), func() {}, nil
	case config.StorageTypeMySQL:
		db, err := mysql.NewDB(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		cleanup := func() {
			if err := db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		}
		return mysql.NewAccountStorage(db), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
