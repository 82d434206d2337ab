package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ストレージ種別
const (
	StorageTypeJSON   = "json"
	StorageTypeSQLite = "sqlite"
	StorageTypeMySQL  = "mysql"
)

// Config アプリケーション全体の設定
type Config struct {
	Server        ServerConfig
	Storage       StorageConfig
	Database      DatabaseConfig
	Currency      CurrencyConfig
	Cache         CacheConfig
	Pay           PayConfig
	Baltop        BaltopConfig
	Audit         AuditConfig
	Notification  NotificationConfig
	JWT           JWTConfig
	AdminAPI      AdminAPIConfig
	OpenTelemetry OpenTelemetryConfig
	Environment   string
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StorageConfig 口座ストレージ設定
type StorageConfig struct {
	Type          string // "json", "sqlite", "mysql"
	JSONDirectory string // jsonバックエンドの口座ファイル格納ディレクトリ
	SQLitePath    string // sqliteバックエンドのデータベースファイル
}

// DatabaseConfig MySQLバックエンドの接続設定
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CurrencyConfig プライマリ通貨の定義
type CurrencyConfig struct {
	Identifier     string
	DisplayName    string
	NameSingular   string
	NamePlural     string
	Symbol         string
	DecimalPlaces  int
	DefaultBalance float64
	MinBalance     float64
	MaxBalance     float64
}

// CacheConfig 口座キャッシュ設定
type CacheConfig struct {
	TTL             time.Duration // 0以下で無期限
	CleanupInterval time.Duration
}

// PayConfig プレイヤー間送金の制限
type PayConfig struct {
	MinAmount float64
	MaxAmount float64 // 0以下で無制限
	AllowSelf bool
	Cooldown  time.Duration // 0以下で無効
}

// BaltopConfig 残高ランキング設定
type BaltopConfig struct {
	Size int
}

// AuditConfig トランザクション監査ログ設定
type AuditConfig struct {
	Enabled    bool
	SQLitePath string
}

// NotificationConfig 送金通知のWebhook設定
type NotificationConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// JWTConfig JWT設定
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AdminAPIConfig 管理APIの認証設定
type AdminAPIConfig struct {
	APIKey string
}

// OpenTelemetryConfig OpenTelemetry設定
type OpenTelemetryConfig struct {
	Enabled         bool
	ServiceName     string
	ServiceVersion  string
	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceExporter   string // "otlp", "stdout"
	MetricsExporter string // "otlp", "stdout"
}

// Load 設定を読み込む
func Load() (*Config, error) {
	// .envファイルを読み込む（存在しない場合は無視）
	_ = godotenv.Load()

	env := getEnv("ENVIRONMENT", "development")

	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			Type:          getEnv("LEDGER_STORAGE_TYPE", StorageTypeJSON),
			JSONDirectory: getEnv("LEDGER_STORAGE_JSON_DIR", "data/accounts"),
			SQLitePath:    getEnv("LEDGER_STORAGE_SQLITE_PATH", "data/ledger.db"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 3306),
			User:            getEnv("DB_USER", "root"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "ledger_db"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
		},
		Currency: CurrencyConfig{
			Identifier:     getEnv("LEDGER_CURRENCY_ID", "coins"),
			DisplayName:    getEnv("LEDGER_CURRENCY_NAME", ""),
			NameSingular:   getEnv("LEDGER_CURRENCY_SINGULAR", ""),
			NamePlural:     getEnv("LEDGER_CURRENCY_PLURAL", ""),
			Symbol:         getEnv("LEDGER_CURRENCY_SYMBOL", "$"),
			DecimalPlaces:  getEnvAsInt("LEDGER_CURRENCY_DECIMALS", 2),
			DefaultBalance: getEnvAsFloat("LEDGER_CURRENCY_DEFAULT_BALANCE", 0),
			MinBalance:     getEnvAsFloat("LEDGER_CURRENCY_MIN_BALANCE", 0),
			MaxBalance:     getEnvAsFloat("LEDGER_CURRENCY_MAX_BALANCE", 1_000_000_000),
		},
		Cache: CacheConfig{
			TTL:             getEnvAsDuration("LEDGER_CACHE_TTL", 10*time.Minute),
			CleanupInterval: getEnvAsDuration("LEDGER_CACHE_CLEANUP_INTERVAL", time.Minute),
		},
		Pay: PayConfig{
			MinAmount: getEnvAsFloat("LEDGER_PAY_MIN_AMOUNT", 0.01),
			MaxAmount: getEnvAsFloat("LEDGER_PAY_MAX_AMOUNT", 0),
			AllowSelf: getEnvAsBool("LEDGER_PAY_ALLOW_SELF", false),
			Cooldown:  getEnvAsDuration("LEDGER_PAY_COOLDOWN", 0),
		},
		Baltop: BaltopConfig{
			Size: getEnvAsInt("LEDGER_BALTOP_SIZE", 10),
		},
		Audit: AuditConfig{
			Enabled:    getEnvAsBool("LEDGER_AUDIT_ENABLED", true),
			SQLitePath: getEnv("LEDGER_AUDIT_SQLITE_PATH", "data/transactions.db"),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("LEDGER_NOTIFY_WEBHOOK_URL", ""),
			Timeout:    getEnvAsDuration("LEDGER_NOTIFY_TIMEOUT", 5*time.Second),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			Expiration: getEnvAsDuration("JWT_EXPIRATION", 24*time.Hour),
			Issuer:     getEnv("JWT_ISSUER", "ledger-server"),
		},
		AdminAPI: AdminAPIConfig{
			APIKey: getEnv("ADMIN_API_KEY", ""),
		},
		OpenTelemetry: OpenTelemetryConfig{
			Enabled:         getEnvAsBool("OTEL_ENABLED", true),
			ServiceName:     getEnv("OTEL_SERVICE_NAME", "ledger-server"),
			ServiceVersion:  getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			OTLPInsecure:    getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			TraceExporter:   getEnv("OTEL_TRACES_EXPORTER", "otlp"),
			MetricsExporter: getEnv("OTEL_METRICS_EXPORTER", "otlp"),
		},
	}

	// 必須設定の検証
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate 設定の検証
func (c *Config) validate() error {
	switch c.Storage.Type {
	case StorageTypeJSON:
		if c.Storage.JSONDirectory == "" {
			return fmt.Errorf("LEDGER_STORAGE_JSON_DIR is required")
		}
	case StorageTypeSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("LEDGER_STORAGE_SQLITE_PATH is required")
		}
	case StorageTypeMySQL:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	if c.Currency.Identifier == "" {
		return fmt.Errorf("LEDGER_CURRENCY_ID is required")
	}
	if c.Currency.MinBalance > c.Currency.MaxBalance {
		return fmt.Errorf("LEDGER_CURRENCY_MIN_BALANCE must not exceed LEDGER_CURRENCY_MAX_BALANCE")
	}
	if c.Pay.MaxAmount > 0 && c.Pay.MinAmount > c.Pay.MaxAmount {
		return fmt.Errorf("LEDGER_PAY_MIN_AMOUNT must not exceed LEDGER_PAY_MAX_AMOUNT")
	}
	if c.Baltop.Size <= 0 {
		return fmt.Errorf("LEDGER_BALTOP_SIZE must be positive")
	}
	if c.Audit.Enabled && c.Audit.SQLitePath == "" {
		return fmt.Errorf("LEDGER_AUDIT_SQLITE_PATH is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AdminAPI.APIKey == "" {
		return fmt.Errorf("ADMIN_API_KEY is required")
	}
	return nil
}

// DSN データベース接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// getEnv 環境変数を取得（デフォルト値付き）
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt 環境変数を整数として取得
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat 環境変数を浮動小数点数として取得
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool 環境変数を真偽値として取得
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration 環境変数を時間として取得
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
