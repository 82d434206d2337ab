package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics メトリクス定義
type Metrics struct {
	// トランザクション数
	TransactionCount metric.Int64Counter

	// フックによる中止件数
	CancelledCount metric.Int64Counter

	// 口座残高の分布
	AccountBalance metric.Float64Gauge

	// 口座キャッシュのヒット／ミス
	CacheHitCount  metric.Int64Counter
	CacheMissCount metric.Int64Counter

	// ストレージ操作の所要時間
	StorageDuration metric.Float64Histogram

	// リクエスト数
	RequestCount metric.Int64Counter

	// レスポンス時間
	ResponseTime metric.Float64Histogram

	// エラー率
	ErrorCount metric.Int64Counter
}

// NewMetrics 新しいMetricsを作成
func NewMetrics(meterName string) (*Metrics, error) {
	meter := otel.Meter(meterName)

	transactionCount, err := meter.Int64Counter(
		"transactions_total",
		metric.WithDescription("Total number of ledger transactions"),
	)
	if err != nil {
		return nil, err
	}

	cancelledCount, err := meter.Int64Counter(
		"transactions_cancelled_total",
		metric.WithDescription("Total number of transactions cancelled by hooks"),
	)
	if err != nil {
		return nil, err
	}

	accountBalance, err := meter.Float64Gauge(
		"account_balance",
		metric.WithDescription("Account balance"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"account_cache_hits_total",
		metric.WithDescription("Total number of account cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"account_cache_misses_total",
		metric.WithDescription("Total number of account cache misses"),
	)
	if err != nil {
		return nil, err
	}

	storageDuration, err := meter.Float64Histogram(
		"storage_operation_seconds",
		metric.WithDescription("Storage operation duration in seconds"),
	)
	if err != nil {
		return nil, err
	}

	requestCount, err := meter.Int64Counter(
		"requests_total",
		metric.WithDescription("Total number of requests"),
	)
	if err != nil {
		return nil, err
	}

	responseTime, err := meter.Float64Histogram(
		"response_time_seconds",
		metric.WithDescription("Response time in seconds"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"errors_total",
		metric.WithDescription("Total number of errors"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		TransactionCount: transactionCount,
		CancelledCount:   cancelledCount,
		AccountBalance:   accountBalance,
		CacheHitCount:    cacheHitCount,
		CacheMissCount:   cacheMissCount,
		StorageDuration:  storageDuration,
		RequestCount:     requestCount,
		ResponseTime:     responseTime,
		ErrorCount:       errorCount,
	}, nil
}

// RecordTransaction トランザクションを記録
func (m *Metrics) RecordTransaction(ctx context.Context, transactionType, currencyID, status string) {
	m.TransactionCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("transaction_type", transactionType),
			attribute.String("currency_id", currencyID),
			attribute.String("status", status),
		),
	)
}

// RecordCancelled フックによる中止を記録
func (m *Metrics) RecordCancelled(ctx context.Context, transactionType, currencyID string) {
	m.CancelledCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("transaction_type", transactionType),
			attribute.String("currency_id", currencyID),
		),
	)
}

// RecordAccountBalance 口座残高を記録
func (m *Metrics) RecordAccountBalance(ctx context.Context, playerID, currencyID string, balance float64) {
	m.AccountBalance.Record(ctx, balance,
		metric.WithAttributes(
			attribute.String("player_id", playerID),
			attribute.String("currency_id", currencyID),
		),
	)
}

// RecordCacheHit キャッシュヒットを記録
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	m.CacheHitCount.Add(ctx, 1)
}

// RecordCacheMiss キャッシュミスを記録
func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	m.CacheMissCount.Add(ctx, 1)
}

// RecordStorageDuration ストレージ操作の所要時間を記録
func (m *Metrics) RecordStorageDuration(ctx context.Context, operation, storageType string, seconds float64) {
	m.StorageDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("storage_type", storageType),
		),
	)
}

// RecordRequest リクエストを記録
func (m *Metrics) RecordRequest(ctx context.Context, method, path string) {
	m.RequestCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordResponseTime レスポンス時間を記録
func (m *Metrics) RecordResponseTime(ctx context.Context, method, path string, duration float64) {
	m.ResponseTime.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
		),
	)
}

// RecordError エラーを記録
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	m.ErrorCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error_type", errorType),
		),
	)
}
