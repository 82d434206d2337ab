package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"ledger-server/internal/application/economy"
	"ledger-server/internal/application/event"
	"ledger-server/internal/domain/account"
	"ledger-server/internal/domain/currency"
	"ledger-server/internal/infrastructure/cache"
	otelinfra "ledger-server/internal/infrastructure/observability/otel"
)

// memoryStorage テスト用のインメモリStorageProvider
type memoryStorage struct {
	mu        sync.Mutex
	snapshots map[uuid.UUID]*account.Snapshot
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{snapshots: make(map[uuid.UUID]*account.Snapshot)}
}

func (m *memoryStorage) Initialize(ctx context.Context) error { return nil }
func (m *memoryStorage) Close(ctx context.Context) error      { return nil }

func (m *memoryStorage) HasAccount(ctx context.Context, playerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.snapshots[playerID]
	return ok, nil
}

func (m *memoryStorage) LoadAccount(ctx context.Context, playerID uuid.UUID) (*account.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot, ok := m.snapshots[playerID]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	copied := *snapshot
	copied.Balances = make(map[string]float64, len(snapshot.Balances))
	for k, v := range snapshot.Balances {
		copied.Balances[k] = v
	}
	return &copied, nil
}

func (m *memoryStorage) SaveAccount(ctx context.Context, snapshot *account.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *snapshot
	copied.Balances = make(map[string]float64, len(snapshot.Balances))
	for k, v := range snapshot.Balances {
		copied.Balances[k] = v
	}
	m.snapshots[snapshot.ID] = &copied
	return nil
}

func (m *memoryStorage) DeleteAccount(ctx context.Context, playerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.snapshots[playerID]
	delete(m.snapshots, playerID)
	return ok, nil
}

func (m *memoryStorage) TopBalances(ctx context.Context, currencyID string, limit int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type ranked struct {
		id      uuid.UUID
		balance float64
	}
	entries := make([]ranked, 0, len(m.snapshots))
	for id, snapshot := range m.snapshots {
		entries = append(entries, ranked{id: id, balance: snapshot.Balances[currencyID]})
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].balance > entries[i].balance {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	result := make([]uuid.UUID, len(entries))
	for i, entry := range entries {
		result[i] = entry.id
	}
	return result, nil
}

func (m *memoryStorage) AccountCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.snapshots)), nil
}

func (m *memoryStorage) Type() string { return "memory" }

// newTestService テスト用のeconomy.Serviceを構築する
func newTestService(t *testing.T) *economy.Service {
	t.Helper()

	otel.SetMeterProvider(metricnoop.NewMeterProvider())

	tracer := noop.NewTracerProvider().Tracer("test")
	logger := otelinfra.NewLogger(tracer)
	metrics, err := otelinfra.NewMetrics("test")
	require.NoError(t, err)

	registry := currency.NewRegistry()
	coins := currency.MustNewCurrency(currency.Definition{
		Identifier:    "coins",
		Symbol:        "$",
		DecimalPlaces: 2,
		MaxBalance:    1_000_000,
		Primary:       true,
	})
	_, err = registry.Register(coins)
	require.NoError(t, err)

	return economy.NewService(
		registry,
		newMemoryStorage(),
		cache.NewAccountCache(time.Minute),
		event.NewManager(logger),
		nil,
		nil,
		logger,
		metrics,
	)
}
