package event

import (
	"context"
	"sync"

	"ledger-server/internal/domain/event"
	otelinfra "ledger-server/internal/infrastructure/observability/otel"
)

// PreTransactionHook 残高変更前フック
// イベントのCancel/SetAmountでトランザクションに介入できる。
type PreTransactionHook func(ctx context.Context, e *event.PreTransaction)

// PostTransactionHook 残高変更の確定後フック
type PostTransactionHook func(ctx context.Context, e *event.PostTransaction)

// BalanceChangeHook 口座残高の変化ごとのフック
type BalanceChangeHook func(ctx context.Context, e *event.BalanceChange)

// Manager トランザクションフックのレジストリ兼ディスパッチャ
//
// フックは登録順に呼び出される。フック内のパニックは回復して
// エラーログに記録し、残りのフックの実行を続ける。
type Manager struct {
	mu                 sync.RWMutex
	preHooks           []PreTransactionHook
	postHooks          []PostTransactionHook
	balanceChangeHooks []BalanceChangeHook

	logger *otelinfra.Logger
}

// NewManager 新しいManagerを作成
func NewManager(logger *otelinfra.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// OnPreTransaction 残高変更前フックを登録
func (m *Manager) OnPreTransaction(hook PreTransactionHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preHooks = append(m.preHooks, hook)
}

// OnPostTransaction 確定後フックを登録
func (m *Manager) OnPostTransaction(hook PostTransactionHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postHooks = append(m.postHooks, hook)
}

// OnBalanceChange 残高変化フックを登録
func (m *Manager) OnBalanceChange(hook BalanceChangeHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceChangeHooks = append(m.balanceChangeHooks, hook)
}

// FirePreTransaction 残高変更前フックを登録順に発火する
// いずれかのフックが中止した後も残りのフックは呼び出される
// （中止済みイベントの観測を許可するため）。
func (m *Manager) FirePreTransaction(ctx context.Context, e *event.PreTransaction) {
	m.mu.RLock()
	hooks := m.preHooks
	m.mu.RUnlock()

	for _, hook := range hooks {
		m.invoke(ctx, "pre_transaction", func() { hook(ctx, e) })
	}
}

// FirePostTransaction 確定後フックを登録順に発火する
func (m *Manager) FirePostTransaction(ctx context.Context, e *event.PostTransaction) {
	m.mu.RLock()
	hooks := m.postHooks
	m.mu.RUnlock()

	for _, hook := range hooks {
		m.invoke(ctx, "post_transaction", func() { hook(ctx, e) })
	}
}

// FireBalanceChange 残高変化フックを登録順に発火する
func (m *Manager) FireBalanceChange(ctx context.Context, e *event.BalanceChange) {
	m.mu.RLock()
	hooks := m.balanceChangeHooks
	m.mu.RUnlock()

	for _, hook := range hooks {
		m.invoke(ctx, "balance_change", func() { hook(ctx, e) })
	}
}

// invoke フックをパニック回復付きで呼び出す
func (m *Manager) invoke(ctx context.Context, kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, "Transaction hook panicked", nil, map[string]interface{}{
				"hook_kind": kind,
				"panic":     r,
			})
		}
	}()
	fn()
}
