package account

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"ledger-server/internal/domain/currency"
)

// Account プレイヤーの口座エンティティ
//
// 通貨識別子から残高へのマッピングを保持する。残高の変更は必ず
// トランザクションプロトコル（application/economy）を経由すること。
// 内部のミューテックスはマップ自体の整合性のみを守る。口座単位の
// 直列化はサービス層のロックが担う。
type Account struct {
	owner uuid.UUID

	mu       sync.RWMutex
	name     string
	balances map[string]float64
}

// Mutation 残高変更の前後の値
type Mutation struct {
	Previous float64
	New      float64
}

// Change 通貨ごとの残高変更（リセット用）
type Change struct {
	Currency *currency.Currency
	Previous float64
	New      float64
}

// NewAccount 新しいAccountエンティティを作成（残高マップはコピーされる）
func NewAccount(owner uuid.UUID, name string, balances map[string]float64) *Account {
	copied := make(map[string]float64, len(balances))
	for id, balance := range balances {
		copied[id] = balance
	}
	return &Account{
		owner:    owner,
		name:     name,
		balances: copied,
	}
}

// FromSnapshot 永続化表現からAccountエンティティを復元
func FromSnapshot(snapshot *Snapshot) *Account {
	return NewAccount(snapshot.ID, snapshot.Name, snapshot.Balances)
}

// Owner 口座の所有者IDを返す
func (a *Account) Owner() uuid.UUID {
	return a.owner
}

// Name 表示名を返す
func (a *Account) Name() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.name
}

// SetName 表示名を更新（ロード時に権威ソースと同期される）
func (a *Account) SetName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.name = name
}

// Balance 指定通貨の残高を返す（未記録の通貨は初期残高として扱う）
func (a *Account) Balance(cur *currency.Currency) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balanceLocked(cur)
}

// Has 指定金額以上の残高があるかどうかを返す
func (a *Account) Has(cur *currency.Currency, amount float64) bool {
	return a.Balance(cur) >= amount
}

// AllBalances 登録済み通貨ごとの残高を返す
func (a *Account) AllBalances(currencies []*currency.Currency) map[string]float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[string]float64, len(currencies))
	for _, cur := range currencies {
		result[cur.Identifier()] = a.balanceLocked(cur)
	}
	return result
}

// Deposit 残高に入金する（通貨の桁数に丸めた値を書き込む）
func (a *Account) Deposit(cur *currency.Currency, amount float64) (Mutation, error) {
	if !isPositiveFinite(amount) {
		return Mutation{}, ErrInvalidAmount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.balanceLocked(cur)
	updated := current + amount
	if updated > cur.MaxBalance() {
		return Mutation{Previous: current, New: current}, ErrBalanceOverflow
	}

	rounded := cur.Round(updated)
	a.balances[cur.Identifier()] = rounded
	return Mutation{Previous: current, New: rounded}, nil
}

// Withdraw 残高から出金する（通貨の最小残高まで。マイナスの最小残高は当座貸越を許可）
func (a *Account) Withdraw(cur *currency.Currency, amount float64) (Mutation, error) {
	return a.withdrawWithFloor(cur, amount, cur.MinBalance())
}

// WithdrawForTransfer 送金元としての出金
// 送金では通貨が当座貸越を許可していても残高をマイナスにできない
func (a *Account) WithdrawForTransfer(cur *currency.Currency, amount float64) (Mutation, error) {
	return a.withdrawWithFloor(cur, amount, math.Max(0, cur.MinBalance()))
}

// withdrawWithFloor 実効下限付きの出金
func (a *Account) withdrawWithFloor(cur *currency.Currency, amount, floor float64) (Mutation, error) {
	if !isPositiveFinite(amount) {
		return Mutation{}, ErrInvalidAmount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.balanceLocked(cur)
	updated := current - amount
	if updated < floor {
		return Mutation{Previous: current, New: current}, ErrInsufficientFunds
	}

	rounded := cur.Round(updated)
	a.balances[cur.Identifier()] = rounded
	return Mutation{Previous: current, New: rounded}, nil
}

// Set 残高を直接設定する（管理操作、[min, max]の範囲外は拒否）
func (a *Account) Set(cur *currency.Currency, value float64) (Mutation, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Mutation{}, ErrInvalidAmount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.balanceLocked(cur)
	if value > cur.MaxBalance() {
		return Mutation{Previous: current, New: current}, ErrBalanceOverflow
	}
	if value < cur.MinBalance() {
		return Mutation{Previous: current, New: current}, ErrBalanceUnderflow
	}

	rounded := cur.Round(value)
	a.balances[cur.Identifier()] = rounded
	return Mutation{Previous: current, New: rounded}, nil
}

// ResetAll すべての通貨を初期残高に戻し、通貨ごとの変更を返す
func (a *Account) ResetAll(currencies []*currency.Currency) []Change {
	a.mu.Lock()
	defer a.mu.Unlock()

	changes := make([]Change, 0, len(currencies))
	for _, cur := range currencies {
		previous := a.balanceLocked(cur)
		updated := cur.Round(cur.DefaultBalance())
		a.balances[cur.Identifier()] = updated
		changes = append(changes, Change{Currency: cur, Previous: previous, New: updated})
	}
	return changes
}

// Restore 残高を指定値へ書き戻す（永続化失敗時のロールバック用）
func (a *Account) Restore(currencyID string, balance float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[currencyID] = balance
}

// Snapshot 永続化表現を作成
func (a *Account) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	balances := make(map[string]float64, len(a.balances))
	for id, balance := range a.balances {
		balances[id] = balance
	}
	return &Snapshot{
		ID:       a.owner,
		Name:     a.name,
		Balances: balances,
	}
}

// balanceLocked ロック保持中に残高を取得（未記録の通貨は初期残高）
func (a *Account) balanceLocked(cur *currency.Currency) float64 {
	if balance, ok := a.balances[cur.Identifier()]; ok {
		return balance
	}
	return cur.DefaultBalance()
}

// isPositiveFinite 金額が正の有限値かどうかを返す
func isPositiveFinite(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}
