package event

import (
	"math"

	"github.com/google/uuid"

	"ledger-server/internal/domain/currency"
	"ledger-server/internal/domain/transaction"
)

// PreTransaction 残高変更前に発火するイベント
//
// ハンドラはCancelでトランザクションを中止でき、SetAmountで金額を
// 書き換えられる。書き換えは入金・出金・送金で有効。残高設定では
// 検証対象の値が金額ではないため無視される。
type PreTransaction struct {
	txType    transaction.TransactionType
	accountID uuid.UUID
	targetID  *uuid.UUID
	currency  *currency.Currency
	amount    float64

	cancelled    bool
	cancelReason string
}

// NewPreTransaction PreTransactionイベントを作成
func NewPreTransaction(txType transaction.TransactionType, accountID uuid.UUID, targetID *uuid.UUID, cur *currency.Currency, amount float64) *PreTransaction {
	return &PreTransaction{
		txType:    txType,
		accountID: accountID,
		targetID:  targetID,
		currency:  cur,
		amount:    amount,
	}
}

// Type トランザクション種別を返す
func (e *PreTransaction) Type() transaction.TransactionType {
	return e.txType
}

// AccountID 対象口座のIDを返す
func (e *PreTransaction) AccountID() uuid.UUID {
	return e.accountID
}

// TargetID 送金先のID（送金以外はnil）を返す
func (e *PreTransaction) TargetID() *uuid.UUID {
	return e.targetID
}

// Currency 対象通貨を返す
func (e *PreTransaction) Currency() *currency.Currency {
	return e.currency
}

// Amount 現在の金額を返す（SetAmountで書き換え済みの場合あり）
func (e *PreTransaction) Amount() float64 {
	return e.amount
}

// SetAmount 金額を書き換える（正の有限値以外は無視）
func (e *PreTransaction) SetAmount(amount float64) {
	if amount <= 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return
	}
	e.amount = amount
}

// Cancel トランザクションを中止する（最初の理由が保持される）
func (e *PreTransaction) Cancel(reason string) {
	if e.cancelled {
		return
	}
	e.cancelled = true
	e.cancelReason = reason
}

// Cancelled 中止済みかどうかを返す
func (e *PreTransaction) Cancelled() bool {
	return e.cancelled
}

// CancelReason 中止理由を返す
func (e *PreTransaction) CancelReason() string {
	return e.cancelReason
}

// PostTransaction 残高変更の確定後に発火するイベント（読み取り専用）
type PostTransaction struct {
	result *transaction.Result
}

// NewPostTransaction PostTransactionイベントを作成
func NewPostTransaction(result *transaction.Result) *PostTransaction {
	return &PostTransaction{result: result}
}

// Result 確定したトランザクション結果を返す
func (e *PostTransaction) Result() *transaction.Result {
	return e.result
}

// BalanceChange 口座残高の変化ごとに発火するイベント（読み取り専用）
// 送金やリセットでは1回のトランザクションから複数発火する。
type BalanceChange struct {
	accountID uuid.UUID
	currency  *currency.Currency
	previous  float64
	current   float64
	cause     transaction.TransactionType
}

// NewBalanceChange BalanceChangeイベントを作成
func NewBalanceChange(accountID uuid.UUID, cur *currency.Currency, previous, current float64, cause transaction.TransactionType) *BalanceChange {
	return &BalanceChange{
		accountID: accountID,
		currency:  cur,
		previous:  previous,
		current:   current,
		cause:     cause,
	}
}

// AccountID 残高が変化した口座のIDを返す
func (e *BalanceChange) AccountID() uuid.UUID {
	return e.accountID
}

// Currency 対象通貨を返す
func (e *BalanceChange) Currency() *currency.Currency {
	return e.currency
}

// Previous 変化前の残高を返す
func (e *BalanceChange) Previous() float64 {
	return e.previous
}

// Current 変化後の残高を返す
func (e *BalanceChange) Current() float64 {
	return e.current
}

// Cause 変化の原因となったトランザクション種別を返す
func (e *BalanceChange) Cause() transaction.TransactionType {
	return e.cause
}
