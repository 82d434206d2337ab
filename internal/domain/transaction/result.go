package transaction

import (
	"time"

	"github.com/google/uuid"

	"ledger-server/internal/domain/currency"
)

// Result トランザクションの結果を表す値オブジェクト（構築後は不変）
type Result struct {
	status          Status
	txType          TransactionType
	amount          float64
	previousBalance float64
	newBalance      float64
	currency        *currency.Currency
	accountID       uuid.UUID
	targetID        *uuid.UUID
	message         string
	timestamp       time.Time
}

// NewSuccessResult 成功結果を作成
func NewSuccessResult(
	txType TransactionType,
	amount float64,
	previousBalance float64,
	newBalance float64,
	cur *currency.Currency,
	accountID uuid.UUID,
) *Result {
	return &Result{
		status:          StatusSuccess,
		txType:          txType,
		amount:          amount,
		previousBalance: previousBalance,
		newBalance:      newBalance,
		currency:        cur,
		accountID:       accountID,
		message:         "Transaction successful",
		timestamp:       time.Now(),
	}
}

// NewTransferResult 送金の成功結果を作成（送金先ID付き）
func NewTransferResult(
	amount float64,
	previousBalance float64,
	newBalance float64,
	cur *currency.Currency,
	accountID uuid.UUID,
	targetID uuid.UUID,
) *Result {
	return &Result{
		status:          StatusSuccess,
		txType:          TransactionTypeTransfer,
		amount:          amount,
		previousBalance: previousBalance,
		newBalance:      newBalance,
		currency:        cur,
		accountID:       accountID,
		targetID:        &targetID,
		message:         "Transfer successful",
		timestamp:       time.Now(),
	}
}

// NewFailureResult 失敗結果を作成（残高は変化しないため前後とも現在値）
func NewFailureResult(
	status Status,
	txType TransactionType,
	currentBalance float64,
	cur *currency.Currency,
	accountID uuid.UUID,
	message string,
) *Result {
	return &Result{
		status:          status,
		txType:          txType,
		previousBalance: currentBalance,
		newBalance:      currentBalance,
		currency:        cur,
		accountID:       accountID,
		message:         message,
		timestamp:       time.Now(),
	}
}

// Status ステータスを返す
func (r *Result) Status() Status {
	return r.status
}

// Type トランザクションタイプを返す
func (r *Result) Type() TransactionType {
	return r.txType
}

// Amount 金額を返す（プレフックで書き換えられた場合は書き換え後の値）
func (r *Result) Amount() float64 {
	return r.amount
}

// AmountFormatted 通貨でフォーマットした金額を返す
func (r *Result) AmountFormatted() string {
	if r.currency == nil {
		return ""
	}
	return r.currency.Format(r.amount)
}

// PreviousBalance 処理前の残高を返す
func (r *Result) PreviousBalance() float64 {
	return r.previousBalance
}

// NewBalance 処理後の残高を返す（失敗時は処理前と同値）
func (r *Result) NewBalance() float64 {
	return r.newBalance
}

// Currency 対象の通貨を返す
func (r *Result) Currency() *currency.Currency {
	return r.currency
}

// AccountID 口座IDを返す
func (r *Result) AccountID() uuid.UUID {
	return r.accountID
}

// TargetID 送金先の口座IDを返す（送金以外はnil）
func (r *Result) TargetID() *uuid.UUID {
	return r.targetID
}

// Message 結果メッセージを返す
func (r *Result) Message() string {
	return r.message
}

// Timestamp 結果の生成日時を返す
func (r *Result) Timestamp() time.Time {
	return r.timestamp
}

// IsSuccess 成功かどうかを返す
func (r *Result) IsSuccess() bool {
	return r.status == StatusSuccess
}

// IsFailure 失敗かどうかを返す
func (r *Result) IsFailure() bool {
	return r.status != StatusSuccess
}
