package transaction

import (
	"fmt"
)

// Status トランザクション結果のステータスを表す値オブジェクト
type Status string

const (
	StatusSuccess           Status = "success"            // 成功
	StatusInsufficientFunds Status = "insufficient_funds" // 残高不足
	StatusAccountNotFound   Status = "account_not_found"  // 口座が存在しない
	StatusCurrencyNotFound  Status = "currency_not_found" // 通貨が存在しない
	StatusInvalidAmount     Status = "invalid_amount"     // 金額が無効
	StatusBalanceOverflow   Status = "balance_overflow"   // 最大残高の超過
	StatusBalanceUnderflow  Status = "balance_underflow"  // 最小残高の下回り
	StatusCancelled         Status = "cancelled"          // リスナーによるキャンセル
	StatusProviderError     Status = "provider_error"     // ストレージプロバイダーのエラー
)

// NewStatus 新しいStatusを作成
func NewStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid transaction status: %s", s)
	}
	return st, nil
}

// String 文字列表現を返す
func (s Status) String() string {
	return string(s)
}

// Valid 有効なステータスかどうかを返す
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusInsufficientFunds, StatusAccountNotFound,
		StatusCurrencyNotFound, StatusInvalidAmount, StatusBalanceOverflow,
		StatusBalanceUnderflow, StatusCancelled, StatusProviderError:
		return true
	default:
		return false
	}
}

// IsSuccess 成功ステータスかどうかを返す
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
