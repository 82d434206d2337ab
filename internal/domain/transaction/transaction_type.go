package transaction

import (
	"fmt"
)

// TransactionType トランザクションタイプを表す値オブジェクト
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"  // 入金
	TransactionTypeWithdraw TransactionType = "withdraw" // 出金
	TransactionTypeTransfer TransactionType = "transfer" // 口座間送金
	TransactionTypeSet      TransactionType = "set"      // 残高の直接設定（管理操作）
	TransactionTypeReset    TransactionType = "reset"    // 初期残高へのリセット
)

// NewTransactionType 新しいTransactionTypeを作成
func NewTransactionType(s string) (TransactionType, error) {
	switch s {
	case "deposit", "withdraw", "transfer", "set", "reset":
		return TransactionType(s), nil
	default:
		return "", fmt.Errorf("invalid transaction type: %s", s)
	}
}

// String 文字列表現を返す
func (tt TransactionType) String() string {
	return string(tt)
}

// Valid 有効なトランザクションタイプかどうかを返す
func (tt TransactionType) Valid() bool {
	switch tt {
	case TransactionTypeDeposit, TransactionTypeWithdraw, TransactionTypeTransfer, TransactionTypeSet, TransactionTypeReset:
		return true
	default:
		return false
	}
}
