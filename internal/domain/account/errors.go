package account

import "errors"

var (
	// ErrAccountNotFound 口座が見つからないエラー
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountAlreadyExists 口座が既に存在するエラー
	ErrAccountAlreadyExists = errors.New("account already exists")
	// ErrInvalidAmount 金額が無効エラー
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientFunds 残高不足エラー
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBalanceOverflow 最大残高の超過エラー
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrBalanceUnderflow 最小残高の下回りエラー
	ErrBalanceUnderflow = errors.New("balance underflow")
)
