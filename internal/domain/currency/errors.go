package currency

import "errors"

var (
	// ErrCurrencyNotFound 通貨が見つからないエラー
	ErrCurrencyNotFound = errors.New("currency not found")
	// ErrCurrencyAlreadyRegistered 通貨が既に登録されているエラー
	ErrCurrencyAlreadyRegistered = errors.New("currency already registered")
	// ErrNoPrimaryCurrency 基軸通貨が未登録エラー
	ErrNoPrimaryCurrency = errors.New("no primary currency registered")
	// ErrInvalidIdentifier 通貨識別子が無効
	ErrInvalidIdentifier = errors.New("invalid currency identifier")
	// ErrInvalidDecimalPlaces 小数点以下の桁数が無効
	ErrInvalidDecimalPlaces = errors.New("decimal places must be between 0 and 8")
	// ErrInvalidBalanceBounds 残高の上下限が無効
	ErrInvalidBalanceBounds = errors.New("invalid balance bounds")
)
