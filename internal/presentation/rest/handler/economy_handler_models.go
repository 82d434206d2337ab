package handler

import (
	"net/http"

	"ledger-server/internal/domain/transaction"
)

// BalanceResponse 残高レスポンス
type BalanceResponse struct {
	PlayerID  string  `json:"player_id"`
	Currency  string  `json:"currency" example:"coins"`
	Balance   float64 `json:"balance" example:"1250.5"`
	Formatted string  `json:"formatted" example:"$1,250.50"`
}

// BalancesResponse 全通貨の残高レスポンス
type BalancesResponse struct {
	PlayerID string             `json:"player_id"`
	Name     string             `json:"name"`
	Balances map[string]float64 `json:"balances"`
}

// PayRequest プレイヤー間送金リクエスト
type PayRequest struct {
	TargetID string  `json:"target_id" example:"7b1c3f14-9a75-4ba0-96c5-2f21e52b1d8f"`
	Currency string  `json:"currency" example:"coins"`
	Amount   float64 `json:"amount" example:"100"`
}

// TransactionResponse トランザクション結果レスポンス
type TransactionResponse struct {
	Status          string  `json:"status" example:"success"`
	Type            string  `json:"type" example:"deposit"`
	PlayerID        string  `json:"player_id"`
	TargetID        string  `json:"target_id,omitempty"`
	Currency        string  `json:"currency,omitempty" example:"coins"`
	Amount          float64 `json:"amount" example:"100"`
	AmountFormatted string  `json:"amount_formatted,omitempty" example:"$100.00"`
	PreviousBalance float64 `json:"previous_balance" example:"50"`
	NewBalance      float64 `json:"new_balance" example:"150"`
	Message         string  `json:"message" example:"Transaction successful"`
	Timestamp       int64   `json:"timestamp" example:"1700000000000"`
}

// BaltopResponse 残高ランキングレスポンス
type BaltopResponse struct {
	Currency string        `json:"currency" example:"coins"`
	Entries  []BaltopEntry `json:"entries"`
}

// BaltopEntry 残高ランキングの1エントリ
type BaltopEntry struct {
	Rank     int     `json:"rank" example:"1"`
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name" example:"alice"`
	Balance  float64 `json:"balance" example:"99999"`
}

// newTransactionResponse トランザクション結果をレスポンスに変換
func newTransactionResponse(result *transaction.Result) TransactionResponse {
	resp := TransactionResponse{
		Status:          result.Status().String(),
		Type:            result.Type().String(),
		PlayerID:        result.AccountID().String(),
		Amount:          result.Amount(),
		AmountFormatted: result.AmountFormatted(),
		PreviousBalance: result.PreviousBalance(),
		NewBalance:      result.NewBalance(),
		Message:         result.Message(),
		Timestamp:       result.Timestamp().UnixMilli(),
	}
	if result.Currency() != nil {
		resp.Currency = result.Currency().Identifier()
	}
	if result.TargetID() != nil {
		resp.TargetID = result.TargetID().String()
	}
	return resp
}

// statusCodeForResult トランザクション結果に対応するHTTPステータスコードを返す
func statusCodeForResult(result *transaction.Result) int {
	switch result.Status() {
	case transaction.StatusSuccess:
		return http.StatusOK
	case transaction.StatusInvalidAmount:
		return http.StatusBadRequest
	case transaction.StatusAccountNotFound, transaction.StatusCurrencyNotFound:
		return http.StatusNotFound
	case transaction.StatusInsufficientFunds, transaction.StatusBalanceOverflow,
		transaction.StatusBalanceUnderflow, transaction.StatusCancelled:
		return http.StatusConflict
	case transaction.StatusProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
