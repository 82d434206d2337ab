package handler

// TransactionHistoryResponse トランザクション履歴レスポンス
type TransactionHistoryResponse struct {
	PlayerID     string            `json:"player_id"`
	Transactions []TransactionItem `json:"transactions"`
	Limit        int               `json:"limit" example:"50"`
}

// TransactionItem トランザクション履歴の1エントリ
type TransactionItem struct {
	Timestamp       int64   `json:"timestamp" example:"1700000000000"`
	Type            string  `json:"type" example:"deposit"`
	TargetID        string  `json:"target_id,omitempty"`
	Currency        string  `json:"currency" example:"coins"`
	Amount          float64 `json:"amount" example:"100"`
	PreviousBalance float64 `json:"previous_balance" example:"50"`
	NewBalance      float64 `json:"new_balance" example:"150"`
}
