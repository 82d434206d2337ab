package handler

// AdminAmountRequest 管理操作の金額リクエスト
type AdminAmountRequest struct {
	Currency string  `json:"currency" example:"coins"`
	Amount   float64 `json:"amount" example:"100"`
}

// AdminTransferRequest 管理操作の送金リクエスト
// 送金制限の対象外（制限はプレイヤーAPIの/payのみに適用される）。
type AdminTransferRequest struct {
	TargetID string  `json:"target_id" example:"7b1c3f14-9a75-4ba0-96c5-2f21e52b1d8f"`
	Currency string  `json:"currency" example:"coins"`
	Amount   float64 `json:"amount" example:"100"`
}

// RegisterCurrencyRequest 通貨登録リクエスト
type RegisterCurrencyRequest struct {
	Identifier     string  `json:"identifier" example:"gems"`
	DisplayName    string  `json:"display_name" example:"Gems"`
	NameSingular   string  `json:"name_singular" example:"gem"`
	NamePlural     string  `json:"name_plural" example:"gems"`
	Symbol         string  `json:"symbol" example:"◆"`
	DecimalPlaces  int     `json:"decimal_places" example:"0"`
	DefaultBalance float64 `json:"default_balance" example:"0"`
	MinBalance     float64 `json:"min_balance" example:"0"`
	MaxBalance     float64 `json:"max_balance" example:"100000"`
	Primary        bool    `json:"primary" example:"false"`
	ItemBacked     bool    `json:"item_backed" example:"false"`
	ItemType       string  `json:"item_type,omitempty" example:"diamond"`
}

// UnregisterCurrencyResponse 通貨登録解除レスポンス
type UnregisterCurrencyResponse struct {
	Identifier   string `json:"identifier" example:"gems"`
	Unregistered bool   `json:"unregistered" example:"true"`
}

// CreateAccountRequest 口座作成リクエスト
type CreateAccountRequest struct {
	PlayerID string `json:"player_id" example:"7b1c3f14-9a75-4ba0-96c5-2f21e52b1d8f"`
	Name     string `json:"name" example:"alice"`
}

// AccountResponse 口座レスポンス
type AccountResponse struct {
	PlayerID string             `json:"player_id"`
	Name     string             `json:"name"`
	Balances map[string]float64 `json:"balances"`
}

// DeleteAccountResponse 口座削除レスポンス
type DeleteAccountResponse struct {
	PlayerID string `json:"player_id"`
	Deleted  bool   `json:"deleted" example:"true"`
}

// StatsResponse サーバー統計レスポンス
type StatsResponse struct {
	Accounts   int64 `json:"accounts" example:"1024"`
	Currencies int   `json:"currencies" example:"2"`
}

// CurrencyInfo 通貨情報
type CurrencyInfo struct {
	Identifier     string  `json:"identifier" example:"coins"`
	DisplayName    string  `json:"display_name" example:"Coins"`
	Symbol         string  `json:"symbol" example:"$"`
	DecimalPlaces  int     `json:"decimal_places" example:"2"`
	DefaultBalance float64 `json:"default_balance" example:"0"`
	MinBalance     float64 `json:"min_balance" example:"0"`
	MaxBalance     float64 `json:"max_balance" example:"1000000000"`
	Primary        bool    `json:"primary" example:"true"`
}

// CurrenciesResponse 登録済み通貨の一覧レスポンス
type CurrenciesResponse struct {
	Currencies []CurrencyInfo `json:"currencies"`
}
