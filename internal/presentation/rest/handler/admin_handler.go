package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ledger-server/internal/application/economy"
	"ledger-server/internal/domain/currency"
)

// AdminHandler 管理API用の台帳ハンドラー
// 入金・出金・残高設定・リセット・口座管理を提供する。
type AdminHandler struct {
	service *economy.Service
}

// NewAdminHandler 新しいAdminHandlerを作成
func NewAdminHandler(service *economy.Service) *AdminHandler {
	return &AdminHandler{
		service: service,
	}
}

// playerIDFromPath パスパラメータからプレイヤーIDを取得
func playerIDFromPath(c echo.Context) (uuid.UUID, error) {
	playerID, err := uuid.Parse(c.Param("player_id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "player_id must be a valid UUID")
	}
	return playerID, nil
}

// Deposit 入金ハンドラー
func (h *AdminHandler) Deposit(c echo.Context) error {
	playerID, err := playerIDFromPath(c)
	if err != nil {
		return err
	}

	var reqBody AdminAmountRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Deposit(c.Request().Context(), playerID, reqBody.Currency, reqBody.Amount)
	if err != nil {
		return err
	}

	return c.JSON(statusCodeForResult(result), newTransactionResponse(result))
}

// Withdraw 出金ハンドラー
func (h *AdminHandler) Withdraw(c echo.Context) error {
	playerID, err := playerIDFromPath(c)
	if err != nil {
		return err
	}

	var reqBody AdminAmountRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Withdraw(c.Request().Context(), playerID, reqBody.Currency, reqBody.Amount)
	if err != nil {
		return err
	}

	return c.JSON(statusCodeForResult(result), newTransactionResponse(result))
}

// SetBalance 残高設定ハンドラー
func (h *AdminHandler) SetBalance(c echo.Context) error {
	playerID, err := playerIDFromPath(c)
	if err != nil {
		return err
	}

	var reqBody AdminAmountRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.SetBalance(c.Request().Context(), playerID, reqBody.Currency, reqBody.Amount)
	if err != nil {
		return err
	}

	return c.JSON(statusCodeForResult(result), newTransactionResponse(result))
}

// Reset 全通貨の残高リセットハンドラー
func (h *AdminHandler) Reset(c echo.Context) error {
	playerID, err := playerIDFromPath(c)
	if err != nil {
		return err
	}

	result, err := h.service.Reset(c.Request().Context(), playerID)
	if err != nil {
		return err
	}

	return c.JSON(statusCodeForResult(result), newTransactionResponse(result))
}

// Transfer 送金ハンドラー
// プレイヤーAPIの/payと異なり送金制限の検証を行わない。
func (h *AdminHandler) Transfer(c echo.Context) error {
	playerID, err := playerIDFromPath(c)
	if err != nil {
		return err
	}

	var reqBody AdminTransferRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	targetID, err := uuid.Parse(reqBody.TargetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "target_id must be a valid UUID")
	}

	result, err := h.service.Transfer(c.Request().Context(), playerID, targetID, reqBody.Currency, reqBody.Amount)
	if err != nil {
		return err
	}

	return c.JSON(statusCodeForResult(result), newTransactionResponse(result))
}

// CreateAccount 口座作成ハンドラー
func (h *AdminHandler) CreateAccount(c echo.Context) error {
	var reqBody CreateAccountRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	playerID, err := uuid.Parse(reqBody.PlayerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "player_id must be a valid UUID")
	}

	acc, err := h.service.CreateAccount(c.Request().Context(), playerID, reqBody.Name)
	if err != nil {
		return err
	}

	balances, err := h.service.Balances(c.Request().Context(), playerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, AccountResponse{
		PlayerID: playerID.String(),
		Name:     acc.Name(),
		Balances: balances,
	})
}

// GetAccount 口座取得ハンドラー
func (h *AdminHandler) GetAccount(c echo.Context) error {
	playerID, err := playerIDFromPath(c)
	if err != nil {
		return err
	}

	acc, err := h.service.GetAccount(c.Request().Context(), playerID)
	if err != nil {
		return err
	}

	balances, err := h.service.Balances(c.Request().Context(), playerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AccountResponse{
		PlayerID: playerID.String(),
		Name:     acc.Name(),
		Balances: balances,
	})
}

// DeleteAccount 口座削除ハンドラー
func (h *AdminHandler) DeleteAccount(c echo.Context) error {
	playerID, err := playerIDFromPath(c)
	if err != nil {
		return err
	}

	deleted, err := h.service.DeleteAccount(c.Request().Context(), playerID)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if !deleted {
		status = http.StatusNotFound
	}
	return c.JSON(status, DeleteAccountResponse{
		PlayerID: playerID.String(),
		Deleted:  deleted,
	})
}

// GetStats サーバー統計取得ハンドラー
func (h *AdminHandler) GetStats(c echo.Context) error {
	count, err := h.service.AccountCount(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, StatsResponse{
		Accounts:   count,
		Currencies: len(h.service.Currencies()),
	})
}

// RegisterCurrency 通貨登録ハンドラー
// 識別子の重複は409を返す。プライマリ指定は既存のプライマリを置き換える。
func (h *AdminHandler) RegisterCurrency(c echo.Context) error {
	var reqBody RegisterCurrencyRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cur, err := currency.NewCurrency(currency.Definition{
		Identifier:     reqBody.Identifier,
		DisplayName:    reqBody.DisplayName,
		NameSingular:   reqBody.NameSingular,
		NamePlural:     reqBody.NamePlural,
		Symbol:         reqBody.Symbol,
		DecimalPlaces:  reqBody.DecimalPlaces,
		DefaultBalance: reqBody.DefaultBalance,
		MinBalance:     reqBody.MinBalance,
		MaxBalance:     reqBody.MaxBalance,
		Primary:        reqBody.Primary,
		ItemBacked:     reqBody.ItemBacked,
		ItemType:       reqBody.ItemType,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.RegisterCurrency(c.Request().Context(), cur); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, CurrencyInfo{
		Identifier:     cur.Identifier(),
		DisplayName:    cur.DisplayName(),
		Symbol:         cur.Symbol(),
		DecimalPlaces:  cur.DecimalPlaces(),
		DefaultBalance: cur.DefaultBalance(),
		MinBalance:     cur.MinBalance(),
		MaxBalance:     cur.MaxBalance(),
		Primary:        cur.IsPrimary(),
	})
}

// UnregisterCurrency 通貨登録解除ハンドラー
// 保存済みの残高はそのまま残る。
func (h *AdminHandler) UnregisterCurrency(c echo.Context) error {
	identifier := c.Param("currency_id")

	if err := h.service.UnregisterCurrency(c.Request().Context(), identifier); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, UnregisterCurrencyResponse{
		Identifier:   identifier,
		Unregistered: true,
	})
}

// GetCurrencies 登録済み通貨の一覧取得ハンドラー
func (h *AdminHandler) GetCurrencies(c echo.Context) error {
	currencies := h.service.Currencies()

	infos := make([]CurrencyInfo, len(currencies))
	for i, cur := range currencies {
		infos[i] = CurrencyInfo{
			Identifier:     cur.Identifier(),
			DisplayName:    cur.DisplayName(),
			Symbol:         cur.Symbol(),
			DecimalPlaces:  cur.DecimalPlaces(),
			DefaultBalance: cur.DefaultBalance(),
			MinBalance:     cur.MinBalance(),
			MaxBalance:     cur.MaxBalance(),
			Primary:        cur.IsPrimary(),
		}
	}

	return c.JSON(http.StatusOK, CurrenciesResponse{
		Currencies: infos,
	})
}
