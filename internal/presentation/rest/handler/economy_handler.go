package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ledger-server/internal/application/economy"
	"ledger-server/internal/domain/currency"
	"ledger-server/internal/infrastructure/config"
	restmiddleware "ledger-server/internal/presentation/rest/middleware"
)

// EconomyHandler プレイヤー向けの台帳ハンドラー
type EconomyHandler struct {
	service *economy.Service
	payCfg  *config.PayConfig
	topCfg  *config.BaltopConfig

	payMu   sync.Mutex
	lastPay map[uuid.UUID]time.Time
}

// NewEconomyHandler 新しいEconomyHandlerを作成
func NewEconomyHandler(service *economy.Service, payCfg *config.PayConfig, topCfg *config.BaltopConfig) *EconomyHandler {
	return &EconomyHandler{
		service: service,
		payCfg:  payCfg,
		topCfg:  topCfg,
		lastPay: make(map[uuid.UUID]time.Time),
	}
}

// checkPayCooldown 送金クールダウンを検証し、通過したら最終送金時刻を更新する
func (h *EconomyHandler) checkPayCooldown(playerID uuid.UUID) error {
	if h.payCfg.Cooldown <= 0 {
		return nil
	}

	h.payMu.Lock()
	defer h.payMu.Unlock()

	if last, ok := h.lastPay[playerID]; ok {
		if remaining := h.payCfg.Cooldown - time.Since(last); remaining > 0 {
			return echo.NewHTTPError(http.StatusTooManyRequests,
				fmt.Sprintf("pay cooldown active, retry in %s", remaining.Round(time.Second)))
		}
	}
	h.lastPay[playerID] = time.Now()
	return nil
}

// resolveCurrency クエリパラメータから通貨を解決（空文字列はプライマリ通貨）
func (h *EconomyHandler) resolveCurrency(currencyID string) (*currency.Currency, error) {
	if currencyID == "" {
		return h.service.PrimaryCurrency()
	}
	return h.service.Currency(currencyID)
}

// playerIDFromToken 認証ミドルウェアが設定したプレイヤーIDを取得
func playerIDFromToken(c echo.Context) (uuid.UUID, error) {
	playerID, ok := c.Get(restmiddleware.ContextKeyPlayerID).(uuid.UUID)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "player_id not found in token")
	}
	return playerID, nil
}

// GetBalance 自分の残高取得ハンドラー
// currencyクエリパラメータが空の場合はプライマリ通貨を返す。
func (h *EconomyHandler) GetBalance(c echo.Context) error {
	playerID, err := playerIDFromToken(c)
	if err != nil {
		return err
	}

	cur, err := h.resolveCurrency(c.QueryParam("currency"))
	if err != nil {
		return err
	}

	balance, err := h.service.Balance(c.Request().Context(), playerID, cur.Identifier())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, BalanceResponse{
		PlayerID:  playerID.String(),
		Currency:  cur.Identifier(),
		Balance:   balance,
		Formatted: cur.Format(balance),
	})
}

// GetBalances 自分の全通貨残高の取得ハンドラー
func (h *EconomyHandler) GetBalances(c echo.Context) error {
	playerID, err := playerIDFromToken(c)
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

	return c.JSON(http.StatusOK, BalancesResponse{
		PlayerID: playerID.String(),
		Name:     acc.Name(),
		Balances: balances,
	})
}

// Pay プレイヤー間送金ハンドラー
// 送金額の上下限と自分宛て送金の可否は設定で制御される。
func (h *EconomyHandler) Pay(c echo.Context) error {
	playerID, err := playerIDFromToken(c)
	if err != nil {
		return err
	}

	var reqBody PayRequest
	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	targetID, err := uuid.Parse(reqBody.TargetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "target_id must be a valid UUID")
	}

	if targetID == playerID && !h.payCfg.AllowSelf {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot pay yourself")
	}
	if reqBody.Amount < h.payCfg.MinAmount {
		return echo.NewHTTPError(http.StatusBadRequest, "amount is below the minimum payment")
	}
	if h.payCfg.MaxAmount > 0 && reqBody.Amount > h.payCfg.MaxAmount {
		return echo.NewHTTPError(http.StatusBadRequest, "amount exceeds the maximum payment")
	}
	if err := h.checkPayCooldown(playerID); err != nil {
		return err
	}

	result, err := h.service.Transfer(c.Request().Context(), playerID, targetID, reqBody.Currency, reqBody.Amount)
	if err != nil {
		return err
	}

	return c.JSON(statusCodeForResult(result), newTransactionResponse(result))
}

// GetBaltop 残高ランキング取得ハンドラー
func (h *EconomyHandler) GetBaltop(c echo.Context) error {
	currencyID := c.QueryParam("currency")

	limit := h.topCfg.Size
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit parameter")
		}
		limit = parsed
	}

	cur, err := h.resolveCurrency(currencyID)
	if err != nil {
		return err
	}

	entries, err := h.service.TopBalances(c.Request().Context(), cur.Identifier(), limit)
	if err != nil {
		return err
	}

	respEntries := make([]BaltopEntry, len(entries))
	for i, entry := range entries {
		respEntries[i] = BaltopEntry{
			Rank:     entry.Rank,
			PlayerID: entry.PlayerID.String(),
			Name:     entry.Name,
			Balance:  entry.Balance,
		}
	}

	return c.JSON(http.StatusOK, BaltopResponse{
		Currency: cur.Identifier(),
		Entries:  respEntries,
	})
}
