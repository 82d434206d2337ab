package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ledger-server/internal/application/economy"
)

// HistoryHandler 取引履歴ハンドラー
type HistoryHandler struct {
	service *economy.Service
}

// NewHistoryHandler 新しいHistoryHandlerを作成
func NewHistoryHandler(service *economy.Service) *HistoryHandler {
	return &HistoryHandler{
		service: service,
	}
}

// GetTransactionHistory 取引履歴取得ハンドラー（プレイヤーAPI用）
func (h *HistoryHandler) GetTransactionHistory(c echo.Context) error {
	playerID, err := playerIDFromToken(c)
	if err != nil {
		return err
	}

	return h.getTransactionHistoryInternal(c, playerID)
}

// GetTransactionHistoryAdmin 取引履歴取得ハンドラー（管理API用）
func (h *HistoryHandler) GetTransactionHistoryAdmin(c echo.Context) error {
	playerID, err := uuid.Parse(c.Param("player_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "player_id must be a valid UUID")
	}

	return h.getTransactionHistoryInternal(c, playerID)
}

// getTransactionHistoryInternal 取引履歴取得の内部実装
func (h *HistoryHandler) getTransactionHistoryInternal(c echo.Context, playerID uuid.UUID) error {
	limit := 50 // デフォルト値
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 100 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit parameter")
		}
	}

	records, err := h.service.History(c.Request().Context(), playerID, limit)
	if err != nil {
		return err
	}

	transactions := make([]TransactionItem, len(records))
	for i, record := range records {
		item := TransactionItem{
			Timestamp:       record.Timestamp.UnixMilli(),
			Type:            record.Type.String(),
			Currency:        record.CurrencyID,
			Amount:          record.Amount,
			PreviousBalance: record.PreviousBalance,
			NewBalance:      record.NewBalance,
		}
		if record.TargetID != nil {
			item.TargetID = record.TargetID.String()
		}
		transactions[i] = item
	}

	return c.JSON(http.StatusOK, TransactionHistoryResponse{
		PlayerID:     playerID.String(),
		Transactions: transactions,
		Limit:        limit,
	})
}
