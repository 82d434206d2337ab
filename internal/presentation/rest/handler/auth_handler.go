package handler

import (
	"net/http"

	authapp "ledger-server/internal/application/auth"

	"github.com/labstack/echo/v4"
)

// GenerateTokenRequest トークン生成リクエスト
type GenerateTokenRequest struct {
	PlayerID string `json:"player_id" example:"7b1c3f14-9a75-4ba0-96c5-2f21e52b1d8f"`
}

// GenerateTokenResponse トークン生成レスポンス
type GenerateTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in" example:"3600"`
	TokenType string `json:"token_type" example:"Bearer"`
}

// ErrorResponse エラーレスポンス
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// AuthHandler 認証関連ハンドラー
type AuthHandler struct {
	authService *authapp.AuthApplicationService
}

// NewAuthHandler 新しいAuthHandlerを作成
func NewAuthHandler(authService *authapp.AuthApplicationService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// GenerateToken プレイヤートークン生成ハンドラー
// ゲームサーバーがプレイヤーの代理でAPIを呼び出すためのJWTを発行する。
func (h *AuthHandler) GenerateToken(c echo.Context) error {
	var reqBody GenerateTokenRequest

	if err := c.Bind(&reqBody); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if reqBody.PlayerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "player_id is required")
	}

	req := &authapp.GenerateTokenRequest{
		PlayerID: reqBody.PlayerID,
	}

	resp, err := h.authService.GenerateToken(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, GenerateTokenResponse{
		Token:     resp.Token,
		ExpiresIn: int(resp.ExpiresIn),
		TokenType: resp.TokenType,
	})
}
