package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminRequest(method, path string, body interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func TestAdminHandler_Deposit(t *testing.T) {
	service := newTestService(t)
	handler := NewAdminHandler(service)

	playerID := uuid.New()
	_, err := service.CreateAccount(context.Background(), playerID, "alice")
	require.NoError(t, err)

	tests := []struct {
		name           string
		playerID       string
		body           AdminAmountRequest
		expectedStatus int
		wantErr        bool
	}{
		{
			name:           "正常系: 入金成功",
			playerID:       playerID.String(),
			body:           AdminAmountRequest{Currency: "coins", Amount: 100},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "正常系: 通貨省略時はプライマリ通貨",
			playerID:       playerID.String(),
			body:           AdminAmountRequest{Amount: 50},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "異常系: 金額が0",
			playerID:       playerID.String(),
			body:           AdminAmountRequest{Currency: "coins", Amount: 0},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "正常系: 未登録のプレイヤーは口座が作られる",
			playerID:       uuid.New().String(),
			body:           AdminAmountRequest{Currency: "coins", Amount: 100},
			expectedStatus: http.StatusOK,
		},
		{
			name:     "異常系: player_idがUUIDではない",
			playerID: "not-a-uuid",
			body:     AdminAmountRequest{Currency: "coins", Amount: 100},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req, rec := adminRequest(http.MethodPost, "/admin/players/"+tt.playerID+"/deposit", tt.body)
			c := e.NewContext(req, rec)
			c.SetParamNames("player_id")
			c.SetParamValues(tt.playerID)

			err := handler.Deposit(c)
			if tt.wantErr {
				var httpErr *echo.HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, http.StatusBadRequest, httpErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestAdminHandler_SetBalance(t *testing.T) {
	service := newTestService(t)
	handler := NewAdminHandler(service)

	playerID := uuid.New()
	_, err := service.CreateAccount(context.Background(), playerID, "alice")
	require.NoError(t, err)

	e := echo.New()
	req, rec := adminRequest(http.MethodPut, "/admin/players/"+playerID.String()+"/balance",
		AdminAmountRequest{Currency: "coins", Amount: 777})
	c := e.NewContext(req, rec)
	c.SetParamNames("player_id")
	c.SetParamValues(playerID.String())

	require.NoError(t, handler.SetBalance(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var response TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "success", response.Status)
	assert.Equal(t, float64(777), response.NewBalance)
}

func TestAdminHandler_Transfer(t *testing.T) {
	service := newTestService(t)
	handler := NewAdminHandler(service)

	fromID := uuid.New()
	toID := uuid.New()
	createFundedAccount(t, service, fromID, "alice", 200)
	createFundedAccount(t, service, toID, "bob", 0)

	e := echo.New()
	req, rec := adminRequest(http.MethodPost, "/admin/players/"+fromID.String()+"/transfer",
		AdminTransferRequest{TargetID: toID.String(), Currency: "coins", Amount: 150})
	c := e.NewContext(req, rec)
	c.SetParamNames("player_id")
	c.SetParamValues(fromID.String())

	require.NoError(t, handler.Transfer(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	balance, err := service.Balance(context.Background(), toID, "coins")
	require.NoError(t, err)
	assert.Equal(t, float64(150), balance)
}

func TestAdminHandler_Reset(t *testing.T) {
	service := newTestService(t)
	handler := NewAdminHandler(service)

	playerID := uuid.New()
	createFundedAccount(t, service, playerID, "alice", 300)

	e := echo.New()
	req, rec := adminRequest(http.MethodPost, "/admin/players/"+playerID.String()+"/reset", nil)
	c := e.NewContext(req, rec)
	c.SetParamNames("player_id")
	c.SetParamValues(playerID.String())

	require.NoError(t, handler.Reset(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	balance, err := service.Balance(context.Background(), playerID, "coins")
	require.NoError(t, err)
	assert.Equal(t, float64(0), balance)
}

func TestAdminHandler_CreateAndDeleteAccount(t *testing.T) {
	service := newTestService(t)
	handler := NewAdminHandler(service)

	playerID := uuid.New()

	e := echo.New()
	req, rec := adminRequest(http.MethodPost, "/admin/players",
		CreateAccountRequest{PlayerID: playerID.String(), Name: "alice"})
	c := e.NewContext(req, rec)

	require.NoError(t, handler.CreateAccount(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.Name)

	// 削除
	req, rec = adminRequest(http.MethodDelete, "/admin/players/"+playerID.String(), nil)
	c = e.NewContext(req, rec)
	c.SetParamNames("player_id")
	c.SetParamValues(playerID.String())

	require.NoError(t, handler.DeleteAccount(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// 二重削除は404
	req, rec = adminRequest(http.MethodDelete, "/admin/players/"+playerID.String(), nil)
	c = e.NewContext(req, rec)
	c.SetParamNames("player_id")
	c.SetParamValues(playerID.String())

	require.NoError(t, handler.DeleteAccount(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminHandler_RegisterAndUnregisterCurrency(t *testing.T) {
	service := newTestService(t)
	handler := NewAdminHandler(service)

	e := echo.New()
	req, rec := adminRequest(http.MethodPost, "/admin/currencies", RegisterCurrencyRequest{
		Identifier:    "gems",
		DisplayName:   "Gems",
		NameSingular:  "gem",
		NamePlural:    "gems",
		DecimalPlaces: 0,
		MaxBalance:    100_000,
	})
	c := e.NewContext(req, rec)

	require.NoError(t, handler.RegisterCurrency(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	// 重複登録はエラー
	req, rec = adminRequest(http.MethodPost, "/admin/currencies", RegisterCurrencyRequest{
		Identifier:    "gems",
		NameSingular:  "gem",
		NamePlural:    "gems",
		DecimalPlaces: 0,
		MaxBalance:    100_000,
	})
	c = e.NewContext(req, rec)
	require.Error(t, handler.RegisterCurrency(c))

	// 不正な定義は400
	req, rec = adminRequest(http.MethodPost, "/admin/currencies", RegisterCurrencyRequest{
		Identifier: "Bad Identifier!",
	})
	c = e.NewContext(req, rec)
	err := handler.RegisterCurrency(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)

	// 登録解除
	req, rec = adminRequest(http.MethodDelete, "/admin/currencies/gems", nil)
	c = e.NewContext(req, rec)
	c.SetParamNames("currency_id")
	c.SetParamValues("gems")

	require.NoError(t, handler.UnregisterCurrency(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var response UnregisterCurrencyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Unregistered)
}

func TestAdminHandler_GetStats(t *testing.T) {
	service := newTestService(t)
	handler := NewAdminHandler(service)

	createFundedAccount(t, service, uuid.New(), "alice", 10)
	createFundedAccount(t, service, uuid.New(), "bob", 20)

	e := echo.New()
	req, rec := adminRequest(http.MethodGet, "/admin/stats", nil)
	c := e.NewContext(req, rec)

	require.NoError(t, handler.GetStats(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var response StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, int64(2), response.Accounts)
	assert.Equal(t, 1, response.Currencies)
}
