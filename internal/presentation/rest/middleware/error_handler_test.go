package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"ledger-server/internal/domain/account"
	"ledger-server/internal/domain/currency"
	otelinfra "ledger-server/internal/infrastructure/observability/otel"
)

func TestErrorHandlerMiddleware_NoError(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	logger := otelinfra.NewLogger(tracer)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	middleware := ErrorHandlerMiddleware(logger)
	handler := middleware(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	err := handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorHandlerMiddleware_DomainErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "異常系: 口座が存在しない",
			err:            account.ErrAccountNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "異常系: 口座が既に存在する",
			err:            account.ErrAccountAlreadyExists,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "異常系: 残高不足",
			err:            account.ErrInsufficientFunds,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "異常系: 金額が無効",
			err:            account.ErrInvalidAmount,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "異常系: 最大残高の超過",
			err:            account.ErrBalanceOverflow,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "異常系: 最小残高の下回り",
			err:            account.ErrBalanceUnderflow,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "異常系: 通貨が存在しない",
			err:            currency.ErrCurrencyNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "異常系: プライマリ通貨が未設定",
			err:            currency.ErrNoPrimaryCurrency,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "異常系: 通貨が登録済み",
			err:            currency.ErrCurrencyAlreadyRegistered,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer := noop.NewTracerProvider().Tracer("test")
			logger := otelinfra.NewLogger(tracer)

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			middleware := ErrorHandlerMiddleware(logger)
			handler := middleware(func(c echo.Context) error {
				return tt.err
			})

			err := handler(c)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestErrorHandlerMiddleware_HTTPError(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	logger := otelinfra.NewLogger(tracer)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	middleware := ErrorHandlerMiddleware(logger)
	handler := middleware(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request")
	})

	err := handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorHandlerMiddleware_HTTPErrorWithNonStringMessage(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	logger := otelinfra.NewLogger(tracer)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	middleware := ErrorHandlerMiddleware(logger)
	handler := middleware(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, 123) // 数値型のメッセージ
	})

	err := handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorHandlerMiddleware_UnknownError(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	logger := otelinfra.NewLogger(tracer)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	middleware := ErrorHandlerMiddleware(logger)
	handler := middleware(func(c echo.Context) error {
		return errors.New("unknown error")
	})

	err := handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestErrorHandlerMiddleware_WrappedError(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	logger := otelinfra.NewLogger(tracer)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	middleware := ErrorHandlerMiddleware(logger)
	handler := middleware(func(c echo.Context) error {
		return errors.Join(account.ErrInsufficientFunds, errors.New("wrapped error"))
	})

	err := handler(c)
	require.NoError(t, err)
	// errors.Joinでラップされたエラーでも、errors.Isで判定できる
	assert.Equal(t, http.StatusConflict, rec.Code)
}
