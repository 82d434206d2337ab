package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentNotification プレイヤー間送金の通知ペイロード
type PaymentNotification struct {
	FromID     uuid.UUID `json:"from_id"`
	FromName   string    `json:"from_name"`
	ToID       uuid.UUID `json:"to_id"`
	ToName     string    `json:"to_name"`
	CurrencyID string    `json:"currency_id"`
	Amount     float64   `json:"amount"`
	Formatted  string    `json:"formatted"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier 送金通知の配送インターフェース
type Notifier interface {
	// NotifyPayment 送金成立を通知する
	NotifyPayment(ctx context.Context, n PaymentNotification) error
}

// Noop 何も配送しないNotifier
type Noop struct{}

// NewNoop 新しいNoopを作成
func NewNoop() *Noop {
	return &Noop{}
}

// NotifyPayment 何もしない
func (n *Noop) NotifyPayment(ctx context.Context, _ PaymentNotification) error {
	return nil
}
