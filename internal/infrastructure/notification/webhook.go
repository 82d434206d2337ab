package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Webhook HTTP実装のNotifier
//
// 送金通知をJSONで設定済みのエンドポイントへPOSTする。
// 配送失敗はエラーとして返すが、トランザクション自体には影響しない
// （呼び出し側が非同期で配送しログに残す）。
type Webhook struct {
	url    string
	client *http.Client
	tracer trace.Tracer
}

// NewWebhook 新しいWebhookを作成
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		tracer: otel.Tracer("payment-webhook"),
	}
}

// NotifyPayment 送金通知をPOSTする
func (w *Webhook) NotifyPayment(ctx context.Context, n PaymentNotification) error {
	ctx, span := w.tracer.Start(ctx, "Webhook.NotifyPayment")
	defer span.End()

	span.SetAttributes(
		attribute.String("notify.from_id", n.FromID.String()),
		attribute.String("notify.to_id", n.ToID.String()),
		attribute.String("notify.currency_id", n.CurrencyID),
	)

	body, err := json.Marshal(n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}

	span.SetStatus(otelcodes.Ok, "notification delivered")
	return nil
}
