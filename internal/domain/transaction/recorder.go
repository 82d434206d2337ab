package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record 監査ログの1レコード
type Record struct {
	Timestamp       time.Time
	PlayerID        uuid.UUID
	TargetID        *uuid.UUID
	Type            TransactionType
	CurrencyID      string
	Amount          float64
	PreviousBalance float64
	NewBalance      float64
}

// Recorder 確定済みトランザクションの監査ログインターフェース
type Recorder interface {
	// Record トランザクションを記録
	Record(ctx context.Context, record Record) error

	// History プレイヤーの取引履歴を取得（送金元・送金先の両方を含む、新しい順）
	History(ctx context.Context, playerID uuid.UUID, limit int) ([]Record, error)

	// Count 記録済みトランザクションの総数を取得
	Count(ctx context.Context) (int64, error)
}
