package account

import (
	"github.com/google/uuid"
)

// Snapshot 口座の永続化表現（バックエンド非依存）
type Snapshot struct {
	ID       uuid.UUID          `json:"id"`
	Name     string             `json:"name"`
	Balances map[string]float64 `json:"balances"`
}
