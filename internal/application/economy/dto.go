package economy

import (
	"github.com/google/uuid"
)

// BaltopEntry 残高ランキングの1エントリ
type BaltopEntry struct {
	Rank     int
	PlayerID uuid.UUID
	Name     string
	Balance  float64
}
