package account

import (
	"context"

	"github.com/google/uuid"
)

// StorageProvider 口座の永続化バックエンドインターフェース
//
// すべての操作はコンテキスト付きで呼び出され、呼び出し側のゴルーチン上で
// 完了まで実行される。バックエンドの実装差（ファイル／RDB）をエンジン側で
// 特別扱いしてはならない。
type StorageProvider interface {
	// Initialize ストレージを初期化（起動時に1回呼ばれる）
	Initialize(ctx context.Context) error

	// Close ストレージを閉じてリソースを解放
	Close(ctx context.Context) error

	// HasAccount 口座が存在するかどうかを返す
	HasAccount(ctx context.Context, playerID uuid.UUID) (bool, error)

	// LoadAccount 口座を読み込む（存在しない場合はErrAccountNotFound）
	LoadAccount(ctx context.Context, playerID uuid.UUID) (*Snapshot, error)

	// SaveAccount 口座の全状態をアップサートする（増分保存は要求しない）
	SaveAccount(ctx context.Context, snapshot *Snapshot) error

	// DeleteAccount 口座を削除（レコードが存在し削除された場合にtrue）
	DeleteAccount(ctx context.Context, playerID uuid.UUID) (bool, error)

	// TopBalances 指定通貨の残高上位の口座IDを降順で返す
	TopBalances(ctx context.Context, currencyID string, limit int) ([]uuid.UUID, error)

	// AccountCount 口座の総数を返す
	AccountCount(ctx context.Context) (int64, error)

	// Type ストレージ種別のラベルを返す（診断用）
	Type() string
}
