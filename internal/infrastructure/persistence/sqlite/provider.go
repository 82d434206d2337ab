package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"ledger-server/internal/domain/account"
)

// Provider SQLite実装のStorageProvider
//
// accountsテーブルとbalancesテーブルに口座を保存する。
// SaveAccountは両テーブルを1トランザクションで更新する。
type Provider struct {
	path   string
	db     *sql.DB
	tracer trace.Tracer
}

// NewProvider 新しいProviderを作成
func NewProvider(path string) *Provider {
	return &Provider{
		path:   path,
		tracer: otel.Tracer("sqlite-storage"),
	}
}

// Initialize データベースを開いてスキーマを作成
func (p *Provider) Initialize(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "sqlite.Initialize")
	defer span.End()

	span.SetAttributes(attribute.String("storage.path", p.path))

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", p.path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to open database: %w", err)
	}
	// modernc.org/sqliteは単一コネクションでの利用が安全
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS balances (
			account_id  TEXT NOT NULL,
			currency_id TEXT NOT NULL,
			balance     REAL NOT NULL,
			PRIMARY KEY (account_id, currency_id),
			FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_balances_currency ON balances(currency_id, balance DESC);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to create schema: %w", err)
	}

	p.db = db
	span.SetStatus(otelcodes.Ok, "storage initialized")
	return nil
}

// Close データベース接続を閉じる
func (p *Provider) Close(ctx context.Context) error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// HasAccount 口座レコードが存在するかどうかを返す
func (p *Provider) HasAccount(ctx context.Context, playerID uuid.UUID) (bool, error) {
	ctx, span := p.tracer.Start(ctx, "sqlite.HasAccount")
	defer span.End()

	span.SetAttributes(attribute.String("storage.player_id", playerID.String()))

	var exists int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, playerID.String()).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return true, nil
}

// LoadAccount 口座と残高を読み込む
func (p *Provider) LoadAccount(ctx context.Context, playerID uuid.UUID) (*account.Snapshot, error) {
	ctx, span := p.tracer.Start(ctx, "sqlite.LoadAccount")
	defer span.End()

	span.SetAttributes(attribute.String("storage.player_id", playerID.String()))

	var name string
	err := p.db.QueryRowContext(ctx, `SELECT name FROM accounts WHERE id = ?`, playerID.String()).Scan(&name)
	if err == sql.ErrNoRows {
		span.SetStatus(otelcodes.Ok, "account not found")
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `SELECT currency_id, balance FROM balances WHERE account_id = ?`, playerID.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]float64)
	for rows.Next() {
		var currencyID string
		var balance float64
		if err := rows.Scan(&currencyID, &balance); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances[currencyID] = balance
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "account loaded")
	return &account.Snapshot{
		ID:       playerID,
		Name:     name,
		Balances: balances,
	}, nil
}

// SaveAccount 口座の全状態を1トランザクションでアップサートする
func (p *Provider) SaveAccount(ctx context.Context, snapshot *account.Snapshot) error {
	ctx, span := p.tracer.Start(ctx, "sqlite.SaveAccount")
	defer span.End()

	span.SetAttributes(attribute.String("storage.player_id", snapshot.ID.String()))

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, snapshot.ID.String(), snapshot.Name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM balances WHERE account_id = ?`, snapshot.ID.String()); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to clear balances: %w", err)
	}

	for currencyID, balance := range snapshot.Balances {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO balances (account_id, currency_id, balance) VALUES (?, ?, ?)
		`, snapshot.ID.String(), currencyID, balance)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return fmt.Errorf("failed to insert balance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to commit account save: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "account saved")
	return nil
}

// DeleteAccount 口座と残高を削除する
func (p *Provider) DeleteAccount(ctx context.Context, playerID uuid.UUID) (bool, error) {
	ctx, span := p.tracer.Start(ctx, "sqlite.DeleteAccount")
	defer span.End()

	span.SetAttributes(attribute.String("storage.player_id", playerID.String()))

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM balances WHERE account_id = ?`, playerID.String()); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, fmt.Errorf("failed to delete balances: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, playerID.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, fmt.Errorf("failed to delete account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, fmt.Errorf("failed to commit account delete: %w", err)
	}

	return rowsAffected > 0, nil
}

// TopBalances 指定通貨の残高上位の口座IDを降順で返す
// 対象通貨の残高が未記録の口座も残高0として順位に含まれる。
func (p *Provider) TopBalances(ctx context.Context, currencyID string, limit int) ([]uuid.UUID, error) {
	ctx, span := p.tracer.Start(ctx, "sqlite.TopBalances")
	defer span.End()

	span.SetAttributes(
		attribute.String("storage.currency_id", currencyID),
		attribute.Int("storage.limit", limit),
	)

	if limit <= 0 {
		return []uuid.UUID{}, nil
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT a.id
		FROM accounts a
		LEFT JOIN balances b ON b.account_id = a.id AND b.currency_id = ?
		ORDER BY COALESCE(b.balance, 0) DESC, a.id ASC
		LIMIT ?
	`, currencyID, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query top balances: %w", err)
	}
	defer rows.Close()

	result := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		playerID, err := uuid.Parse(id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, fmt.Errorf("invalid account id in storage: %w", err)
		}
		result = append(result, playerID)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate top balances: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "top balances computed")
	return result, nil
}

// AccountCount 口座の総数を返す
func (p *Provider) AccountCount(ctx context.Context) (int64, error) {
	ctx, span := p.tracer.Start(ctx, "sqlite.AccountCount")
	defer span.End()

	var count int64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// Type ストレージ種別を返す
func (p *Provider) Type() string {
	return "sqlite"
}
