package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledger-server/internal/domain/account"
)

// AccountStorage MySQL実装のStorageProvider
type AccountStorage struct {
	db     *DB
	tracer trace.Tracer
}

// NewAccountStorage 新しいAccountStorageを作成
func NewAccountStorage(db *DB) *AccountStorage {
	return &AccountStorage{
		db:     db,
		tracer: otel.Tracer("mysql-storage"),
	}
}

// Initialize スキーマを作成
func (s *AccountStorage) Initialize(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "AccountStorage.Initialize")
	defer span.End()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id   VARCHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			PRIMARY KEY (id)
		)`,
		`CREATE TABLE IF NOT EXISTS balances (
			account_id  VARCHAR(36) NOT NULL,
			currency_id VARCHAR(32) NOT NULL,
			balance     DOUBLE NOT NULL,
			PRIMARY KEY (account_id, currency_id),
			INDEX idx_balances_currency (currency_id, balance DESC)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	span.SetStatus(otelcodes.Ok, "storage initialized")
	return nil
}

// Close データベース接続を閉じる
func (s *AccountStorage) Close(ctx context.Context) error {
	return s.db.Close()
}

// HasAccount 口座レコードが存在するかどうかを返す
func (s *AccountStorage) HasAccount(ctx context.Context, playerID uuid.UUID) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "AccountStorage.HasAccount")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.player_id", playerID.String()),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "accounts"),
	)

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, playerID.String()).Scan(&exists)
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
func (s *AccountStorage) LoadAccount(ctx context.Context, playerID uuid.UUID) (*account.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "AccountStorage.LoadAccount")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.player_id", playerID.String()),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "accounts"),
	)

	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM accounts WHERE id = ?`, playerID.String()).Scan(&name)
	if err == sql.ErrNoRows {
		span.SetStatus(otelcodes.Ok, "account not found")
		return nil, account.ErrAccountNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT currency_id, balance FROM balances WHERE account_id = ?`, playerID.String())
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
func (s *AccountStorage) SaveAccount(ctx context.Context, snapshot *account.Snapshot) error {
	ctx, span := s.tracer.Start(ctx, "AccountStorage.SaveAccount")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.player_id", snapshot.ID.String()),
		attribute.String("db.operation", "UPSERT"),
		attribute.String("db.table", "accounts"),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, name) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name)
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
func (s *AccountStorage) DeleteAccount(ctx context.Context, playerID uuid.UUID) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "AccountStorage.DeleteAccount")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.player_id", playerID.String()),
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.table", "accounts"),
	)

	tx, err := s.db.BeginTx(ctx, nil)
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

	span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	return rowsAffected > 0, nil
}

// TopBalances 指定通貨の残高上位の口座IDを降順で返す
// 対象通貨の残高が未記録の口座も残高0として順位に含まれる。
func (s *AccountStorage) TopBalances(ctx context.Context, currencyID string, limit int) ([]uuid.UUID, error) {
	ctx, span := s.tracer.Start(ctx, "AccountStorage.TopBalances")
	defer span.End()

	span.SetAttributes(
		attribute.String("db.currency_id", currencyID),
		attribute.Int("db.limit", limit),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.table", "balances"),
	)

	if limit <= 0 {
		return []uuid.UUID{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
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
func (s *AccountStorage) AccountCount(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "AccountStorage.AccountCount")
	defer span.End()

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// Type ストレージ種別を返す
func (s *AccountStorage) Type() string {
	return "mysql"
}
