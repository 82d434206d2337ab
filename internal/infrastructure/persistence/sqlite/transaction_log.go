package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"ledger-server/internal/domain/transaction"
)

// TransactionLog SQLite実装のtransaction.Recorder
//
// 成功したトランザクションの監査ログを専用データベースに追記する。
// 口座ストレージとは独立したファイルを使う。
type TransactionLog struct {
	path   string
	db     *sql.DB
	tracer trace.Tracer
}

// NewTransactionLog 新しいTransactionLogを作成
func NewTransactionLog(path string) *TransactionLog {
	return &TransactionLog{
		path:   path,
		tracer: otel.Tracer("transaction-log"),
	}
}

// Initialize データベースを開いてスキーマを作成
func (l *TransactionLog) Initialize(ctx context.Context) error {
	ctx, span := l.tracer.Start(ctx, "TransactionLog.Initialize")
	defer span.End()

	span.SetAttributes(attribute.String("storage.path", l.path))

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", l.path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS transactions (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			player_id        TEXT NOT NULL,
			target_id        TEXT,
			type             TEXT NOT NULL,
			currency_id      TEXT NOT NULL,
			amount           REAL NOT NULL,
			previous_balance REAL NOT NULL,
			new_balance      REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_player ON transactions(player_id, timestamp DESC);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to create schema: %w", err)
	}

	l.db = db
	span.SetStatus(otelcodes.Ok, "transaction log initialized")
	return nil
}

// Close データベース接続を閉じる
func (l *TransactionLog) Close(ctx context.Context) error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record トランザクションを追記する
func (l *TransactionLog) Record(ctx context.Context, record transaction.Record) error {
	ctx, span := l.tracer.Start(ctx, "TransactionLog.Record")
	defer span.End()

	span.SetAttributes(
		attribute.String("audit.player_id", record.PlayerID.String()),
		attribute.String("audit.type", record.Type.String()),
		attribute.String("audit.currency_id", record.CurrencyID),
	)

	var targetID interface{}
	if record.TargetID != nil {
		targetID = record.TargetID.String()
	}

	timestamp := record.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO transactions (timestamp, player_id, target_id, type, currency_id, amount, previous_balance, new_balance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		timestamp.UnixMilli(),
		record.PlayerID.String(),
		targetID,
		record.Type.String(),
		record.CurrencyID,
		record.Amount,
		record.PreviousBalance,
		record.NewBalance,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "transaction recorded")
	return nil
}

// History 指定プレイヤーの履歴を新しい順に返す
func (l *TransactionLog) History(ctx context.Context, playerID uuid.UUID, limit int) ([]transaction.Record, error) {
	ctx, span := l.tracer.Start(ctx, "TransactionLog.History")
	defer span.End()

	span.SetAttributes(
		attribute.String("audit.player_id", playerID.String()),
		attribute.Int("audit.limit", limit),
	)

	if limit <= 0 {
		return []transaction.Record{}, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT timestamp, player_id, target_id, type, currency_id, amount, previous_balance, new_balance
		FROM transactions
		WHERE player_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, playerID.String(), limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := make([]transaction.Record, 0, limit)
	for rows.Next() {
		var (
			timestampMilli int64
			playerIDStr    string
			targetIDStr    sql.NullString
			typeStr        string
			currencyID     string
			amount         float64
			previous       float64
			current        float64
		)
		if err := rows.Scan(&timestampMilli, &playerIDStr, &targetIDStr, &typeStr, &currencyID, &amount, &previous, &current); err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		pid, err := uuid.Parse(playerIDStr)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, fmt.Errorf("invalid player id in log: %w", err)
		}
		txType, err := transaction.NewTransactionType(typeStr)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, fmt.Errorf("invalid transaction type in log: %w", err)
		}

		record := transaction.Record{
			Timestamp:       time.UnixMilli(timestampMilli),
			PlayerID:        pid,
			Type:            txType,
			CurrencyID:      currencyID,
			Amount:          amount,
			PreviousBalance: previous,
			NewBalance:      current,
		}
		if targetIDStr.Valid {
			tid, err := uuid.Parse(targetIDStr.String)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(otelcodes.Error, err.Error())
				return nil, fmt.Errorf("invalid target id in log: %w", err)
			}
			record.TargetID = &tid
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "history loaded")
	return records, nil
}

// Count 記録済みトランザクションの総数を返す
func (l *TransactionLog) Count(ctx context.Context) (int64, error) {
	ctx, span := l.tracer.Start(ctx, "TransactionLog.Count")
	defer span.End()

	var count int64
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
