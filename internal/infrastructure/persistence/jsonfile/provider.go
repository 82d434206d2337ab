package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledger-server/internal/domain/account"
)

// Provider JSONファイル実装のStorageProvider
//
// 口座ごとに1ファイル（<uuid>.json）をディレクトリに保存する。
// 書き込みは一時ファイルへ書いてからリネームする。
type Provider struct {
	dir    string
	tracer trace.Tracer
}

// NewProvider 新しいProviderを作成
func NewProvider(dir string) *Provider {
	return &Provider{
		dir:    dir,
		tracer: otel.Tracer("jsonfile-storage"),
	}
}

// Initialize 口座ディレクトリを作成
func (p *Provider) Initialize(ctx context.Context) error {
	_, span := p.tracer.Start(ctx, "jsonfile.Initialize")
	defer span.End()

	span.SetAttributes(attribute.String("storage.dir", p.dir))

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to create account directory: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "storage initialized")
	return nil
}

// Close 保持リソースなし
func (p *Provider) Close(ctx context.Context) error {
	return nil
}

// HasAccount 口座ファイルが存在するかどうかを返す
func (p *Provider) HasAccount(ctx context.Context, playerID uuid.UUID) (bool, error) {
	_, span := p.tracer.Start(ctx, "jsonfile.HasAccount")
	defer span.End()

	span.SetAttributes(attribute.String("storage.player_id", playerID.String()))

	_, err := os.Stat(p.accountPath(playerID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, fmt.Errorf("failed to stat account file: %w", err)
	}
	return true, nil
}

// LoadAccount 口座ファイルを読み込む
func (p *Provider) LoadAccount(ctx context.Context, playerID uuid.UUID) (*account.Snapshot, error) {
	_, span := p.tracer.Start(ctx, "jsonfile.LoadAccount")
	defer span.End()

	span.SetAttributes(attribute.String("storage.player_id", playerID.String()))

	data, err := os.ReadFile(p.accountPath(playerID))
	if err != nil {
		if os.IsNotExist(err) {
			span.SetStatus(otelcodes.Ok, "account not found")
			return nil, account.ErrAccountNotFound
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to read account file: %w", err)
	}

	var snapshot account.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to decode account file: %w", err)
	}
	if snapshot.Balances == nil {
		snapshot.Balances = make(map[string]float64)
	}

	span.SetStatus(otelcodes.Ok, "account loaded")
	return &snapshot, nil
}

// SaveAccount 口座の全状態をファイルに書き込む
func (p *Provider) SaveAccount(ctx context.Context, snapshot *account.Snapshot) error {
	_, span := p.tracer.Start(ctx, "jsonfile.SaveAccount")
	defer span.End()

	span.SetAttributes(attribute.String("storage.player_id", snapshot.ID.String()))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to encode account: %w", err)
	}

	path := p.accountPath(snapshot.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to write account file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return fmt.Errorf("failed to replace account file: %w", err)
	}

	span.SetStatus(otelcodes.Ok, "account saved")
	return nil
}

// DeleteAccount 口座ファイルを削除する
func (p *Provider) DeleteAccount(ctx context.Context, playerID uuid.UUID) (bool, error) {
	_, span := p.tracer.Start(ctx, "jsonfile.DeleteAccount")
	defer span.End()

	span.SetAttributes(attribute.String("storage.player_id", playerID.String()))

	err := os.Remove(p.accountPath(playerID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, fmt.Errorf("failed to delete account file: %w", err)
	}
	return true, nil
}

// TopBalances 指定通貨の残高上位の口座IDを降順で返す
// 対象通貨の残高が未記録の口座も残高0として順位に含まれる。
func (p *Provider) TopBalances(ctx context.Context, currencyID string, limit int) ([]uuid.UUID, error) {
	ctx, span := p.tracer.Start(ctx, "jsonfile.TopBalances")
	defer span.End()

	span.SetAttributes(
		attribute.String("storage.currency_id", currencyID),
		attribute.Int("storage.limit", limit),
	)

	if limit <= 0 {
		return []uuid.UUID{}, nil
	}

	snapshots, err := p.LoadAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}

	type ranked struct {
		id      uuid.UUID
		balance float64
	}
	entries := make([]ranked, 0, len(snapshots))
	for _, snapshot := range snapshots {
		entries = append(entries, ranked{id: snapshot.ID, balance: snapshot.Balances[currencyID]})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].balance != entries[j].balance {
			return entries[i].balance > entries[j].balance
		}
		// 同額は口座IDで安定化
		return entries[i].id.String() < entries[j].id.String()
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	result := make([]uuid.UUID, len(entries))
	for i, entry := range entries {
		result[i] = entry.id
	}

	span.SetStatus(otelcodes.Ok, "top balances computed")
	return result, nil
}

// AccountCount 口座ファイルの総数を返す
func (p *Provider) AccountCount(ctx context.Context) (int64, error) {
	_, span := p.tracer.Start(ctx, "jsonfile.AccountCount")
	defer span.End()

	files, err := p.accountFiles()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return 0, err
	}
	return int64(len(files)), nil
}

// LoadAll すべての口座を読み込む（起動時のキャッシュ充填用）
func (p *Provider) LoadAll(ctx context.Context) ([]*account.Snapshot, error) {
	files, err := p.accountFiles()
	if err != nil {
		return nil, err
	}

	snapshots := make([]*account.Snapshot, 0, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".json")
		playerID, err := uuid.Parse(name)
		if err != nil {
			// 口座ファイル以外は無視
			continue
		}
		snapshot, err := p.LoadAccount(ctx, playerID)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// Type ストレージ種別を返す
func (p *Provider) Type() string {
	return "json"
}

// accountPath 口座ファイルのパスを返す
func (p *Provider) accountPath(playerID uuid.UUID) string {
	return filepath.Join(p.dir, playerID.String()+".json")
}

// accountFiles ディレクトリ内の口座ファイル一覧を返す
func (p *Provider) accountFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(p.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list account files: %w", err)
	}
	return files, nil
}
