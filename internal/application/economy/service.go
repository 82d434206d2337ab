package economy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledger-server/internal/application/event"
	"ledger-server/internal/domain/account"
	"ledger-server/internal/domain/currency"
	domainevent "ledger-server/internal/domain/event"
	"ledger-server/internal/domain/transaction"
	"ledger-server/internal/infrastructure/cache"
	"ledger-server/internal/infrastructure/notification"
	otelinfra "ledger-server/internal/infrastructure/observability/otel"
)

// Service 台帳エンジンのアプリケーションサービス
//
// 残高変更はすべて同一のトランザクションプロトコルを通る:
// 検証 → プレフック → 限度チェック → 丸め＋反映＋永続化 → 確定後通知。
// 永続化はブロッキングで行い、失敗時はメモリ上の残高を巻き戻す。
// 同一口座のプロトコル実行は口座単位のロックで直列化される。
type Service struct {
	registry *currency.Registry
	storage  account.StorageProvider
	cache    *cache.AccountCache
	hooks    *event.Manager
	recorder transaction.Recorder  // nilで監査無効
	notifier notification.Notifier // nilで通知無効
	logger   *otelinfra.Logger
	metrics  *otelinfra.Metrics
	tracer   trace.Tracer
	locker   *accountLocker
}

// NewService 新しいServiceを作成
func NewService(
	registry *currency.Registry,
	storage account.StorageProvider,
	accountCache *cache.AccountCache,
	hooks *event.Manager,
	recorder transaction.Recorder,
	notifier notification.Notifier,
	logger *otelinfra.Logger,
	metrics *otelinfra.Metrics,
) *Service {
	return &Service{
		registry: registry,
		storage:  storage,
		cache:    accountCache,
		hooks:    hooks,
		recorder: recorder,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer("economy-service"),
		locker:   newAccountLocker(),
	}
}

// --- 通貨管理 ---

// RegisterCurrency 通貨を登録する
func (s *Service) RegisterCurrency(ctx context.Context, cur *currency.Currency) error {
	displaced, err := s.registry.Register(cur)
	if err != nil {
		return err
	}
	if displaced != nil {
		s.logger.Warn(ctx, "Primary currency displaced", map[string]interface{}{
			"previous_primary": displaced.Identifier(),
			"new_primary":      cur.Identifier(),
		})
	}
	s.logger.Info(ctx, "Currency registered", map[string]interface{}{
		"currency_id": cur.Identifier(),
		"primary":     cur.IsPrimary(),
	})
	return nil
}

// UnregisterCurrency 通貨の登録を解除する（口座の残高データは保持される）
func (s *Service) UnregisterCurrency(ctx context.Context, identifier string) error {
	if err := s.registry.Unregister(identifier); err != nil {
		return err
	}
	s.logger.Info(ctx, "Currency unregistered", map[string]interface{}{
		"currency_id": identifier,
	})
	return nil
}

// Currency 識別子で通貨を取得する
func (s *Service) Currency(identifier string) (*currency.Currency, error) {
	return s.registry.Get(identifier)
}

// PrimaryCurrency プライマリ通貨を取得する
func (s *Service) PrimaryCurrency() (*currency.Currency, error) {
	return s.registry.Primary()
}

// Currencies 登録済みのすべての通貨を返す
func (s *Service) Currencies() []*currency.Currency {
	return s.registry.All()
}

// resolveCurrency 識別子から通貨を解決する（空文字列はプライマリ）
func (s *Service) resolveCurrency(identifier string) (*currency.Currency, error) {
	if identifier == "" {
		return s.registry.Primary()
	}
	return s.registry.Get(identifier)
}

// --- 口座管理 ---

// GetAccount 口座を取得する（キャッシュ優先、ミス時はストレージから読み込む）
// 未登録のプレイヤーは初期残高で口座を作成して返すため、この入口から
// 「口座が存在しない」が観測されることはない。
func (s *Service) GetAccount(ctx context.Context, playerID uuid.UUID) (*account.Account, error) {
	ctx, span := s.tracer.Start(ctx, "EconomyService.GetAccount")
	defer span.End()

	span.SetAttributes(attribute.String("player_id", playerID.String()))

	unlock := s.locker.Lock(playerID)
	defer unlock()

	acc, err := s.resolveAccount(ctx, playerID)
	if err != nil {
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	return acc, nil
}

// loadAccount キャッシュまたはストレージから口座を取得する
// 未登録の場合はErrAccountNotFound、ストレージ障害の場合はログに残した
// 上で元のエラーを返す。
func (s *Service) loadAccount(ctx context.Context, playerID uuid.UUID) (*account.Account, error) {
	if acc, ok := s.cache.Get(playerID); ok {
		s.metrics.RecordCacheHit(ctx)
		return acc, nil
	}
	s.metrics.RecordCacheMiss(ctx)

	snapshot, err := s.storage.LoadAccount(ctx, playerID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, account.ErrAccountNotFound
		}
		s.logger.Error(ctx, "Failed to load account from storage", err, map[string]interface{}{
			"player_id": playerID.String(),
		})
		s.metrics.RecordError(ctx, "storage_load_failed")
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	acc := account.FromSnapshot(snapshot)
	s.cache.Put(acc)
	return acc, nil
}

// resolveAccount 口座を取得し、未登録の場合は初期残高で作成する（ロック保持中に呼ぶ）
// 新規口座の表示名はプレイヤーIDの文字列表現で仮置きし、権威ソースの
// 名前が判明した時点でGetOrCreateAccountが同期する。
// ストレージ障害時は保存済みデータを新規口座で潰さないよう、作成せずに
// ErrAccountNotFoundへ変換する（ゲームループを止めないための可用性優先）。
func (s *Service) resolveAccount(ctx context.Context, playerID uuid.UUID) (*account.Account, error) {
	acc, err := s.loadAccount(ctx, playerID)
	if err == nil {
		return acc, nil
	}
	if errors.Is(err, account.ErrAccountNotFound) {
		return s.createAccount(ctx, playerID, playerID.String())
	}
	return nil, account.ErrAccountNotFound
}

// GetOrCreateAccount 口座を取得し、存在しない場合は初期残高で作成する
// 既存口座の表示名が異なる場合は権威ソース側の名前に同期する。
func (s *Service) GetOrCreateAccount(ctx context.Context, playerID uuid.UUID, name string) (*account.Account, error) {
	ctx, span := s.tracer.Start(ctx, "EconomyService.GetOrCreateAccount")
	defer span.End()

	span.SetAttributes(
		attribute.String("player_id", playerID.String()),
		attribute.String("player_name", name),
	)

	unlock := s.locker.Lock(playerID)
	defer unlock()

	acc, err := s.loadAccount(ctx, playerID)
	if err == nil {
		if name != "" && acc.Name() != name {
			acc.SetName(name)
			if err := s.persist(ctx, acc); err != nil {
				s.logger.Error(ctx, "Failed to persist account name sync", err, map[string]interface{}{
					"player_id": playerID.String(),
				})
			}
		}
		return acc, nil
	}
	if !errors.Is(err, account.ErrAccountNotFound) {
		// 読み取り障害で新規口座を作ると保存済み残高を上書きしてしまう
		return nil, err
	}

	return s.createAccount(ctx, playerID, name)
}

// CreateAccount 口座を新規作成する（既存の場合はErrAccountAlreadyExists）
func (s *Service) CreateAccount(ctx context.Context, playerID uuid.UUID, name string) (*account.Account, error) {
	ctx, span := s.tracer.Start(ctx, "EconomyService.CreateAccount")
	defer span.End()

	span.SetAttributes(attribute.String("player_id", playerID.String()))

	unlock := s.locker.Lock(playerID)
	defer unlock()

	if _, err := s.loadAccount(ctx, playerID); err == nil {
		return nil, account.ErrAccountAlreadyExists
	} else if !errors.Is(err, account.ErrAccountNotFound) {
		return nil, err
	}
	return s.createAccount(ctx, playerID, name)
}

// createAccount 口座を作成して永続化する（ロック保持中に呼ぶ）
func (s *Service) createAccount(ctx context.Context, playerID uuid.UUID, name string) (*account.Account, error) {
	acc := account.NewAccount(playerID, name, nil)
	if err := s.persist(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to persist new account: %w", err)
	}
	s.cache.Put(acc)

	s.logger.Info(ctx, "Account created", map[string]interface{}{
		"player_id": playerID.String(),
		"name":      name,
	})
	return acc, nil
}

// HasAccount 口座が存在するかどうかを返す
func (s *Service) HasAccount(ctx context.Context, playerID uuid.UUID) (bool, error) {
	if s.cache.Contains(playerID) {
		return true, nil
	}
	return s.storage.HasAccount(ctx, playerID)
}

// DeleteAccount 口座を削除する（レコードが存在し削除された場合にtrue）
func (s *Service) DeleteAccount(ctx context.Context, playerID uuid.UUID) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "EconomyService.DeleteAccount")
	defer span.End()

	span.SetAttributes(attribute.String("player_id", playerID.String()))

	unlock := s.locker.Lock(playerID)
	defer unlock()

	s.cache.Remove(playerID)
	deleted, err := s.storage.DeleteAccount(ctx, playerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return false, fmt.Errorf("failed to delete account: %w", err)
	}
	if deleted {
		s.logger.Info(ctx, "Account deleted", map[string]interface{}{
			"player_id": playerID.String(),
		})
	}
	return deleted, nil
}

// InvalidateCache 口座のキャッシュエントリを破棄する
func (s *Service) InvalidateCache(playerID uuid.UUID) {
	s.cache.Remove(playerID)
}

// RunCacheJanitor 期限切れエントリの定期回収を実行する（ctxのキャンセルで停止）
func (s *Service) RunCacheJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.cache.Cleanup(); removed > 0 {
				s.logger.Debug(ctx, "Evicted expired account cache entries", map[string]interface{}{
					"removed": removed,
				})
			}
		}
	}
}

// Balance 指定通貨の残高を取得する（currencyIDが空の場合はプライマリ通貨）
func (s *Service) Balance(ctx context.Context, playerID uuid.UUID, currencyID string) (float64, error) {
	cur, err := s.resolveCurrency(currencyID)
	if err != nil {
		return 0, err
	}
	acc, err := s.GetAccount(ctx, playerID)
	if err != nil {
		return 0, err
	}
	return acc.Balance(cur), nil
}

// Balances 登録済み通貨ごとの残高を取得する
func (s *Service) Balances(ctx context.Context, playerID uuid.UUID) (map[string]float64, error) {
	acc, err := s.GetAccount(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return acc.AllBalances(s.registry.All()), nil
}

// --- トランザクション ---

// Deposit 口座に入金する（currencyIDが空の場合はプライマリ通貨）
func (s *Service) Deposit(ctx context.Context, playerID uuid.UUID, currencyID string, amount float64) (*transaction.Result, error) {
	return s.execute(ctx, transaction.TransactionTypeDeposit, playerID, currencyID, amount,
		func(acc *account.Account, cur *currency.Currency, amount float64) (account.Mutation, error) {
			return acc.Deposit(cur, amount)
		})
}

// Withdraw 口座から出金する（currencyIDが空の場合はプライマリ通貨）
func (s *Service) Withdraw(ctx context.Context, playerID uuid.UUID, currencyID string, amount float64) (*transaction.Result, error) {
	return s.execute(ctx, transaction.TransactionTypeWithdraw, playerID, currencyID, amount,
		func(acc *account.Account, cur *currency.Currency, amount float64) (account.Mutation, error) {
			return acc.Withdraw(cur, amount)
		})
}

// SetBalance 残高を直接設定する（管理操作）
// プレフックは発火するが、金額の書き換えは無視される。
func (s *Service) SetBalance(ctx context.Context, playerID uuid.UUID, currencyID string, value float64) (*transaction.Result, error) {
	return s.execute(ctx, transaction.TransactionTypeSet, playerID, currencyID, value,
		func(acc *account.Account, cur *currency.Currency, value float64) (account.Mutation, error) {
			return acc.Set(cur, value)
		})
}

// execute 単一口座トランザクションのプロトコルを実行する
func (s *Service) execute(
	ctx context.Context,
	txType transaction.TransactionType,
	playerID uuid.UUID,
	currencyID string,
	amount float64,
	apply func(acc *account.Account, cur *currency.Currency, amount float64) (account.Mutation, error),
) (*transaction.Result, error) {
	ctx, span := s.tracer.Start(ctx, "EconomyService."+spanName(txType))
	defer span.End()

	span.SetAttributes(
		attribute.String("player_id", playerID.String()),
		attribute.String("currency_id", currencyID),
		attribute.Float64("amount", amount),
	)

	// 1. 通貨解決と金額検証
	cur, err := s.resolveCurrency(currencyID)
	if err != nil {
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusCurrencyNotFound, txType, 0, nil, playerID, "Unknown currency: "+currencyID)), nil
	}
	if !validAmount(txType, amount) {
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusInvalidAmount, txType, 0, cur, playerID, "Invalid amount")), nil
	}

	unlock := s.locker.Lock(playerID)
	defer unlock()

	acc, err := s.resolveAccount(ctx, playerID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return s.fail(ctx, transaction.NewFailureResult(
				transaction.StatusAccountNotFound, txType, 0, cur, playerID, "Account not found")), nil
		}
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusProviderError, txType, 0, cur, playerID, "Storage failure")), nil
	}
	current := acc.Balance(cur)

	// 2. プレフック（中止と金額書き換え）
	pre := domainevent.NewPreTransaction(txType, playerID, nil, cur, amount)
	s.hooks.FirePreTransaction(ctx, pre)
	if pre.Cancelled() {
		s.metrics.RecordCancelled(ctx, txType.String(), cur.Identifier())
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusCancelled, txType, current, cur, playerID, cancelMessage(pre))), nil
	}
	// 残高設定では検証済みの設定値が金額のため、書き換えを反映しない
	if txType != transaction.TransactionTypeSet {
		amount = pre.Amount()
	}

	// 3-4. 限度チェックと反映
	mutation, err := apply(acc, cur, amount)
	if err != nil {
		return s.fail(ctx, transaction.NewFailureResult(
			statusForError(err), txType, current, cur, playerID, err.Error())), nil
	}

	// 5. ブロッキング永続化（失敗時はメモリ上の残高を巻き戻す）
	if err := s.persist(ctx, acc); err != nil {
		acc.Restore(cur.Identifier(), mutation.Previous)
		s.logger.Error(ctx, "Failed to persist transaction", err, map[string]interface{}{
			"player_id":   playerID.String(),
			"currency_id": cur.Identifier(),
			"type":        txType.String(),
		})
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusProviderError, txType, mutation.Previous, cur, playerID, "Storage failure")), nil
	}

	result := transaction.NewSuccessResult(txType, amount, mutation.Previous, mutation.New, cur, playerID)
	s.finishSingle(ctx, result, cur, playerID, mutation)
	return result, nil
}

// Transfer 口座間で送金する（currencyIDが空の場合はプライマリ通貨）
// 送金元は通貨が当座貸越を許可していても残高をマイナスにできない。
// 送金先の限度超過は送金元を巻き戻した上で失敗を返す。
func (s *Service) Transfer(ctx context.Context, fromID, toID uuid.UUID, currencyID string, amount float64) (*transaction.Result, error) {
	ctx, span := s.tracer.Start(ctx, "EconomyService.Transfer")
	defer span.End()

	span.SetAttributes(
		attribute.String("player_id", fromID.String()),
		attribute.String("target_id", toID.String()),
		attribute.String("currency_id", currencyID),
		attribute.Float64("amount", amount),
	)

	txType := transaction.TransactionTypeTransfer

	cur, err := s.resolveCurrency(currencyID)
	if err != nil {
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusCurrencyNotFound, txType, 0, nil, fromID, "Unknown currency: "+currencyID)), nil
	}
	if !validAmount(txType, amount) {
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusInvalidAmount, txType, 0, cur, fromID, "Invalid amount")), nil
	}

	unlock := s.locker.LockPair(fromID, toID)
	defer unlock()

	from, err := s.resolveAccount(ctx, fromID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return s.fail(ctx, transaction.NewFailureResult(
				transaction.StatusAccountNotFound, txType, 0, cur, fromID, "Account not found")), nil
		}
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusProviderError, txType, 0, cur, fromID, "Storage failure")), nil
	}
	to, err := s.resolveAccount(ctx, toID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return s.fail(ctx, transaction.NewFailureResult(
				transaction.StatusAccountNotFound, txType, from.Balance(cur), cur, fromID, "Target account not found")), nil
		}
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusProviderError, txType, from.Balance(cur), cur, fromID, "Storage failure")), nil
	}
	current := from.Balance(cur)

	pre := domainevent.NewPreTransaction(txType, fromID, &toID, cur, amount)
	s.hooks.FirePreTransaction(ctx, pre)
	if pre.Cancelled() {
		s.metrics.RecordCancelled(ctx, txType.String(), cur.Identifier())
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusCancelled, txType, current, cur, fromID, cancelMessage(pre))), nil
	}
	amount = pre.Amount()

	srcMutation, err := from.WithdrawForTransfer(cur, amount)
	if err != nil {
		return s.fail(ctx, transaction.NewFailureResult(
			statusForError(err), txType, current, cur, fromID, err.Error())), nil
	}

	dstMutation, err := to.Deposit(cur, amount)
	if err != nil {
		// 送金先の限度超過は送金元を巻き戻す
		from.Restore(cur.Identifier(), srcMutation.Previous)
		return s.fail(ctx, transaction.NewFailureResult(
			statusForError(err), txType, current, cur, fromID, "Target account: "+err.Error())), nil
	}

	// 送金元→送金先の順に永続化。途中で失敗したら両方巻き戻す。
	if err := s.persist(ctx, from); err != nil {
		from.Restore(cur.Identifier(), srcMutation.Previous)
		to.Restore(cur.Identifier(), dstMutation.Previous)
		s.logger.Error(ctx, "Failed to persist transfer source", err, map[string]interface{}{
			"player_id":   fromID.String(),
			"currency_id": cur.Identifier(),
		})
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusProviderError, txType, srcMutation.Previous, cur, fromID, "Storage failure")), nil
	}
	if err := s.persist(ctx, to); err != nil {
		from.Restore(cur.Identifier(), srcMutation.Previous)
		to.Restore(cur.Identifier(), dstMutation.Previous)
		if rollbackErr := s.persist(ctx, from); rollbackErr != nil {
			s.logger.Error(ctx, "Failed to roll back transfer source in storage", rollbackErr, map[string]interface{}{
				"player_id": fromID.String(),
			})
		}
		s.logger.Error(ctx, "Failed to persist transfer target", err, map[string]interface{}{
			"player_id":   toID.String(),
			"currency_id": cur.Identifier(),
		})
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusProviderError, txType, srcMutation.Previous, cur, fromID, "Storage failure")), nil
	}

	result := transaction.NewTransferResult(amount, srcMutation.Previous, srcMutation.New, cur, fromID, toID)

	s.metrics.RecordTransaction(ctx, txType.String(), cur.Identifier(), result.Status().String())
	s.metrics.RecordAccountBalance(ctx, fromID.String(), cur.Identifier(), srcMutation.New)
	s.metrics.RecordAccountBalance(ctx, toID.String(), cur.Identifier(), dstMutation.New)

	s.hooks.FirePostTransaction(ctx, domainevent.NewPostTransaction(result))
	s.hooks.FireBalanceChange(ctx, domainevent.NewBalanceChange(fromID, cur, srcMutation.Previous, srcMutation.New, txType))
	s.hooks.FireBalanceChange(ctx, domainevent.NewBalanceChange(toID, cur, dstMutation.Previous, dstMutation.New, txType))

	s.audit(ctx, transaction.Record{
		Timestamp:       result.Timestamp(),
		PlayerID:        fromID,
		TargetID:        &toID,
		Type:            txType,
		CurrencyID:      cur.Identifier(),
		Amount:          amount,
		PreviousBalance: srcMutation.Previous,
		NewBalance:      srcMutation.New,
	})
	s.notifyPayment(ctx, from.Name(), to.Name(), result)

	s.logger.Info(ctx, "Transfer completed", map[string]interface{}{
		"from_id":     fromID.String(),
		"to_id":       toID.String(),
		"currency_id": cur.Identifier(),
		"amount":      amount,
	})
	return result, nil
}

// Reset すべての登録済み通貨の残高を初期残高に戻す
// プレフックはプライマリ通貨に対して1回だけ発火し、中止された場合は
// 通貨全体のリセットが中止される。
func (s *Service) Reset(ctx context.Context, playerID uuid.UUID) (*transaction.Result, error) {
	ctx, span := s.tracer.Start(ctx, "EconomyService.Reset")
	defer span.End()

	span.SetAttributes(attribute.String("player_id", playerID.String()))

	txType := transaction.TransactionTypeReset

	currencies := s.registry.All()
	if len(currencies) == 0 {
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusCurrencyNotFound, txType, 0, nil, playerID, "No currencies registered")), nil
	}
	resultCurrency := currencies[0]
	if primary, err := s.registry.Primary(); err == nil {
		resultCurrency = primary
	}

	unlock := s.locker.Lock(playerID)
	defer unlock()

	acc, err := s.resolveAccount(ctx, playerID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return s.fail(ctx, transaction.NewFailureResult(
				transaction.StatusAccountNotFound, txType, 0, resultCurrency, playerID, "Account not found")), nil
		}
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusProviderError, txType, 0, resultCurrency, playerID, "Storage failure")), nil
	}
	current := acc.Balance(resultCurrency)

	pre := domainevent.NewPreTransaction(txType, playerID, nil, resultCurrency, resultCurrency.DefaultBalance())
	s.hooks.FirePreTransaction(ctx, pre)
	if pre.Cancelled() {
		s.metrics.RecordCancelled(ctx, txType.String(), resultCurrency.Identifier())
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusCancelled, txType, current, resultCurrency, playerID, cancelMessage(pre))), nil
	}

	changes := acc.ResetAll(currencies)

	if err := s.persist(ctx, acc); err != nil {
		for _, change := range changes {
			acc.Restore(change.Currency.Identifier(), change.Previous)
		}
		s.logger.Error(ctx, "Failed to persist reset", err, map[string]interface{}{
			"player_id": playerID.String(),
		})
		return s.fail(ctx, transaction.NewFailureResult(
			transaction.StatusProviderError, txType, current, resultCurrency, playerID, "Storage failure")), nil
	}

	var resultPrev, resultNew float64
	for _, change := range changes {
		if change.Currency.Identifier() == resultCurrency.Identifier() {
			resultPrev, resultNew = change.Previous, change.New
		}
	}
	result := transaction.NewSuccessResult(txType, resultNew, resultPrev, resultNew, resultCurrency, playerID)

	s.metrics.RecordTransaction(ctx, txType.String(), resultCurrency.Identifier(), result.Status().String())
	s.hooks.FirePostTransaction(ctx, domainevent.NewPostTransaction(result))
	for _, change := range changes {
		if change.Previous == change.New {
			continue
		}
		s.metrics.RecordAccountBalance(ctx, playerID.String(), change.Currency.Identifier(), change.New)
		s.hooks.FireBalanceChange(ctx, domainevent.NewBalanceChange(
			playerID, change.Currency, change.Previous, change.New, txType))
	}

	// 監査レコードは通貨ごとではなく、リセット1回につき1件（プライマリ通貨基準）
	s.audit(ctx, transaction.Record{
		Timestamp:       result.Timestamp(),
		PlayerID:        playerID,
		Type:            txType,
		CurrencyID:      resultCurrency.Identifier(),
		Amount:          resultNew,
		PreviousBalance: resultPrev,
		NewBalance:      resultNew,
	})

	s.logger.Info(ctx, "Balances reset", map[string]interface{}{
		"player_id": playerID.String(),
	})
	return result, nil
}

// --- 照会 ---

// TopBalances 指定通貨の残高上位を取得する（currencyIDが空の場合はプライマリ通貨）
func (s *Service) TopBalances(ctx context.Context, currencyID string, limit int) ([]BaltopEntry, error) {
	ctx, span := s.tracer.Start(ctx, "EconomyService.TopBalances")
	defer span.End()

	cur, err := s.resolveCurrency(currencyID)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("currency_id", cur.Identifier()),
		attribute.Int("limit", limit),
	)

	ids, err := s.storage.TopBalances(ctx, cur.Identifier(), limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, fmt.Errorf("failed to query top balances: %w", err)
	}

	entries := make([]BaltopEntry, 0, len(ids))
	for i, id := range ids {
		acc, err := s.loadAccount(ctx, id)
		if err != nil {
			// 順位計算とロードの間に消えた口座はスキップ
			continue
		}
		entries = append(entries, BaltopEntry{
			Rank:     i + 1,
			PlayerID: id,
			Name:     acc.Name(),
			Balance:  acc.Balance(cur),
		})
	}
	return entries, nil
}

// AccountCount 口座の総数を取得する
func (s *Service) AccountCount(ctx context.Context) (int64, error) {
	return s.storage.AccountCount(ctx)
}

// History プレイヤーの取引履歴を取得する（監査無効時は空）
func (s *Service) History(ctx context.Context, playerID uuid.UUID, limit int) ([]transaction.Record, error) {
	if s.recorder == nil {
		return []transaction.Record{}, nil
	}
	return s.recorder.History(ctx, playerID, limit)
}

// --- フック登録の委譲 ---

// OnPreTransaction 残高変更前フックを登録する
func (s *Service) OnPreTransaction(hook event.PreTransactionHook) {
	s.hooks.OnPreTransaction(hook)
}

// OnPostTransaction 確定後フックを登録する
func (s *Service) OnPostTransaction(hook event.PostTransactionHook) {
	s.hooks.OnPostTransaction(hook)
}

// OnBalanceChange 残高変化フックを登録する
func (s *Service) OnBalanceChange(hook event.BalanceChangeHook) {
	s.hooks.OnBalanceChange(hook)
}

// --- 内部ヘルパ ---

// persist 口座のスナップショットをブロッキング保存する
func (s *Service) persist(ctx context.Context, acc *account.Account) error {
	start := time.Now()
	err := s.storage.SaveAccount(ctx, acc.Snapshot())
	s.metrics.RecordStorageDuration(ctx, "save_account", s.storage.Type(), time.Since(start).Seconds())
	return err
}

// finishSingle 単一口座トランザクションの確定後処理
func (s *Service) finishSingle(ctx context.Context, result *transaction.Result, cur *currency.Currency, playerID uuid.UUID, mutation account.Mutation) {
	s.metrics.RecordTransaction(ctx, result.Type().String(), cur.Identifier(), result.Status().String())
	s.metrics.RecordAccountBalance(ctx, playerID.String(), cur.Identifier(), mutation.New)

	s.hooks.FirePostTransaction(ctx, domainevent.NewPostTransaction(result))
	s.hooks.FireBalanceChange(ctx, domainevent.NewBalanceChange(
		playerID, cur, mutation.Previous, mutation.New, result.Type()))

	s.audit(ctx, transaction.Record{
		Timestamp:       result.Timestamp(),
		PlayerID:        playerID,
		Type:            result.Type(),
		CurrencyID:      cur.Identifier(),
		Amount:          result.Amount(),
		PreviousBalance: mutation.Previous,
		NewBalance:      mutation.New,
	})

	s.logger.Info(ctx, "Transaction completed", map[string]interface{}{
		"player_id":   playerID.String(),
		"currency_id": cur.Identifier(),
		"type":        result.Type().String(),
		"amount":      result.Amount(),
		"new_balance": mutation.New,
	})
}

// fail 失敗結果のメトリクスとログを記録して返す
func (s *Service) fail(ctx context.Context, result *transaction.Result) *transaction.Result {
	currencyID := ""
	if result.Currency() != nil {
		currencyID = result.Currency().Identifier()
	}
	s.metrics.RecordTransaction(ctx, result.Type().String(), currencyID, result.Status().String())
	s.logger.Info(ctx, "Transaction rejected", map[string]interface{}{
		"player_id":   result.AccountID().String(),
		"currency_id": currencyID,
		"type":        result.Type().String(),
		"status":      result.Status().String(),
		"message":     result.Message(),
	})
	return result
}

// audit 監査レコードを非同期で記録する（失敗はログのみ）
func (s *Service) audit(ctx context.Context, record transaction.Record) {
	if s.recorder == nil {
		return
	}
	go func() {
		auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.recorder.Record(auditCtx, record); err != nil {
			s.logger.Error(auditCtx, "Failed to record transaction audit", err, map[string]interface{}{
				"player_id": record.PlayerID.String(),
				"type":      record.Type.String(),
			})
			s.metrics.RecordError(auditCtx, "audit_record_failed")
		}
	}()
}

// notifyPayment 送金通知を非同期で配送する（失敗はログのみ）
func (s *Service) notifyPayment(ctx context.Context, fromName, toName string, result *transaction.Result) {
	if s.notifier == nil || result.TargetID() == nil {
		return
	}
	n := notification.PaymentNotification{
		FromID:     result.AccountID(),
		FromName:   fromName,
		ToID:       *result.TargetID(),
		ToName:     toName,
		CurrencyID: result.Currency().Identifier(),
		Amount:     result.Amount(),
		Formatted:  result.AmountFormatted(),
		Timestamp:  result.Timestamp(),
	}
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.notifier.NotifyPayment(notifyCtx, n); err != nil {
			s.logger.Error(notifyCtx, "Failed to deliver payment notification", err, map[string]interface{}{
				"from_id": n.FromID.String(),
				"to_id":   n.ToID.String(),
			})
			s.metrics.RecordError(notifyCtx, "payment_notification_failed")
		}
	}()
}

// validAmount トランザクション種別ごとの金額検証
// 入金・出金・送金は正の有限値のみ。残高設定は符号を問わない有限値。
func validAmount(txType transaction.TransactionType, amount float64) bool {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return false
	}
	if txType == transaction.TransactionTypeSet {
		return true
	}
	return amount > 0
}

// statusForError 口座エンティティのエラーをステータスに変換する
func statusForError(err error) transaction.Status {
	switch {
	case errors.Is(err, account.ErrInvalidAmount):
		return transaction.StatusInvalidAmount
	case errors.Is(err, account.ErrInsufficientFunds):
		return transaction.StatusInsufficientFunds
	case errors.Is(err, account.ErrBalanceOverflow):
		return transaction.StatusBalanceOverflow
	case errors.Is(err, account.ErrBalanceUnderflow):
		return transaction.StatusBalanceUnderflow
	default:
		return transaction.StatusProviderError
	}
}

// cancelMessage 中止理由のメッセージを返す
func cancelMessage(pre *domainevent.PreTransaction) string {
	if reason := pre.CancelReason(); reason != "" {
		return reason
	}
	return "Transaction cancelled"
}

// spanName トランザクション種別からスパン名を作る
func spanName(txType transaction.TransactionType) string {
	switch txType {
	case transaction.TransactionTypeDeposit:
		return "Deposit"
	case transaction.TransactionTypeWithdraw:
		return "Withdraw"
	case transaction.TransactionTypeSet:
		return "SetBalance"
	default:
		return "Transaction"
	}
}
