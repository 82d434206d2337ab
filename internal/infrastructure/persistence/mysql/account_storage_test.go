package mysql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"ledger-server/internal/domain/account"
)

func newMockStorage(t *testing.T) (*AccountStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	storage := &AccountStorage{
		db:     &DB{DB: db},
		tracer: otel.Tracer("test"),
	}
	return storage, mock
}

func TestAccountStorage_HasAccount(t *testing.T) {
	playerID := uuid.New()

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      bool
		wantError bool
	}{
		{
			name: "正常系: 口座が存在する",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"1"}).AddRow(1)
				mock.ExpectQuery(`SELECT 1 FROM accounts`).
					WithArgs(playerID.String()).
					WillReturnRows(rows)
			},
			want: true,
		},
		{
			name: "正常系: 口座が存在しない",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT 1 FROM accounts`).
					WithArgs(playerID.String()).
					WillReturnError(sql.ErrNoRows)
			},
			want: false,
		},
		{
			name: "異常系: DBエラー",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT 1 FROM accounts`).
					WithArgs(playerID.String()).
					WillReturnError(sql.ErrConnDone)
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, mock := newMockStorage(t)
			tt.setupMock(mock)

			got, err := storage.HasAccount(context.Background(), playerID)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountStorage_LoadAccount(t *testing.T) {
	playerID := uuid.New()

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      *account.Snapshot
		wantError bool
		errorIs   error
	}{
		{
			name: "正常系: 口座と残高を読み込む",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT name FROM accounts`).
					WithArgs(playerID.String()).
					WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("player1"))
				mock.ExpectQuery(`SELECT currency_id, balance FROM balances`).
					WithArgs(playerID.String()).
					WillReturnRows(sqlmock.NewRows([]string{"currency_id", "balance"}).
						AddRow("coins", 123.45).
						AddRow("gems", 10.0))
			},
			want: &account.Snapshot{
				ID:       playerID,
				Name:     "player1",
				Balances: map[string]float64{"coins": 123.45, "gems": 10},
			},
		},
		{
			name: "正常系: 残高ゼロ件の口座",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT name FROM accounts`).
					WithArgs(playerID.String()).
					WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("player1"))
				mock.ExpectQuery(`SELECT currency_id, balance FROM balances`).
					WithArgs(playerID.String()).
					WillReturnRows(sqlmock.NewRows([]string{"currency_id", "balance"}))
			},
			want: &account.Snapshot{
				ID:       playerID,
				Name:     "player1",
				Balances: map[string]float64{},
			},
		},
		{
			name: "異常系: 口座が見つからない",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT name FROM accounts`).
					WithArgs(playerID.String()).
					WillReturnError(sql.ErrNoRows)
			},
			wantError: true,
			errorIs:   account.ErrAccountNotFound,
		},
		{
			name: "異常系: DBエラー",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT name FROM accounts`).
					WithArgs(playerID.String()).
					WillReturnError(sql.ErrConnDone)
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, mock := newMockStorage(t)
			tt.setupMock(mock)

			got, err := storage.LoadAccount(context.Background(), playerID)
			if tt.wantError {
				assert.Error(t, err)
				if tt.errorIs != nil {
					assert.ErrorIs(t, err, tt.errorIs)
				}
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountStorage_SaveAccount(t *testing.T) {
	playerID := uuid.New()
	snapshot := &account.Snapshot{
		ID:       playerID,
		Name:     "player1",
		Balances: map[string]float64{"coins": 100},
	}

	t.Run("正常系: 口座を保存", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(playerID.String(), "player1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM balances`).
			WithArgs(playerID.String()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO balances`).
			WithArgs(playerID.String(), "coins", 100.0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := storage.SaveAccount(context.Background(), snapshot)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: 挿入エラーでロールバック", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO accounts`).
			WithArgs(playerID.String(), "player1").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err := storage.SaveAccount(context.Background(), snapshot)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountStorage_DeleteAccount(t *testing.T) {
	playerID := uuid.New()

	t.Run("正常系: 口座を削除", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM balances`).
			WithArgs(playerID.String()).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`DELETE FROM accounts`).
			WithArgs(playerID.String()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		deleted, err := storage.DeleteAccount(context.Background(), playerID)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("正常系: 対象なし", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM balances`).
			WithArgs(playerID.String()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM accounts`).
			WithArgs(playerID.String()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		deleted, err := storage.DeleteAccount(context.Background(), playerID)
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountStorage_TopBalances(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	t.Run("正常系: 残高上位を取得", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		// 残高未記録の口座も含めるためaccountsを軸にLEFT JOINする
		rows := sqlmock.NewRows([]string{"id"}).
			AddRow(first.String()).
			AddRow(second.String())
		mock.ExpectQuery(`SELECT a\.id\s+FROM accounts a\s+LEFT JOIN balances b`).
			WithArgs("coins", 2).
			WillReturnRows(rows)

		top, err := storage.TopBalances(context.Background(), "coins", 2)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{first, second}, top)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("正常系: limitゼロはクエリなしで空", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		top, err := storage.TopBalances(context.Background(), "coins", 0)
		require.NoError(t, err)
		assert.Empty(t, top)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("異常系: 不正なUUIDが格納されている", func(t *testing.T) {
		storage, mock := newMockStorage(t)

		rows := sqlmock.NewRows([]string{"id"}).AddRow("not-a-uuid")
		mock.ExpectQuery(`SELECT a\.id\s+FROM accounts a\s+LEFT JOIN balances b`).
			WithArgs("coins", 1).
			WillReturnRows(rows)

		_, err := storage.TopBalances(context.Background(), "coins", 1)
		assert.Error(t, err)
	})
}

func TestAccountStorage_AccountCount(t *testing.T) {
	storage, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM accounts`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := storage.AccountCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStorage_Type(t *testing.T) {
	storage, _ := newMockStorage(t)
	assert.Equal(t, "mysql", storage.Type())
}
