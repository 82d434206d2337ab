package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-server/internal/domain/account"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	provider := NewProvider(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, provider.Initialize(context.Background()))
	t.Cleanup(func() { _ = provider.Close(context.Background()) })
	return provider
}

func testSnapshot(name string, balances map[string]float64) *account.Snapshot {
	return &account.Snapshot{
		ID:       uuid.New(),
		Name:     name,
		Balances: balances,
	}
}

func TestProvider_SaveLoad(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	snapshot := testSnapshot("player1", map[string]float64{"coins": 123.45, "gems": 10})
	require.NoError(t, provider.SaveAccount(ctx, snapshot))

	loaded, err := provider.LoadAccount(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, loaded.ID)
	assert.Equal(t, "player1", loaded.Name)
	assert.Equal(t, snapshot.Balances, loaded.Balances)
}

func TestProvider_LoadAccount_NotFound(t *testing.T) {
	provider := newTestProvider(t)

	_, err := provider.LoadAccount(context.Background(), uuid.New())
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestProvider_SaveAccount_ReplacesBalances(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	snapshot := testSnapshot("player1", map[string]float64{"coins": 100, "gems": 50})
	require.NoError(t, provider.SaveAccount(ctx, snapshot))

	// gemsを落とした全体保存で行が置き換わる
	snapshot.Name = "renamed"
	snapshot.Balances = map[string]float64{"coins": 250}
	require.NoError(t, provider.SaveAccount(ctx, snapshot))

	loaded, err := provider.LoadAccount(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", loaded.Name)
	assert.Equal(t, map[string]float64{"coins": 250}, loaded.Balances)
}

func TestProvider_HasAccount(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	snapshot := testSnapshot("player1", map[string]float64{"coins": 100})

	has, err := provider.HasAccount(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, provider.SaveAccount(ctx, snapshot))

	has, err = provider.HasAccount(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestProvider_DeleteAccount(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	snapshot := testSnapshot("player1", map[string]float64{"coins": 100})
	require.NoError(t, provider.SaveAccount(ctx, snapshot))

	deleted, err := provider.DeleteAccount(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = provider.DeleteAccount(ctx, snapshot.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = provider.LoadAccount(ctx, snapshot.ID)
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestProvider_TopBalances(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	rich := testSnapshot("rich", map[string]float64{"coins": 1000})
	middle := testSnapshot("middle", map[string]float64{"coins": 500})
	poor := testSnapshot("poor", map[string]float64{"coins": 10})
	// coinsの残高が未記録の口座も残高0として順位に含まれる
	other := testSnapshot("other", map[string]float64{"gems": 9999})

	for _, s := range []*account.Snapshot{poor, rich, other, middle} {
		require.NoError(t, provider.SaveAccount(ctx, s))
	}

	top, err := provider.TopBalances(ctx, "coins", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, rich.ID, top[0])
	assert.Equal(t, middle.ID, top[1])

	top, err = provider.TopBalances(ctx, "coins", 10)
	require.NoError(t, err)
	require.Len(t, top, 4)
	assert.Equal(t, other.ID, top[3])

	top, err = provider.TopBalances(ctx, "coins", 0)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestProvider_AccountCount(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()

	count, err := provider.AccountCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	for i := 0; i < 3; i++ {
		require.NoError(t, provider.SaveAccount(ctx, testSnapshot("player", map[string]float64{"coins": float64(i)})))
	}

	count, err = provider.AccountCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestProvider_Type(t *testing.T) {
	provider := newTestProvider(t)
	assert.Equal(t, "sqlite", provider.Type())
}
