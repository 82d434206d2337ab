package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"ledger-server/internal/domain/account"
)

// AccountCache 口座エンティティのTTL付きインメモリキャッシュ
//
// TTLはスライディング方式で、Getのたびに最終アクセス時刻が更新される。
// TTLが0以下の場合、エントリは期限切れしない（JSONストレージの
// 全件キャッシュ運用向け）。
type AccountCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	account    *account.Account
	lastAccess time.Time
}

// NewAccountCache 新しいAccountCacheを作成
func NewAccountCache(ttl time.Duration) *AccountCache {
	return &AccountCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get キャッシュから口座を取得する（ヒット時は最終アクセス時刻を更新）
func (c *AccountCache) Get(playerID uuid.UUID) (*account.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[playerID]
	if !ok {
		return nil, false
	}
	if c.expired(entry) {
		delete(c.entries, playerID)
		return nil, false
	}

	entry.lastAccess = c.now()
	return entry.account, true
}

// Contains 有効なエントリが存在するかどうかを返す（最終アクセス時刻は更新しない）
// Getと同じ鮮度判定を行い、期限切れエントリはその場で除去する。
func (c *AccountCache) Contains(playerID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[playerID]
	if !ok {
		return false
	}
	if c.expired(entry) {
		delete(c.entries, playerID)
		return false
	}
	return true
}

// Put 口座をキャッシュに格納する（既存エントリは置き換え）
func (c *AccountCache) Put(acc *account.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[acc.Owner()] = &cacheEntry{
		account:    acc,
		lastAccess: c.now(),
	}
}

// Remove 口座をキャッシュから取り除く
func (c *AccountCache) Remove(playerID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, playerID)
}

// Clear すべてのエントリを破棄する
func (c *AccountCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]*cacheEntry)
}

// Size 期限切れを含む現在のエントリ数を返す
func (c *AccountCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup 期限切れエントリを除去し、除去した数を返す
func (c *AccountCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Accounts 有効なエントリの口座一覧を返す
func (c *AccountCache) Accounts() []*account.Account {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*account.Account, 0, len(c.entries))
	for _, entry := range c.entries {
		if !c.expired(entry) {
			result = append(result, entry.account)
		}
	}
	return result
}

// expired エントリが期限切れかどうかを返す（ロック保持中に呼ぶ）
func (c *AccountCache) expired(entry *cacheEntry) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(entry.lastAccess) > c.ttl
}
