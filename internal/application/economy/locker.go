package economy

import (
	"sync"

	"github.com/google/uuid"
)

// accountLocker 口座単位の直列化ロック
//
// 同一口座のトランザクションプロトコル全体（検証から永続化まで）を
// 直列に実行させる。使われていない口座のエントリは参照カウントで
// 回収される。
type accountLocker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocker() *accountLocker {
	return &accountLocker{
		entries: make(map[uuid.UUID]*lockEntry),
	}
}

// Lock 指定口座のロックを獲得し、解放関数を返す
func (l *accountLocker) Lock(playerID uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.entries[playerID]
	if !ok {
		entry = &lockEntry{}
		l.entries[playerID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, playerID)
		}
		l.mu.Unlock()
	}
}

// LockPair 2口座のロックをID順に獲得する（デッドロック回避）
func (l *accountLocker) LockPair(first, second uuid.UUID) func() {
	if first == second {
		return l.Lock(first)
	}
	if second.String() < first.String() {
		first, second = second, first
	}
	unlockFirst := l.Lock(first)
	unlockSecond := l.Lock(second)
	return func() {
		unlockSecond()
		unlockFirst()
	}
}
