package currency

import (
	"sort"
	"strings"
	"sync"
)

// Registry 登録済み通貨のスレッドセーフなレジストリ
//
// 識別子の照合は大文字小文字を区別しない。プライマリ通貨は
// 高々1つで、後から登録されたプライマリが優先される。
type Registry struct {
	mu         sync.RWMutex
	currencies map[string]*Currency
	primaryID  string
}

// NewRegistry 空のRegistryを作成
func NewRegistry() *Registry {
	return &Registry{
		currencies: make(map[string]*Currency),
	}
}

// Register 通貨を登録する
// 同じ識別子が登録済みの場合はErrCurrencyAlreadyRegistered。
// プライマリ指定の通貨が既存のプライマリを置き換えた場合、置き換えられた
// 通貨を返す（呼び出し側が警告ログを出すため）。
func (r *Registry) Register(cur *Currency) (displaced *Currency, err error) {
	key := strings.ToLower(cur.Identifier())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.currencies[key]; ok {
		return nil, ErrCurrencyAlreadyRegistered
	}

	r.currencies[key] = cur
	if cur.IsPrimary() {
		if r.primaryID != "" && r.primaryID != key {
			displaced = r.currencies[r.primaryID]
		}
		r.primaryID = key
	}
	return displaced, nil
}

// Unregister 通貨の登録を解除する（口座の残高データは保持される）
// 解除した通貨がプライマリだった場合、プライマリは未設定になる。
func (r *Registry) Unregister(identifier string) error {
	key := strings.ToLower(identifier)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.currencies[key]; !ok {
		return ErrCurrencyNotFound
	}

	delete(r.currencies, key)
	if r.primaryID == key {
		r.primaryID = ""
	}
	return nil
}

// Get 識別子で通貨を取得する（大文字小文字を区別しない）
func (r *Registry) Get(identifier string) (*Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cur, ok := r.currencies[strings.ToLower(identifier)]
	if !ok {
		return nil, ErrCurrencyNotFound
	}
	return cur, nil
}

// Primary プライマリ通貨を取得する
func (r *Registry) Primary() (*Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.primaryID == "" {
		return nil, ErrNoPrimaryCurrency
	}
	return r.currencies[r.primaryID], nil
}

// All 登録済みのすべての通貨を識別子の昇順で返す
func (r *Registry) All() []*Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Currency, 0, len(r.currencies))
	for _, cur := range r.currencies {
		result = append(result, cur)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Identifier() < result[j].Identifier()
	})
	return result
}

// Len 登録済みの通貨数を返す
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.currencies)
}
