package currency

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var identifierRegex = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// Currency 通貨を表す値オブジェクト（構築後は不変）
type Currency struct {
	identifier     string
	displayName    string
	nameSingular   string
	namePlural     string
	symbol         string
	decimalPlaces  int
	defaultBalance float64
	minBalance     float64
	maxBalance     float64
	primary        bool
	itemBacked     bool
	itemType       string
}

// Definition 通貨の構築パラメータ
type Definition struct {
	Identifier     string
	DisplayName    string
	NameSingular   string
	NamePlural     string
	Symbol         string
	DecimalPlaces  int
	DefaultBalance float64
	MinBalance     float64
	MaxBalance     float64
	Primary        bool
	ItemBacked     bool
	ItemType       string
}

// NewCurrency 新しいCurrencyを作成（バリデーション付きファクトリ）
func NewCurrency(def Definition) (*Currency, error) {
	if !identifierRegex.MatchString(def.Identifier) {
		return nil, ErrInvalidIdentifier
	}
	if def.DecimalPlaces < 0 || def.DecimalPlaces > 8 {
		return nil, ErrInvalidDecimalPlaces
	}
	if def.MinBalance > def.MaxBalance {
		return nil, ErrInvalidBalanceBounds
	}
	if def.DefaultBalance < def.MinBalance || def.DefaultBalance > def.MaxBalance {
		return nil, ErrInvalidBalanceBounds
	}

	displayName := def.DisplayName
	if displayName == "" {
		displayName = def.Identifier
	}
	singular := def.NameSingular
	if singular == "" {
		singular = def.Identifier
	}
	plural := def.NamePlural
	if plural == "" {
		plural = def.Identifier + "s"
	}

	return &Currency{
		identifier:     def.Identifier,
		displayName:    displayName,
		nameSingular:   singular,
		namePlural:     plural,
		symbol:         def.Symbol,
		decimalPlaces:  def.DecimalPlaces,
		defaultBalance: def.DefaultBalance,
		minBalance:     def.MinBalance,
		maxBalance:     def.MaxBalance,
		primary:        def.Primary,
		itemBacked:     def.ItemBacked || def.ItemType != "",
		itemType:       def.ItemType,
	}, nil
}

// Identifier 通貨識別子を返す（小文字英数字とアンダースコア）
func (c *Currency) Identifier() string {
	return c.identifier
}

// DisplayName 表示名を返す
func (c *Currency) DisplayName() string {
	return c.displayName
}

// NameSingular 単数形の通貨名を返す
func (c *Currency) NameSingular() string {
	return c.nameSingular
}

// NamePlural 複数形の通貨名を返す
func (c *Currency) NamePlural() string {
	return c.namePlural
}

// Symbol 通貨記号を返す（空の場合は通貨名でフォーマット）
func (c *Currency) Symbol() string {
	return c.symbol
}

// DecimalPlaces 小数点以下の桁数を返す（0〜8）
func (c *Currency) DecimalPlaces() int {
	return c.decimalPlaces
}

// DefaultBalance 新規口座の初期残高を返す
func (c *Currency) DefaultBalance() float64 {
	return c.defaultBalance
}

// MinBalance 最小残高を返す（マイナス値は当座貸越を許可）
func (c *Currency) MinBalance() float64 {
	return c.minBalance
}

// MaxBalance 最大残高を返す
func (c *Currency) MaxBalance() float64 {
	return c.maxBalance
}

// IsPrimary 基軸通貨かどうかを返す
func (c *Currency) IsPrimary() bool {
	return c.primary
}

// IsItemBacked アイテム連動型の通貨かどうかを返す
func (c *Currency) IsItemBacked() bool {
	return c.itemBacked
}

// ItemType アイテム連動型通貨のアイテム種別を返す（エンジンは解釈しない）
func (c *Currency) ItemType() string {
	return c.itemType
}

// Round 金額を通貨の桁数に丸める（ゼロから遠い方向への四捨五入）
func (c *Currency) Round(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	rounded, _ := decimal.NewFromFloat(value).Round(int32(c.decimalPlaces)).Float64()
	return rounded
}

// Format 金額を表示用文字列にフォーマット
func (c *Currency) Format(amount float64) string {
	formatted := groupDigits(fmt.Sprintf("%.*f", c.decimalPlaces, amount))
	if c.symbol != "" {
		return c.symbol + formatted
	}
	if amount == 1 {
		return formatted + " " + c.nameSingular
	}
	return formatted + " " + c.namePlural
}

// groupDigits 整数部を3桁区切りにする
func groupDigits(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	result := b.String() + fracPart
	if neg {
		return "-" + result
	}
	return result
}

// MustNewCurrency テスト用ヘルパー: NewCurrencyを呼び出し、エラーが発生した場合はpanicする
func MustNewCurrency(def Definition) *Currency {
	c, err := NewCurrency(def)
	if err != nil {
		panic(err)
	}
	return c
}
