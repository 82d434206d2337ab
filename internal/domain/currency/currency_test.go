package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCurrency(t *testing.T) {
	tests := []struct {
		name      string
		def       Definition
		wantError error
	}{
		{
			name: "正常系: 基軸通貨の作成",
			def: Definition{
				Identifier:     "coins",
				DisplayName:    "Coins",
				NameSingular:   "coin",
				NamePlural:     "coins",
				Symbol:         "$",
				DecimalPlaces:  2,
				DefaultBalance: 100,
				MinBalance:     0,
				MaxBalance:     1_000_000,
				Primary:        true,
			},
			wantError: nil,
		},
		{
			name: "正常系: 名前の省略時は識別子から補完",
			def: Definition{
				Identifier: "gem",
				MaxBalance: 1000,
			},
			wantError: nil,
		},
		{
			name: "正常系: マイナスの最小残高（当座貸越）",
			def: Definition{
				Identifier:     "credits",
				DecimalPlaces:  2,
				DefaultBalance: 0,
				MinBalance:     -500,
				MaxBalance:     500,
			},
			wantError: nil,
		},
		{
			name: "異常系: 大文字を含む識別子",
			def: Definition{
				Identifier: "Coins",
				MaxBalance: 100,
			},
			wantError: ErrInvalidIdentifier,
		},
		{
			name: "異常系: 空の識別子",
			def: Definition{
				Identifier: "",
				MaxBalance: 100,
			},
			wantError: ErrInvalidIdentifier,
		},
		{
			name: "異常系: 桁数が範囲外",
			def: Definition{
				Identifier:    "coins",
				DecimalPlaces: 9,
				MaxBalance:    100,
			},
			wantError: ErrInvalidDecimalPlaces,
		},
		{
			name: "異常系: 最小残高が最大残高を上回る",
			def: Definition{
				Identifier: "coins",
				MinBalance: 100,
				MaxBalance: 50,
			},
			wantError: ErrInvalidBalanceBounds,
		},
		{
			name: "異常系: 初期残高が範囲外",
			def: Definition{
				Identifier:     "coins",
				DefaultBalance: 200,
				MinBalance:     0,
				MaxBalance:     100,
			},
			wantError: ErrInvalidBalanceBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCurrency(tt.def)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.def.Identifier, got.Identifier())
		})
	}
}

func TestNewCurrency_Defaults(t *testing.T) {
	c := MustNewCurrency(Definition{
		Identifier: "gem",
		MaxBalance: 1000,
	})

	assert.Equal(t, "gem", c.DisplayName())
	assert.Equal(t, "gem", c.NameSingular())
	assert.Equal(t, "gems", c.NamePlural())
	assert.False(t, c.IsPrimary())
	assert.False(t, c.IsItemBacked())
}

func TestNewCurrency_ItemBacked(t *testing.T) {
	c := MustNewCurrency(Definition{
		Identifier: "essence",
		MaxBalance: 1000,
		ItemType:   "hytale:essence_of_life",
	})

	// ItemTypeの指定でアイテム連動型になる
	assert.True(t, c.IsItemBacked())
	assert.Equal(t, "hytale:essence_of_life", c.ItemType())
}

func TestCurrency_Round(t *testing.T) {
	tests := []struct {
		name     string
		decimals int
		value    float64
		want     float64
	}{
		{
			name:     "正常系: 2桁で四捨五入（切り上げ）",
			decimals: 2,
			value:    150.5555,
			want:     150.56,
		},
		{
			name:     "正常系: 2桁で四捨五入（切り捨て）",
			decimals: 2,
			value:    150.554,
			want:     150.55,
		},
		{
			name:     "正常系: 0桁で四捨五入",
			decimals: 0,
			value:    10.5,
			want:     11,
		},
		{
			name:     "正常系: マイナス値はゼロから遠い方向に丸める",
			decimals: 0,
			value:    -10.5,
			want:     -11,
		},
		{
			name:     "正常系: 浮動小数点の表現誤差に影響されない",
			decimals: 2,
			value:    2.675,
			want:     2.68,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MustNewCurrency(Definition{
				Identifier:    "coins",
				DecimalPlaces: tt.decimals,
				MinBalance:    -1_000_000,
				MaxBalance:    1_000_000,
			})
			assert.Equal(t, tt.want, c.Round(tt.value))
		})
	}
}

func TestCurrency_Format(t *testing.T) {
	tests := []struct {
		name   string
		def    Definition
		amount float64
		want   string
	}{
		{
			name: "正常系: 記号付きフォーマット",
			def: Definition{
				Identifier:    "coins",
				Symbol:        "$",
				DecimalPlaces: 2,
				MaxBalance:    10_000_000,
			},
			amount: 1234.56,
			want:   "$1,234.56",
		},
		{
			name: "正常系: 通貨名フォーマット（複数形）",
			def: Definition{
				Identifier:    "gem",
				NamePlural:    "gems",
				DecimalPlaces: 0,
				MaxBalance:    10_000_000,
			},
			amount: 1234,
			want:   "1,234 gems",
		},
		{
			name: "正常系: 通貨名フォーマット（単数形）",
			def: Definition{
				Identifier:    "gem",
				NameSingular:  "gem",
				DecimalPlaces: 0,
				MaxBalance:    10_000_000,
			},
			amount: 1,
			want:   "1 gem",
		},
		{
			name: "正常系: マイナス値のフォーマット",
			def: Definition{
				Identifier:    "credits",
				Symbol:        "¢",
				DecimalPlaces: 2,
				MinBalance:    -10_000_000,
				MaxBalance:    10_000_000,
			},
			amount: -1234567.8,
			want:   "¢-1,234,567.80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MustNewCurrency(tt.def)
			assert.Equal(t, tt.want, c.Format(tt.amount))
		})
	}
}
