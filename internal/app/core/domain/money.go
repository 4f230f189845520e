package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale 金額允許的最大小數位數 (與資料庫 decimal(19,4) 一致)
const MoneyScale = 4

// displayScale 輸出時至少保留的小數位數
const displayScale = 2

// Money 定點小數金額，不使用 float 以避免誤差
// 零值代表 0
type Money struct {
	d decimal.Decimal
}

// Zero 金額 0
var Zero = Money{}

// NewMoneyFromInt 以整數單位建立金額 (例如 100 代表 100.00)
func NewMoneyFromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

// NewMoneyFromDecimal 由 decimal.Decimal 建立金額
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// ParseMoney 解析十進位字串，例如 "100.50"
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q is not a decimal amount", ErrInvalidAmount, s)
	}
	return Money{d: d}, nil
}

// MustParseMoney 同 ParseMoney，失敗時 panic。只用於常數與測試。
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal 回傳底層 decimal 值
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// Cmp 比較大小: -1 (m < o), 0 (m == o), +1 (m > o)
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// Equal 數值相等 (忽略小數位數差異，100 == 100.00)
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// fitsScale 小數位數是否在 MoneyScale 以內
func (m Money) fitsScale() bool {
	return m.d.Equal(m.d.Truncate(MoneyScale))
}

// String 固定輸出兩位小數，除非有更多有效位數
func (m Money) String() string {
	if m.d.Equal(m.d.Round(displayScale)) {
		return m.d.StringFixed(displayScale)
	}
	return m.d.String()
}

// MarshalJSON 輸出為 JSON number (不加引號)
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON 接受 number 或 string
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, err.Error())
	}
	m.d = d
	return nil
}

func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalText(text []byte) error {
	parsed, err := ParseMoney(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
