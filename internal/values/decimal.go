package values

import "github.com/shopspring/decimal"

// DecimalValue is the exact decimal representation used for Decimal and
// Money amounts. It is a thin alias over shopspring/decimal so the rest
// of the package never imports decimal directly.
type DecimalValue = decimal.Decimal

// ParseDecimal parses a base-10 string into a DecimalValue. Decimal
// literals stay strings from the lexer through to evaluation; they are
// never routed through a binary float.
func ParseDecimal(s string) (DecimalValue, error) {
	return decimal.NewFromString(s)
}

func DecimalFromInt(i int64) DecimalValue {
	return decimal.NewFromInt(i)
}
