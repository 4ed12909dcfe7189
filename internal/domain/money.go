package domain

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Money is an amount in whole dong. The backend may send it as an integer,
// a float (500000.0) or a numeric string.
type Money int64

// UnmarshalJSON accepts numbers and numeric strings and rounds to whole units.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	if s == "" {
		*m = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	*m = Money(d.Round(0).IntPart())
	return nil
}

// String renders the amount without grouping, e.g. "1200000".
func (m Money) String() string {
	return strconv.FormatInt(int64(m), 10)
}

// Decimal returns the amount as a decimal for percentage arithmetic.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}
