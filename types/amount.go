package types

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest mint precision a TokenAmount can express.
const MaxDecimals = 18

// TokenAmount is a quantity of a mint in base units together with the
// mint's precision. All ledger arithmetic happens on Raw; Decimals only
// affects presentation.
//
// Examples:
//   - TokenAmount{Raw: 1_500_000_000, Decimals: 9} = "1.500000000"
//   - TokenAmount{Raw: 250, Decimals: 0}           = "250"
type TokenAmount struct {
	Raw      int64 `json:"raw"`
	Decimals uint8 `json:"decimals"`
}

// NewTokenAmount returns a TokenAmount, clamping decimals to MaxDecimals.
func NewTokenAmount(raw int64, decimals uint8) TokenAmount {
	if decimals > MaxDecimals {
		decimals = MaxDecimals
	}
	return TokenAmount{Raw: raw, Decimals: decimals}
}

// ParseTokenAmount parses a human-readable amount ("12.5") into base units.
// It rejects amounts with more fractional digits than the mint supports
// and amounts that do not fit in an int64.
func ParseTokenAmount(s string, decimals uint8) (TokenAmount, error) {
	if decimals > MaxDecimals {
		return TokenAmount{}, fmt.Errorf("types: decimals %d exceeds %d", decimals, MaxDecimals)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return TokenAmount{}, fmt.Errorf("types: parse amount %q: %w", s, err)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return TokenAmount{}, fmt.Errorf("types: amount %q has more than %d decimal places", s, decimals)
	}
	if shifted.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || shifted.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return TokenAmount{}, fmt.Errorf("types: amount %q overflows int64 base units", s)
	}

	return TokenAmount{Raw: shifted.IntPart(), Decimals: decimals}, nil
}

// Decimal returns the amount in whole-token units.
func (t TokenAmount) Decimal() decimal.Decimal {
	return decimal.New(t.Raw, -int32(t.Decimals))
}

// String formats the amount with exactly Decimals fractional digits.
func (t TokenAmount) String() string {
	return t.Decimal().StringFixed(int32(t.Decimals))
}

// IsPositive reports whether the amount is greater than zero.
func (t TokenAmount) IsPositive() bool { return t.Raw > 0 }

// MarshalJSON includes a display string next to the raw value.
func (t TokenAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Raw      int64  `json:"raw"`
		Decimals uint8  `json:"decimals"`
		Display  string `json:"display"`
	}{
		Raw:      t.Raw,
		Decimals: t.Decimals,
		Display:  t.String(),
	})
}
