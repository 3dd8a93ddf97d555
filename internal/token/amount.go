package token

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount  = errors.New("token: negative amount")
	ErrTooManyDecimals = errors.New("token: too many decimal places for token")
)

// Pow10 returns 10^n as a new big.Int.
func Pow10(n int) *big.Int {
	if n <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ToBaseUnits converts a display amount (e.g. 1.5 WETH) into base units.
// Fractions finer than the token allows are rejected.
func ToBaseUnits(t *Token, d decimal.Decimal) (*big.Int, error) {
	if d.IsNegative() {
		return nil, ErrNegativeAmount
	}

	scaled := d.Shift(int32(t.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, ErrTooManyDecimals
	}
	return scaled.BigInt(), nil
}

// FromBaseUnits converts base units into a display amount.
func FromBaseUnits(t *Token, raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(t.Decimals()))
}

// RoundToPrecision zeroes the digits of amount finer than precision display
// decimals, by integer division. Amounts of at most 10 base units are
// returned unchanged, as are tokens with no more than precision decimals.
// The divisor is 10^(decimals-precision), so it depends on the token's own
// decimals and equals 10^(18-precision) only for 18-decimal tokens.
func RoundToPrecision(amount *big.Int, decimals uint8, precision int) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	if amount.Cmp(big.NewInt(10)) <= 0 {
		return new(big.Int).Set(amount)
	}

	shift := int(decimals) - precision
	if shift <= 0 {
		return new(big.Int).Set(amount)
	}

	unit := Pow10(shift)
	q := new(big.Int).Quo(amount, unit)
	return q.Mul(q, unit)
}

// MulDecimalFloor multiplies a base-unit amount by a decimal factor and
// truncates the result toward zero.
func MulDecimalFloor(amount *big.Int, factor decimal.Decimal) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	return decimal.NewFromBigInt(amount, 0).Mul(factor).Truncate(0).BigInt()
}

// PricePrecision is the number of decimal places kept when a price is
// derived by division.
const PricePrecision = 18

// ConvertAmount converts a base-unit amount of from into base units of to at
// price, expressed as units of to per unit of from. The result is truncated.
func ConvertAmount(amount *big.Int, price decimal.Decimal, from, to *Token) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	return FromBaseUnits(from, amount).
		Mul(price).
		Shift(int32(to.Decimals())).
		Truncate(0).
		BigInt()
}

// ImpliedPrice returns the price, in units of to per unit of from, of
// exchanging amountFrom for amountTo. A zero amountFrom yields zero.
func ImpliedPrice(amountFrom, amountTo *big.Int, from, to *Token) decimal.Decimal {
	if amountFrom == nil || amountFrom.Sign() == 0 {
		return decimal.Zero
	}
	return FromBaseUnits(to, amountTo).DivRound(FromBaseUnits(from, amountFrom), PricePrecision)
}
