// Package domain contains the liquidity and quote models of the quoting context.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/reserve-relayer/internal/token"
)

// TokenPool is the envelope, in base units, the relayer commits for a token.
// 0 <= MinimumAmount <= MaximumAmount.
type TokenPool struct {
	Token         *token.Token
	MinimumAmount *big.Int
	MaximumAmount *big.Int
	Precision     int
}

// EmptyPool returns a pool offering nothing.
func EmptyPool(t *token.Token, precision int) TokenPool {
	return TokenPool{
		Token:         t,
		MinimumAmount: big.NewInt(0),
		MaximumAmount: big.NewInt(0),
		Precision:     precision,
	}
}

// IsEmpty reports whether the pool has no positive maximum.
func (p TokenPool) IsEmpty() bool {
	return p.MaximumAmount == nil || p.MaximumAmount.Sign() <= 0
}

// PairSide is one token of a tradable pair with its amount bounds.
type PairSide struct {
	Address   common.Address
	MinAmount *big.Int
	MaxAmount *big.Int
	Precision int
}

// TokenPairTradeInfo is a directional pair: the relayer sells TokenA and
// buys TokenB.
type TokenPairTradeInfo struct {
	TokenA PairSide
	TokenB PairSide
}

// Touches reports whether either side of the pair is address.
func (p TokenPairTradeInfo) Touches(address common.Address) bool {
	return p.TokenA.Address == address || p.TokenB.Address == address
}

// PriceQuote is a display-unit quote for trading TokenFrom into TokenTo.
type PriceQuote struct {
	TokenFrom     common.Address
	TokenTo       common.Address
	Price         decimal.Decimal
	MaxAmountFrom decimal.Decimal
	MaxAmountTo   decimal.Decimal
	MinAmountFrom decimal.Decimal
	MinAmountTo   decimal.Decimal
}
