// Package domain contains the order model of the exchange protocol.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Order is an unsigned exchange order. All amounts are token base units.
type Order struct {
	ExchangeContract common.Address
	Maker            common.Address
	Taker            common.Address
	MakerToken       common.Address
	TakerToken       common.Address
	FeeRecipient     common.Address
	MakerTokenAmount *big.Int
	TakerTokenAmount *big.Int
	MakerFee         *big.Int
	TakerFee         *big.Int
	Expiration       *big.Int // unix seconds
	Salt             *big.Int
}

// ECSignature is a secp256k1 signature with V in {27, 28}.
type ECSignature struct {
	V uint8
	R common.Hash
	S common.Hash
}

// SignedOrder is an order together with the maker's signature over its hash.
type SignedOrder struct {
	Order
	Signature ECSignature
}

// Hash returns keccak256 over the tightly packed order fields.
func (o *Order) Hash() common.Hash {
	return crypto.Keccak256Hash(
		o.ExchangeContract.Bytes(),
		o.Maker.Bytes(),
		o.Taker.Bytes(),
		o.MakerToken.Bytes(),
		o.TakerToken.Bytes(),
		o.FeeRecipient.Bytes(),
		word(o.MakerTokenAmount),
		word(o.TakerTokenAmount),
		word(o.MakerFee),
		word(o.TakerFee),
		word(o.Expiration),
		word(o.Salt),
	)
}

// Price is the implied price takerTokenAmount / makerTokenAmount in base
// units. A zero maker amount yields zero.
func (o *Order) Price() decimal.Decimal {
	if o.MakerTokenAmount == nil || o.MakerTokenAmount.Sign() == 0 || o.TakerTokenAmount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(o.TakerTokenAmount, 0).
		DivRound(decimal.NewFromBigInt(o.MakerTokenAmount, 0), 36)
}

func word(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}
