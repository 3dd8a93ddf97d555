// Package token holds the ERC-20 token reference data the relayer trades and
// the base-unit arithmetic shared by every numeric component.
package token

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token is immutable reference data. Identity is the contract address;
// the symbol is only a lookup and display key.
type Token struct {
	address  common.Address
	symbol   string
	decimals uint8
}

// New creates a Token. Symbols are stored upper-case.
func New(address common.Address, symbol string, decimals uint8) *Token {
	if symbol == "" {
		panic("token: empty symbol")
	}
	if decimals > 36 {
		panic("token: suspicious decimals (>36)")
	}

	return &Token{
		address:  address,
		symbol:   strings.ToUpper(symbol),
		decimals: decimals,
	}
}

// Address returns the token contract address.
func (t *Token) Address() common.Address {
	return t.address
}

// Symbol returns the ticker symbol (e.g. "ZRX", "WETH").
func (t *Token) Symbol() string {
	return t.symbol
}

// Decimals returns the number of decimal places of one display unit.
func (t *Token) Decimals() uint8 {
	return t.decimals
}

func (t *Token) String() string {
	return t.symbol
}

// Equals compares tokens by address.
func (t *Token) Equals(other *Token) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.address == other.address
}
