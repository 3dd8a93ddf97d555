// Package app contains the exchange ports and the salt and expiration services.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/reserve-relayer/business/exchange/domain"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// Gateway is the relayer's view of the exchange contract and token balances.
type Gateway interface {
	// CurrentContractAddress returns the exchange contract orders are bound to.
	CurrentContractAddress() common.Address

	// Balance returns the base-unit balance of tok held by owner.
	Balance(ctx context.Context, owner common.Address, tok *token.Token) (*big.Int, error)

	// EnsureAllowance checks that owner has approved at least amount of
	// tokenAddress to the exchange proxy.
	EnsureAllowance(ctx context.Context, amount *big.Int, tokenAddress, owner common.Address) error
}

// Signer signs orders on behalf of the relayer.
type Signer interface {
	// Address is the relayer's main (maker) address.
	Address() common.Address
	SignOrder(ctx context.Context, order domain.Order) (domain.SignedOrder, error)
	IsValidSignedOrder(order domain.SignedOrder) bool
}

// SaltSource produces order salts.
type SaltSource interface {
	Salt() (*big.Int, error)
}

// ExpirationSource produces order expiration timestamps.
type ExpirationSource interface {
	ExpirationTimestamp() *big.Int
}
