// Package app contains the liquidity, fee, price and token pair services.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/reserve-relayer/business/quoting/domain"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// BalanceReader reads token holdings.
type BalanceReader interface {
	Balance(ctx context.Context, owner common.Address, t *token.Token) (*big.Int, error)
}

// Liquidity sizes the envelope offered per token.
type Liquidity interface {
	AvailableAmount(ctx context.Context, t *token.Token) (domain.TokenPool, error)
}

// Fees prices the protocol fee of each side of an order.
type Fees interface {
	MakerFee(ctx context.Context, t *token.Token, amount *big.Int) (*big.Int, error)
	TakerFee(ctx context.Context, t *token.Token, amount *big.Int) (*big.Int, error)
	FeeRecipient(ctx context.Context, t *token.Token) common.Address
}

// Pairs lists the tradable token pairs.
type Pairs interface {
	ListPairs(ctx context.Context, tokenA, tokenB *common.Address, page, perPage *int) ([]domain.TokenPairTradeInfo, error)
	GetPair(ctx context.Context, bought, sold common.Address) (*domain.TokenPairTradeInfo, error)
}
