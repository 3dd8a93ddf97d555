package uniswap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool fee tiers in hundredths of a bip.
const (
	FeeTier001 = 100
	FeeTier005 = 500
	FeeTier030 = 3000
	FeeTier100 = 10000
)

// DefaultQuoter is the QuoterV2 deployment on mainnet.
const DefaultQuoter = "0x61fFE014bA17989E743c5F6cB21bF9697530B21e"

const quoteMethod = "quoteExactInputSingle"

// quoterV2ABI holds quoteExactInputSingle only.
const quoterV2ABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
				],
				"internalType": "struct IQuoterV2.QuoteExactInputSingleParams",
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "quoteExactInputSingle",
		"outputs": [
			{"internalType": "uint256", "name": "amountOut", "type": "uint256"},
			{"internalType": "uint160", "name": "sqrtPriceX96After", "type": "uint160"},
			{"internalType": "uint32", "name": "initializedTicksCrossed", "type": "uint32"},
			{"internalType": "uint256", "name": "gasEstimate", "type": "uint256"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// quoteParams mirrors IQuoterV2.QuoteExactInputSingleParams.
type quoteParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}
