package rest

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	exchangeDomain "github.com/fd1az/reserve-relayer/business/exchange/domain"
	quotingDomain "github.com/fd1az/reserve-relayer/business/quoting/domain"
)

// PairSideResponse is one token of a tradable pair.
type PairSideResponse struct {
	Address   string `json:"address"`
	MinAmount string `json:"minAmount"`
	MaxAmount string `json:"maxAmount"`
	Precision int    `json:"precision"`
}

// TokenPairResponse is an element of GET /v0/token_pairs.
type TokenPairResponse struct {
	TokenA PairSideResponse `json:"tokenA"`
	TokenB PairSideResponse `json:"tokenB"`
}

// SignatureResponse is the maker signature of an order.
type SignatureResponse struct {
	V uint8  `json:"v"`
	R string `json:"r"`
	S string `json:"s"`
}

// OrderResponse is an element of GET /v0/orders.
type OrderResponse struct {
	ExchangeContractAddress    string            `json:"exchangeContractAddress"`
	Maker                      string            `json:"maker"`
	Taker                      string            `json:"taker"`
	MakerTokenAddress          string            `json:"makerTokenAddress"`
	TakerTokenAddress          string            `json:"takerTokenAddress"`
	FeeRecipient               string            `json:"feeRecipient"`
	MakerTokenAmount           string            `json:"makerTokenAmount"`
	TakerTokenAmount           string            `json:"takerTokenAmount"`
	MakerFee                   string            `json:"makerFee"`
	TakerFee                   string            `json:"takerFee"`
	ExpirationUnixTimestampSec string            `json:"expirationUnixTimestampSec"`
	Salt                       string            `json:"salt"`
	ECSignature                SignatureResponse `json:"ecSignature"`
}

// PriceResponse is the body of GET /v0/price. Amounts are display units.
type PriceResponse struct {
	TokenFrom     string `json:"tokenFrom"`
	TokenTo       string `json:"tokenTo"`
	Price         string `json:"price"`
	MaxAmountFrom string `json:"maxAmountFrom"`
	MaxAmountTo   string `json:"maxAmountTo"`
	MinAmountFrom string `json:"minAmountFrom"`
	MinAmountTo   string `json:"minAmountTo"`
}

// FeesRequest is the body of POST /v0/fees. Amounts are base units.
type FeesRequest struct {
	ExchangeContractAddress    string `json:"exchangeContractAddress"`
	Maker                      string `json:"maker"`
	Taker                      string `json:"taker"`
	MakerTokenAddress          string `json:"makerTokenAddress" binding:"required"`
	TakerTokenAddress          string `json:"takerTokenAddress" binding:"required"`
	MakerTokenAmount           string `json:"makerTokenAmount" binding:"required"`
	TakerTokenAmount           string `json:"takerTokenAmount" binding:"required"`
	ExpirationUnixTimestampSec string `json:"expirationUnixTimestampSec"`
	Salt                       string `json:"salt"`
}

// FeesResponse is the body of POST /v0/fees.
type FeesResponse struct {
	FeeRecipient string `json:"feeRecipient"`
	MakerFee     string `json:"makerFee"`
	TakerFee     string `json:"takerFee"`
}

func hexAddress(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func toPairSide(s quotingDomain.PairSide) PairSideResponse {
	return PairSideResponse{
		Address:   hexAddress(s.Address),
		MinAmount: amount(s.MinAmount),
		MaxAmount: amount(s.MaxAmount),
		Precision: s.Precision,
	}
}

func toTokenPairs(pairs []quotingDomain.TokenPairTradeInfo) []TokenPairResponse {
	out := make([]TokenPairResponse, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, TokenPairResponse{TokenA: toPairSide(p.TokenA), TokenB: toPairSide(p.TokenB)})
	}
	return out
}

func toOrders(orders []exchangeDomain.SignedOrder) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderResponse{
			ExchangeContractAddress:    hexAddress(o.ExchangeContract),
			Maker:                      hexAddress(o.Maker),
			Taker:                      hexAddress(o.Taker),
			MakerTokenAddress:          hexAddress(o.MakerToken),
			TakerTokenAddress:          hexAddress(o.TakerToken),
			FeeRecipient:               hexAddress(o.FeeRecipient),
			MakerTokenAmount:           amount(o.MakerTokenAmount),
			TakerTokenAmount:           amount(o.TakerTokenAmount),
			MakerFee:                   amount(o.MakerFee),
			TakerFee:                   amount(o.TakerFee),
			ExpirationUnixTimestampSec: amount(o.Expiration),
			Salt:                       amount(o.Salt),
			ECSignature: SignatureResponse{
				V: o.Signature.V,
				R: o.Signature.R.Hex(),
				S: o.Signature.S.Hex(),
			},
		})
	}
	return out
}

func toPrice(q quotingDomain.PriceQuote) PriceResponse {
	return PriceResponse{
		TokenFrom:     hexAddress(q.TokenFrom),
		TokenTo:       hexAddress(q.TokenTo),
		Price:         q.Price.String(),
		MaxAmountFrom: q.MaxAmountFrom.String(),
		MaxAmountTo:   q.MaxAmountTo.String(),
		MinAmountFrom: q.MinAmountFrom.String(),
		MinAmountTo:   q.MinAmountTo.String(),
	}
}
