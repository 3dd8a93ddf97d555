// Package rest serves the standard relayer API v0 over gin.
package rest

import (
	"context"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	exchangeDomain "github.com/fd1az/reserve-relayer/business/exchange/domain"
	ordersApp "github.com/fd1az/reserve-relayer/business/orders/app"
	quotingApp "github.com/fd1az/reserve-relayer/business/quoting/app"
	quotingDomain "github.com/fd1az/reserve-relayer/business/quoting/domain"
	limitDomain "github.com/fd1az/reserve-relayer/business/requestlimit/domain"
	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/health"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// OrderLister lists the relayer's signed orders.
type OrderLister interface {
	ListOrders(ctx context.Context, f ordersApp.OrderFilter) ([]exchangeDomain.SignedOrder, error)
}

// PriceQuoter quotes a token pair.
type PriceQuoter interface {
	CalculatePrice(ctx context.Context, from, to, trader common.Address) (quotingDomain.PriceQuote, error)
}

// Limiter counts calls per client.
type Limiter interface {
	GetLimit(ctx context.Context, clientKey string) (limitDomain.Limit, error)
	MaxCalls() int
}

// Deps groups the collaborators of Handler. A nil Limiter disables the
// request limit and a nil Health skips the health routes.
type Deps struct {
	Pairs   quotingApp.Pairs
	Orders  OrderLister
	Prices  PriceQuoter
	Fees    quotingApp.Fees
	Tokens  *token.Registry
	Limiter Limiter
	Health  *health.Registry
	Logger  logger.LoggerInterface
}

// Handler implements the v0 endpoints.
type Handler struct {
	pairs   quotingApp.Pairs
	orders  OrderLister
	prices  PriceQuoter
	fees    quotingApp.Fees
	tokens  *token.Registry
	limiter Limiter
	health  *health.Registry
	logger  logger.LoggerInterface
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		pairs:   deps.Pairs,
		orders:  deps.Orders,
		prices:  deps.Prices,
		fees:    deps.Fees,
		tokens:  deps.Tokens,
		limiter: deps.Limiter,
		health:  deps.Health,
		logger:  deps.Logger,
	}
}

// TokenPairs handles GET /v0/token_pairs.
func (h *Handler) TokenPairs(c *gin.Context) {
	page, perPage := pageParams(c)
	pairs, err := h.pairs.ListPairs(c.Request.Context(),
		addressParam(c, "tokenA"), addressParam(c, "tokenB"), page, perPage)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenPairs(pairs))
}

// Orders handles GET /v0/orders.
func (h *Handler) Orders(c *gin.Context) {
	page, perPage := pageParams(c)
	orders, err := h.orders.ListOrders(c.Request.Context(), ordersApp.OrderFilter{
		ExchangeContractAddress: addressParam(c, "exchangeContractAddress"),
		TokenAddress:            addressParam(c, "tokenAddress"),
		MakerTokenAddress:       addressParam(c, "makerTokenAddress"),
		TakerTokenAddress:       addressParam(c, "takerTokenAddress"),
		Maker:                   addressParam(c, "maker"),
		Taker:                   addressParam(c, "taker"),
		Trader:                  addressParam(c, "trader"),
		FeeRecipient:            addressParam(c, "feeRecipient"),
		Page:                    page,
		PerPage:                 perPage,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrders(orders))
}

// Price handles GET /v0/price.
func (h *Handler) Price(c *gin.Context) {
	from, to := addressParam(c, "tokenFrom"), addressParam(c, "tokenTo")
	if from == nil || to == nil {
		h.respondError(c, apperror.InvalidArgument("tokenFrom and tokenTo are required"))
		return
	}
	var trader common.Address
	if t := addressParam(c, "trader"); t != nil {
		trader = *t
	}

	quote, err := h.prices.CalculatePrice(c.Request.Context(), *from, *to, trader)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPrice(quote))
}

// Fees handles POST /v0/fees.
func (h *Handler) Fees(c *gin.Context) {
	var req FeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err), apperror.WithContext("fees request")))
		return
	}

	makerToken, err := h.tokenParam("makerTokenAddress", req.MakerTokenAddress)
	if err != nil {
		h.respondError(c, err)
		return
	}
	takerToken, err := h.tokenParam("takerTokenAddress", req.TakerTokenAddress)
	if err != nil {
		h.respondError(c, err)
		return
	}
	makerAmount, err := amountParam("makerTokenAmount", req.MakerTokenAmount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	takerAmount, err := amountParam("takerTokenAmount", req.TakerTokenAmount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	makerFee, err := h.fees.MakerFee(ctx, makerToken, makerAmount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	takerFee, err := h.fees.TakerFee(ctx, takerToken, takerAmount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, FeesResponse{
		FeeRecipient: hexAddress(h.fees.FeeRecipient(ctx, takerToken)),
		MakerFee:     amount(makerFee),
		TakerFee:     amount(takerFee),
	})
}

func (h *Handler) tokenParam(name, value string) (*token.Token, error) {
	if !common.IsHexAddress(value) {
		return nil, apperror.New(apperror.CodeInvalidAddress, apperror.WithContext(name))
	}
	return h.tokens.GetByAddress(common.HexToAddress(value))
}

func amountParam(name, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok || v.Sign() < 0 {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithMessage("amount must be a non-negative base-10 integer"),
			apperror.WithContext(name))
	}
	return v, nil
}

// addressParam returns the query address or nil when absent. Values were
// validated by the address middleware.
func addressParam(c *gin.Context, name string) *common.Address {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	a := common.HexToAddress(v)
	return &a
}

// pageParams returns page and per_page. Values were validated by the paging
// middleware.
func pageParams(c *gin.Context) (page, perPage *int) {
	return intParam(c, "page"), intParam(c, "per_page")
}

func intParam(c *gin.Context, name string) *int {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}
