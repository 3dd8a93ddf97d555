package binance

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const bookTickerSuffix = "@bookTicker"

// StreamEvent is the combined-stream envelope.
type StreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// BookTickerEvent is a best bid/ask update from <symbol>@bookTicker.
type BookTickerEvent struct {
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// BookTickerResponse is the REST /api/v3/ticker/bookTicker payload.
type BookTickerResponse struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

// BookTickerStream returns the stream name for symbol.
func BookTickerStream(symbol string) string {
	return strings.ToLower(symbol) + bookTickerSuffix
}

// midPrice averages bid and ask. Either side missing yields false.
func midPrice(bid, ask string) (decimal.Decimal, bool) {
	b, err := decimal.NewFromString(bid)
	if err != nil || !b.IsPositive() {
		return decimal.Zero, false
	}
	a, err := decimal.NewFromString(ask)
	if err != nil || !a.IsPositive() {
		return decimal.Zero, false
	}
	return b.Add(a).Div(decimal.NewFromInt(2)), true
}
