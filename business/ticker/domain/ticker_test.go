package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/token"
)

var (
	zrx  = token.New(common.HexToAddress("0x01"), "ZRX", 18)
	weth = token.New(common.HexToAddress("0x02"), "WETH", 18)
)

func TestNewTicker(t *testing.T) {
	tests := []struct {
		price string
		code  apperror.Code
	}{
		{"0.0005", ""},
		{"0", apperror.CodeInvalidTicker},
		{"-1", apperror.CodeInvalidTicker},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			tk, err := NewTicker(zrx, weth, decimal.RequireFromString(tt.price))
			if tt.code == "" {
				if err != nil || tk.Pair() != "ZRX/WETH" {
					t.Fatalf("NewTicker() = %v, %v", tk, err)
				}
				return
			}
			if !apperror.IsCode(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestTicker_Reciprocal(t *testing.T) {
	tk, err := NewTicker(zrx, weth, decimal.NewFromInt(4))
	if err != nil {
		t.Fatal(err)
	}

	r := tk.Reciprocal()
	if r.From != weth || r.To != zrx || r.Price.String() != "0.25" {
		t.Errorf("Reciprocal() = %s %s", r.Pair(), r.Price)
	}
}
