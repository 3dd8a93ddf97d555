package signer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/reserve-relayer/business/exchange/domain"
	"github.com/fd1az/reserve-relayer/internal/apperror"
)

// well-known development key
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func order(maker common.Address) domain.Order {
	return domain.Order{
		ExchangeContract: common.HexToAddress("0x12459c951127e0c374ff9105dda097662a027093"),
		Maker:            maker,
		MakerToken:       common.HexToAddress("0xe41d2489571d322189246dafa5ebde1f4699f498"),
		TakerToken:       common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"),
		MakerTokenAmount: big.NewInt(1e18),
		TakerTokenAmount: big.NewInt(5e14),
		MakerFee:         big.NewInt(0),
		TakerFee:         big.NewInt(0),
		Expiration:       big.NewInt(1_700_000_300),
		Salt:             big.NewInt(123456789),
	}
}

func TestNew(t *testing.T) {
	s, err := New(devKey)
	if err != nil {
		t.Fatal(err)
	}
	want := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	if s.Address() != want {
		t.Errorf("Address() = %s, want %s", s.Address().Hex(), want.Hex())
	}

	if _, err := New("zz"); !apperror.IsCode(err, apperror.CodeConfigurationError) {
		t.Errorf("New(bad) error = %v", err)
	}
}

func TestSignOrder_RoundTrip(t *testing.T) {
	s, err := New(devKey)
	if err != nil {
		t.Fatal(err)
	}

	signed, err := s.SignOrder(context.Background(), order(s.Address()))
	if err != nil {
		t.Fatalf("SignOrder() error = %v", err)
	}
	if signed.Signature.V != 27 && signed.Signature.V != 28 {
		t.Errorf("v = %d", signed.Signature.V)
	}
	if !s.IsValidSignedOrder(signed) {
		t.Fatal("freshly signed order must verify")
	}

	tampered := signed
	tampered.TakerTokenAmount = big.NewInt(1)
	if VerifyOrder(tampered) {
		t.Error("tampered order must not verify")
	}
}

func TestVerifyOrder_WrongMaker(t *testing.T) {
	s, err := New(devKey)
	if err != nil {
		t.Fatal(err)
	}

	signed, err := s.SignOrder(context.Background(), order(common.HexToAddress("0xdead")))
	if err != nil {
		t.Fatal(err)
	}
	if VerifyOrder(signed) {
		t.Error("signature by a different key than maker must not verify")
	}

	signed.Signature.V = 40
	if VerifyOrder(signed) {
		t.Error("invalid v must not verify")
	}
}
