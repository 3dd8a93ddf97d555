// Package signer signs exchange orders with the relayer's secp256k1 key.
package signer

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/reserve-relayer/business/exchange/app"
	"github.com/fd1az/reserve-relayer/business/exchange/domain"
	"github.com/fd1az/reserve-relayer/internal/apperror"
)

var _ app.Signer = (*Signer)(nil)

// Signer holds the relayer key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	tracer  trace.Tracer
}

// New parses a hex private key, with or without 0x prefix.
func New(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("exchange.private_key"),
			apperror.WithCause(err))
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		tracer:  otel.Tracer("signer"),
	}, nil
}

// Address is the account that signs, which is also the relayer's maker address.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignOrder signs the order hash using the Ethereum personal message prefix.
func (s *Signer) SignOrder(ctx context.Context, order domain.Order) (domain.SignedOrder, error) {
	hash := order.Hash()
	_, span := s.tracer.Start(ctx, "signer.sign_order",
		trace.WithAttributes(attribute.String("order_hash", hash.Hex())))
	defer span.End()

	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), s.key)
	if err != nil {
		span.RecordError(err)
		return domain.SignedOrder{}, apperror.Internal(apperror.CodeSigningFailed, hash.Hex(), err)
	}

	return domain.SignedOrder{
		Order: order,
		Signature: domain.ECSignature{
			V: sig[64] + 27,
			R: common.BytesToHash(sig[:32]),
			S: common.BytesToHash(sig[32:64]),
		},
	}, nil
}

// IsValidSignedOrder reports whether the signature recovers to the order maker.
func (s *Signer) IsValidSignedOrder(order domain.SignedOrder) bool {
	return VerifyOrder(order)
}

// VerifyOrder recovers the signer of order and compares it with its maker.
func VerifyOrder(order domain.SignedOrder) bool {
	v := order.Signature.V
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return false
	}

	sig := make([]byte, 65)
	copy(sig[:32], order.Signature.R.Bytes())
	copy(sig[32:64], order.Signature.S.Bytes())
	sig[64] = v

	hash := order.Hash()
	pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == order.Maker
}
