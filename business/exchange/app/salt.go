package app

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/fd1az/reserve-relayer/internal/apperror"
)

var maxSalt = new(big.Int).Lsh(big.NewInt(1), 256)

// SaltService draws uniformly random 256-bit salts.
type SaltService struct{}

// NewSaltService creates a SaltService.
func NewSaltService() *SaltService {
	return &SaltService{}
}

// Salt returns a random integer in [0, 2^256).
func (SaltService) Salt() (*big.Int, error) {
	n, err := rand.Int(rand.Reader, maxSalt)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "salt", err)
	}
	return n, nil
}

// ExpirationService stamps orders with now + a fixed offset.
type ExpirationService struct {
	offset time.Duration
	now    func() time.Time
}

// NewExpirationService creates an ExpirationService. A non-positive offset
// falls back to five minutes.
func NewExpirationService(offset time.Duration, now func() time.Time) *ExpirationService {
	if offset <= 0 {
		offset = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &ExpirationService{offset: offset, now: now}
}

// ExpirationTimestamp returns the expiration in unix seconds.
func (s *ExpirationService) ExpirationTimestamp() *big.Int {
	return big.NewInt(s.now().Add(s.offset).Unix())
}
