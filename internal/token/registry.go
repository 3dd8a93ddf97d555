package token

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/reserve-relayer/internal/apperror"
)

// Registry is the token directory: a thread-safe index of tradable tokens.
type Registry struct {
	mu        sync.RWMutex
	byAddress map[common.Address]*Token
	bySymbol  map[string]*Token
}

// NewRegistry creates a registry holding tokens.
// Panics on duplicate address or symbol.
func NewRegistry(tokens ...*Token) *Registry {
	r := &Registry{
		byAddress: make(map[common.Address]*Token),
		bySymbol:  make(map[string]*Token),
	}
	for _, t := range tokens {
		r.Register(t)
	}
	return r
}

// Register adds a token. Panics if its address or symbol is already known.
func (r *Registry) Register(t *Token) {
	if t == nil {
		panic("token: cannot register nil token")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAddress[t.Address()]; exists {
		panic(fmt.Sprintf("token: %s already registered", t.Address().Hex()))
	}
	if _, exists := r.bySymbol[t.Symbol()]; exists {
		panic(fmt.Sprintf("token: symbol %s already registered", t.Symbol()))
	}

	r.byAddress[t.Address()] = t
	r.bySymbol[t.Symbol()] = t
}

// GetBySymbol resolves a token by symbol (case-insensitive).
func (r *Registry) GetBySymbol(symbol string) (*Token, error) {
	r.mu.RLock()
	t, ok := r.bySymbol[strings.ToUpper(symbol)]
	r.mu.RUnlock()

	if !ok {
		return nil, apperror.NotFound(apperror.CodeTokenNotFound, "symbol "+symbol)
	}
	return t, nil
}

// GetByAddress resolves a token by contract address.
func (r *Registry) GetByAddress(address common.Address) (*Token, error) {
	r.mu.RLock()
	t, ok := r.byAddress[address]
	r.mu.RUnlock()

	if !ok {
		return nil, apperror.NotFound(apperror.CodeTokenNotFound, "address "+address.Hex())
	}
	return t, nil
}

// All returns every token ordered by symbol, so callers iterate deterministically.
func (r *Registry) All() []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Token, 0, len(r.bySymbol))
	for _, t := range r.bySymbol {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol() < result[j].Symbol()
	})
	return result
}

// Count returns the number of registered tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddress)
}
