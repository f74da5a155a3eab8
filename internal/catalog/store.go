package catalog

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dumbdevss/vault-app/internal/domain"
)

// Store holds the process-wide token catalog and balance map shared by every
// page of the dashboard. Both are replaced wholesale by the designated fetch
// operations; there is no per-entry mutation API.
type Store struct {
	mu        sync.RWMutex
	tokens    []domain.Token
	byAddress map[string]domain.Token
	balances  domain.BalanceMap
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byAddress: make(map[string]domain.Token),
		balances:  make(domain.BalanceMap),
	}
}

// ReplaceTokens swaps in a new token catalog.
func (s *Store) ReplaceTokens(tokens []domain.Token) {
	byAddress := make(map[string]domain.Token, len(tokens))
	for _, t := range tokens {
		byAddress[t.Address] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	s.byAddress = byAddress
}

// ReplaceBalances swaps in a new balance map.
func (s *Store) ReplaceBalances(balances domain.BalanceMap) {
	if balances == nil {
		balances = make(domain.BalanceMap)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = balances
}

// InvalidateBalances drops all balances. Until the next ReplaceBalances every
// balance reads as zero, never as a stale value.
func (s *Store) InvalidateBalances() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = make(domain.BalanceMap)
}

// Tokens returns the current token catalog.
func (s *Store) Tokens() []domain.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// Token looks up a token by address.
func (s *Store) Token(address string) (domain.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byAddress[address]
	return t, ok
}

// Balance returns the balance for a token address in human units. An unknown
// address reads as zero.
func (s *Store) Balance(address string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances.Get(address)
}

// Balances returns a copy of the current balance map.
func (s *Store) Balances() domain.BalanceMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(domain.BalanceMap, len(s.balances))
	for k, v := range s.balances {
		out[k] = v
	}
	return out
}

// USDPrice returns the reference USD price for a token address, or zero when
// the token is unknown or unpriced.
func (s *Store) USDPrice(address string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byAddress[address]
	if !ok {
		return decimal.Zero
	}
	return domain.SafeParse(t.USDPrice)
}
