package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/dumbdevss/vault-app/internal/catalog"
	"github.com/dumbdevss/vault-app/internal/domain"
)

// Row is one valued holding: a token, its balance in human units, and the USD
// value at the catalog's reference price.
type Row struct {
	Token    domain.Token    `json:"token"`
	Balance  decimal.Decimal `json:"balance"`
	ValueUSD decimal.Decimal `json:"valueUsd"`
}

// Portfolio is a wallet's holdings valued against catalog prices.
type Portfolio struct {
	WalletAddress string    `json:"walletAddress"`
	Rows          []Row     `json:"rows"`
	TotalUSD      string    `json:"totalUsd"`
	ValuedAt      time.Time `json:"valuedAt"`
}

// BalanceLoader fetches the current balance map for a wallet.
type BalanceLoader interface {
	LoadBalances(ctx context.Context, ownerAddress string) (domain.BalanceMap, error)
}

// Service values wallet balances against the token catalog.
type Service struct {
	loader BalanceLoader
	store  *catalog.Store
}

// NewService creates a portfolio service.
func NewService(loader BalanceLoader, store *catalog.Store) *Service {
	return &Service{loader: loader, store: store}
}

// Value fetches the wallet's balances and prices every non-zero holding that
// the catalog knows. Rows come back sorted by USD value, largest first;
// holdings without a catalog price are valued at zero rather than dropped.
func (s *Service) Value(ctx context.Context, walletAddress string) (Portfolio, error) {
	balances, err := s.loader.LoadBalances(ctx, walletAddress)
	if err != nil {
		return Portfolio{}, fmt.Errorf("valuing portfolio for %s: %w", walletAddress, err)
	}

	addresses := lo.Keys(balances)
	rows := lo.FilterMap(addresses, func(address string, _ int) (Row, bool) {
		balance := balances.Get(address)
		if !balance.IsPositive() {
			return Row{}, false
		}

		token, ok := s.store.Token(address)
		if !ok {
			return Row{}, false
		}

		return Row{
			Token:    token,
			Balance:  balance,
			ValueUSD: balance.Mul(s.store.USDPrice(address)),
		}, true
	})

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].ValueUSD.Equal(rows[j].ValueUSD) {
			return rows[i].ValueUSD.GreaterThan(rows[j].ValueUSD)
		}
		return rows[i].Token.Symbol < rows[j].Token.Symbol
	})

	total := lo.Reduce(rows, func(acc decimal.Decimal, r Row, _ int) decimal.Decimal {
		return acc.Add(r.ValueUSD)
	}, decimal.Zero)

	return Portfolio{
		WalletAddress: walletAddress,
		Rows:          rows,
		TotalUSD:      domain.ConditionalFixed(total, 2),
		ValuedAt:      time.Now().UTC(),
	}, nil
}
