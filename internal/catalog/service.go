package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/dumbdevss/vault-app/internal/aggregator"
	"github.com/dumbdevss/vault-app/internal/domain"
	"github.com/dumbdevss/vault-app/internal/indexer"
)

// ErrCatalogUnavailable indicates that the token list or balances could not
// be fetched. Callers must render balances as unknown (zero), never stale.
var ErrCatalogUnavailable = errors.New("token catalog unavailable")

// TokenLister fetches the tradable token universe from the aggregator.
type TokenLister interface {
	TokenList(ctx context.Context) ([]aggregator.TokenEntry, error)
}

// BalanceFetcher fetches raw on-chain balances from the indexer.
type BalanceFetcher interface {
	FetchBalances(ctx context.Context, ownerAddress string) ([]indexer.BalanceRow, error)
}

// Service loads the token catalog and balances into the shared store.
type Service struct {
	tokens   TokenLister
	balances BalanceFetcher
	store    *Store
}

// NewService creates a new catalog service.
func NewService(tokens TokenLister, balances BalanceFetcher, store *Store) *Service {
	return &Service{
		tokens:   tokens,
		balances: balances,
		store:    store,
	}
}

// Store exposes the shared store for read access by other components.
func (s *Service) Store() *Store {
	return s.store
}

// LoadCatalog fetches the full tradable token list and replaces the stored
// catalog. Entries are deduplicated by symbol, first occurrence wins; the
// aggregator orders its list by prominence, so the first entry per symbol is
// the canonical one.
func (s *Service) LoadCatalog(ctx context.Context) ([]domain.Token, error) {
	entries, err := s.tokens.TokenList(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	unique := lo.UniqBy(entries, func(e aggregator.TokenEntry) string { return e.Symbol })
	tokens := lo.Map(unique, func(e aggregator.TokenEntry, _ int) domain.Token {
		return domain.Token{
			Address:  e.Address(),
			Symbol:   e.Symbol,
			Name:     e.Name,
			Decimals: e.Decimals,
			LogoURL:  e.LogoURL,
			USDPrice: e.USDPrice,
		}
	})

	s.store.ReplaceTokens(tokens)
	slog.Info("token catalog loaded", "tokens", len(tokens), "deduplicated", len(entries)-len(unique))
	return tokens, nil
}

// LoadBalances fetches current balances for ownerAddress and replaces the
// stored balance map. A disconnected wallet (empty address) yields an empty
// map and no error. Raw integer amounts are converted to human units.
func (s *Service) LoadBalances(ctx context.Context, ownerAddress string) (domain.BalanceMap, error) {
	if ownerAddress == "" {
		empty := make(domain.BalanceMap)
		s.store.ReplaceBalances(empty)
		return empty, nil
	}

	rows, err := s.balances.FetchBalances(ctx, ownerAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	balances := make(domain.BalanceMap, len(rows))
	for _, row := range rows {
		raw, err := decimal.NewFromString(row.Amount.String())
		if err != nil {
			slog.Warn("skipping unparseable balance", "asset", row.AssetType, "amount", row.Amount)
			continue
		}
		balances[row.AssetType] = domain.FromRawUnits(raw, row.Metadata.Decimals)
	}

	s.store.ReplaceBalances(balances)
	return balances, nil
}

// RefreshAfterSwap invalidates balances and price data, then refetches both.
// Invalidation happens before the refetch so no reader observes the old
// balances once a swap has confirmed.
func (s *Service) RefreshAfterSwap(ctx context.Context, ownerAddress string) error {
	s.store.InvalidateBalances()

	if _, err := s.LoadBalances(ctx, ownerAddress); err != nil {
		return err
	}
	if _, err := s.LoadCatalog(ctx); err != nil {
		return err
	}
	return nil
}
