package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dumbdevss/vault-app/internal/aggregator"
	"github.com/dumbdevss/vault-app/internal/catalog"
	"github.com/dumbdevss/vault-app/internal/domain"
)

var (
	// ErrQuoteUnavailable indicates a precondition was not met (empty amount,
	// identical tokens, disconnected wallet, missing reference price). It is
	// silent: the preview clears and no user-visible error is shown.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrQuoteFetchFailed indicates the aggregator call failed. Recoverable;
	// the next scheduled refresh retries.
	ErrQuoteFetchFailed = errors.New("quote fetch failed")

	// ErrSuperseded indicates a newer request was issued while this one was
	// in flight. The result must be discarded silently.
	ErrSuperseded = errors.New("quote superseded")
)

// RouteQuoter fetches a swap quote from the aggregator.
type RouteQuoter interface {
	Quote(ctx context.Context, params aggregator.SwapParams) (aggregator.RouteQuote, error)
}

// Engine turns a QuoteRequest into a QuoteResult. Generations are scoped per
// wallet: every request bumps that wallet's monotonically increasing counter,
// and a result is only returned if its generation is still the latest when
// the fetch completes. A stale in-flight response can never reach displayed
// state, and unrelated wallets quoting concurrently never discard each
// other's results.
type Engine struct {
	agg     RouteQuoter
	store   *catalog.Store
	timeout time.Duration

	mu  sync.Mutex
	gen map[string]uint64
}

// NewEngine creates a quote engine. timeout bounds each aggregator call.
func NewEngine(agg RouteQuoter, store *catalog.Store, timeout time.Duration) *Engine {
	return &Engine{
		agg:     agg,
		store:   store,
		timeout: timeout,
		gen:     make(map[string]uint64),
	}
}

// RequestQuote performs a single quote attempt, no retries.
//
// Precondition violations short-circuit to ErrQuoteUnavailable without a
// network call. Aggregator failures (including timeout) map to
// ErrQuoteFetchFailed. If a newer request supersedes this one while the fetch
// is in flight, ErrSuperseded is returned and the result must be dropped.
func (e *Engine) RequestQuote(ctx context.Context, req domain.QuoteRequest) (domain.QuoteResult, error) {
	gen := e.next(req.WalletAddress)

	amount := domain.SafeParse(req.FromAmount)
	switch {
	case !amount.IsPositive():
		return domain.QuoteResult{}, ErrQuoteUnavailable
	case req.FromTokenAddress == req.ToTokenAddress:
		return domain.QuoteResult{}, ErrQuoteUnavailable
	case req.WalletAddress == "":
		return domain.QuoteResult{}, ErrQuoteUnavailable
	}

	fromUSD := e.store.USDPrice(req.FromTokenAddress)
	toUSD := e.store.USDPrice(req.ToTokenAddress)
	if !fromUSD.IsPositive() || !toUSD.IsPositive() {
		return domain.QuoteResult{}, ErrQuoteUnavailable
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	route, err := e.agg.Quote(fetchCtx, aggregator.SwapParams{
		FromTokenAddress: req.FromTokenAddress,
		ToTokenAddress:   req.ToTokenAddress,
		FromTokenAmount:  req.FromAmount,
		ToWalletAddress:  req.WalletAddress,
		SlippagePercent:  req.SlippagePercent.String(),
	})
	if err != nil {
		if e.current(req.WalletAddress) != gen {
			return domain.QuoteResult{}, ErrSuperseded
		}
		return domain.QuoteResult{}, fmt.Errorf("%w: %w", ErrQuoteFetchFailed, err)
	}

	if e.current(req.WalletAddress) != gen {
		slog.Debug("discarding stale quote result", "wallet", req.WalletAddress, "generation", gen)
		return domain.QuoteResult{}, ErrSuperseded
	}

	rate := fromUSD.Div(toUSD)
	return domain.QuoteResult{
		ToAmount:        domain.FormatAmount(amount.Mul(rate)),
		ExchangeRate:    rate,
		PriceImpact:     domain.SafeParse(route.PriceImpact),
		NetworkFeeUSD:   domain.SafeParse(route.FeeAmountUSD),
		SlippagePercent: req.SlippagePercent,
	}, nil
}

// Invalidate bumps the wallet's generation so any of its in-flight requests
// are discarded. Used when the trade intent becomes invalid or the session is
// torn down.
func (e *Engine) Invalidate(walletAddress string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen[walletAddress]++
}

func (e *Engine) next(walletAddress string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen[walletAddress]++
	return e.gen[walletAddress]
}

func (e *Engine) current(walletAddress string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen[walletAddress]
}

// Silent reports whether an error from RequestQuote should clear the preview
// without surfacing a notification.
func Silent(err error) bool {
	return errors.Is(err, ErrQuoteUnavailable) || errors.Is(err, ErrSuperseded)
}
