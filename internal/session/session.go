package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dumbdevss/vault-app/internal/domain"
	"github.com/dumbdevss/vault-app/internal/preview"
	"github.com/dumbdevss/vault-app/internal/quote"
	"github.com/dumbdevss/vault-app/internal/scheduler"
)

// QuoteRequester is the quote engine surface a session drives.
type QuoteRequester interface {
	RequestQuote(ctx context.Context, req domain.QuoteRequest) (domain.QuoteResult, error)
	Invalidate(walletAddress string)
}

// Session is one interactive swap form: it owns the trade intent, keeps the
// displayed preview reconciled with it through the scheduler, and tears both
// down on Dispose. All methods are safe for concurrent use.
type Session struct {
	ctx    context.Context
	engine QuoteRequester
	sched  *scheduler.Scheduler
	wallet string

	mu      sync.Mutex
	intent  domain.TradeIntent
	preview preview.ViewModel
}

// New creates a session for the given wallet. ctx bounds every quote fetch the
// session issues; cancelling it has the same effect as Dispose.
func New(ctx context.Context, engine QuoteRequester, walletAddress string, debounce, interval time.Duration) *Session {
	s := &Session{
		ctx:     ctx,
		engine:  engine,
		wallet:  walletAddress,
		preview: preview.Unavailable,
		intent:  domain.TradeIntent{SlippagePercent: decimal.NewFromInt(1)},
	}
	s.sched = scheduler.New(s.refresh, debounce, interval)
	return s
}

// SetAmount records a new source amount and reschedules the quote.
func (s *Session) SetAmount(amount string) {
	s.edit(func(i *domain.TradeIntent) { i.FromAmount = amount })
}

// SelectFromToken records a new source token and reschedules the quote.
func (s *Session) SelectFromToken(t *domain.Token) {
	s.edit(func(i *domain.TradeIntent) { i.FromToken = t })
}

// SelectToToken records a new destination token and reschedules the quote.
func (s *Session) SelectToToken(t *domain.Token) {
	s.edit(func(i *domain.TradeIntent) { i.ToToken = t })
}

// SetSlippage records a new slippage tolerance and reschedules the quote.
func (s *Session) SetSlippage(percent decimal.Decimal) {
	s.edit(func(i *domain.TradeIntent) { i.SlippagePercent = percent })
}

// SwapTokens exchanges the from/to selection. The amount clears, so the
// preview drops until the user enters a new one.
func (s *Session) SwapTokens() {
	s.edit(func(i *domain.TradeIntent) { i.SwapTokens() })
}

// ClearAmounts resets the entered amount after a confirmed swap.
func (s *Session) ClearAmounts() {
	s.edit(func(i *domain.TradeIntent) { i.ClearAmounts() })
}

// Intent returns a snapshot of the current trade intent.
func (s *Session) Intent() domain.TradeIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intent
}

// Preview returns the current preview and the time until the next automatic
// refresh (zero when no countdown is running).
func (s *Session) Preview() (preview.ViewModel, time.Duration) {
	s.mu.Lock()
	vm := s.preview
	s.mu.Unlock()
	return vm, s.sched.Remaining()
}

// Dispose cancels all pending quote work. In-flight fetches are superseded so
// their results can never surface.
func (s *Session) Dispose() {
	s.sched.Dispose()
	s.engine.Invalidate(s.wallet)
	s.mu.Lock()
	s.preview = preview.Unavailable
	s.mu.Unlock()
}

// edit applies a mutation to the intent and reconciles the scheduler with the
// intent's new validity. Any edit drops the displayed preview immediately;
// it reappears once a fresh quote lands.
func (s *Session) edit(mutate func(*domain.TradeIntent)) {
	s.mu.Lock()
	mutate(&s.intent)
	valid := s.intent.Valid(s.wallet)
	s.preview = preview.Unavailable
	s.mu.Unlock()

	if !valid {
		s.engine.Invalidate(s.wallet)
	}
	s.sched.Update(valid)
}

// refresh is the scheduler callback: one quote attempt against the current
// intent snapshot. Silent errors and fetch failures both clear the preview;
// a failed fetch leaves the countdown running so the next tick retries.
func (s *Session) refresh() {
	s.mu.Lock()
	intent := s.intent
	s.mu.Unlock()

	if intent.FromToken == nil || intent.ToToken == nil {
		return
	}

	result, err := s.engine.RequestQuote(s.ctx, domain.QuoteRequest{
		FromTokenAddress: intent.FromToken.Address,
		ToTokenAddress:   intent.ToToken.Address,
		FromAmount:       intent.FromAmount,
		SlippagePercent:  intent.SlippagePercent,
		WalletAddress:    s.wallet,
	})

	vm := preview.Unavailable
	switch {
	case err == nil:
		vm = preview.Build(result)
	case quote.Silent(err):
		// Preconditions failed or a newer request took over. Nothing to show.
	default:
		slog.Warn("quote refresh failed", "wallet", s.wallet, "error", err)
	}

	s.mu.Lock()
	// An edit since the snapshot means this result belongs to an older
	// intent; the engine's generation check already returned Superseded for
	// the racing fetch, so only apply when the intent is unchanged.
	if s.intent == intent {
		s.preview = vm
	}
	s.mu.Unlock()
}
