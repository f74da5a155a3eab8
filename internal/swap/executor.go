package swap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/dumbdevss/vault-app/internal/aggregator"
	"github.com/dumbdevss/vault-app/internal/catalog"
	"github.com/dumbdevss/vault-app/internal/domain"
	"github.com/dumbdevss/vault-app/internal/history"
	"github.com/dumbdevss/vault-app/internal/wallet"
)

// State is a phase of the swap execution lifecycle.
type State string

const (
	StateIdle              State = "idle"
	StateValidating        State = "validating"
	StateRequestingPayload State = "requesting_payload"
	StateAwaitingSignature State = "awaiting_signature"
	StateSubmitted         State = "submitted"
	StateConfirmed         State = "confirmed"
	StateFailed            State = "failed"
)

var (
	// ErrInvalidInput indicates a malformed intent: missing or identical
	// tokens, non-positive amount, or a token unknown to the catalog.
	ErrInvalidInput = errors.New("invalid swap input")

	// ErrInsufficientBalance indicates the entered amount exceeds the
	// current balance of the source token.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUserRejected indicates the user declined the transaction in the
	// wallet. Expected, not fatal.
	ErrUserRejected = errors.New("user rejected transaction")

	// ErrPayloadFetchFailed indicates the aggregator could not build an
	// executable transaction payload.
	ErrPayloadFetchFailed = errors.New("swap payload fetch failed")

	// ErrSubmissionFailed indicates submission or confirmation failed
	// on-chain.
	ErrSubmissionFailed = errors.New("swap submission failed")
)

// PayloadBuilder requests an executable transaction payload from the
// aggregator.
type PayloadBuilder interface {
	BuildSwap(ctx context.Context, params aggregator.SwapParams) (aggregator.SwapPayload, error)
}

// BalanceRefresher invalidates and refetches balances after a confirmed swap.
type BalanceRefresher interface {
	RefreshAfterSwap(ctx context.Context, ownerAddress string) error
}

// Receipt is the outcome of a completed execution attempt.
type Receipt struct {
	State  State  `json:"state"`
	TxHash string `json:"txHash,omitempty"`
}

// Executor drives a trade intent through validation, payload construction,
// signing and confirmation. Every failure returns control to an interactive
// state and leaves the intent untouched for correction; only a confirmed swap
// clears the entered amount.
type Executor struct {
	payloads PayloadBuilder
	store    *catalog.Store
	refresh  BalanceRefresher
	wallet   wallet.Capability
	records  history.Repository // optional
}

// NewExecutor creates a swap executor. records may be nil, in which case
// history persistence is skipped.
func NewExecutor(payloads PayloadBuilder, store *catalog.Store, refresh BalanceRefresher, w wallet.Capability, records history.Repository) *Executor {
	return &Executor{
		payloads: payloads,
		store:    store,
		refresh:  refresh,
		wallet:   w,
		records:  records,
	}
}

// Execute runs one swap attempt for the given intent. The returned error is
// one of the taxonomy sentinels (possibly wrapped); the receipt carries the
// terminal state and transaction hash when one exists.
func (x *Executor) Execute(ctx context.Context, intent *domain.TradeIntent) (Receipt, error) {
	account, err := x.wallet.GetAccount(ctx)
	if err != nil || account.Address == "" {
		return x.fail(ctx, intent, "", "", fmt.Errorf("%w: wallet not connected", ErrInvalidInput))
	}

	slog.Debug("swap execution started", "state", StateValidating, "wallet", account.Address)
	fromToken, toToken, amount, err := x.validate(intent)
	if err != nil {
		return x.fail(ctx, intent, "", "", err)
	}

	slog.Debug("swap execution", "state", StateRequestingPayload)
	payload, err := x.payloads.BuildSwap(ctx, aggregator.SwapParams{
		FromTokenAddress: fromToken.Address,
		ToTokenAddress:   toToken.Address,
		FromTokenAmount:  intent.FromAmount,
		ToWalletAddress:  account.Address,
		SlippagePercent:  intent.SlippagePercent.String(),
	})
	if err != nil {
		return x.fail(ctx, intent, "", "", fmt.Errorf("%w: %w", ErrPayloadFetchFailed, err))
	}
	quotedOut := payload.Quote.ToTokenAmount

	slog.Debug("swap execution", "state", StateAwaitingSignature)
	submitted, err := x.wallet.SignAndSubmit(ctx, payload.TxData)
	if err != nil {
		if errors.Is(err, wallet.ErrRejected) {
			return x.fail(ctx, intent, "", quotedOut, fmt.Errorf("%w: %w", ErrUserRejected, err))
		}
		return x.fail(ctx, intent, "", quotedOut, fmt.Errorf("%w: %w", ErrSubmissionFailed, err))
	}

	slog.Debug("swap execution", "state", StateSubmitted, "hash", submitted.Hash)
	confirmation, err := x.wallet.WaitForTransaction(ctx, submitted.Hash)
	if err != nil {
		return x.fail(ctx, intent, submitted.Hash, quotedOut, fmt.Errorf("%w: %w", ErrSubmissionFailed, err))
	}
	if !confirmation.Success {
		return x.fail(ctx, intent, submitted.Hash, quotedOut, fmt.Errorf("%w: transaction reverted on-chain", ErrSubmissionFailed))
	}

	// Invalidate before any subsequent read so no quote cycle can observe
	// pre-swap balances.
	if err := x.refresh.RefreshAfterSwap(ctx, account.Address); err != nil {
		slog.Warn("balance refresh after swap failed", "error", err)
	}

	x.record(ctx, intent, account.Address, submitted.Hash, quotedOut, string(StateConfirmed))
	intent.ClearAmounts()

	slog.Info("swap confirmed",
		"from", fromToken.Symbol, "to", toToken.Symbol,
		"amount", amount.String(), "hash", submitted.Hash)
	return Receipt{State: StateConfirmed, TxHash: submitted.Hash}, nil
}

// validate checks the intent against the catalog and current balances.
// The boundary case amount == balance is allowed.
func (x *Executor) validate(intent *domain.TradeIntent) (domain.Token, domain.Token, decimal.Decimal, error) {
	var zero domain.Token

	if intent.FromToken == nil || intent.ToToken == nil {
		return zero, zero, decimal.Zero, fmt.Errorf("%w: token not selected", ErrInvalidInput)
	}
	if intent.FromToken.Address == intent.ToToken.Address {
		return zero, zero, decimal.Zero, fmt.Errorf("%w: identical tokens", ErrInvalidInput)
	}

	amount := domain.SafeParse(intent.FromAmount)
	if !amount.IsPositive() {
		return zero, zero, decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	fromToken, ok := x.store.Token(intent.FromToken.Address)
	if !ok {
		return zero, zero, decimal.Zero, fmt.Errorf("%w: unknown source token %s", ErrInvalidInput, intent.FromToken.Address)
	}
	toToken, ok := x.store.Token(intent.ToToken.Address)
	if !ok {
		return zero, zero, decimal.Zero, fmt.Errorf("%w: unknown destination token %s", ErrInvalidInput, intent.ToToken.Address)
	}

	balance := x.store.Balance(fromToken.Address)
	if amount.GreaterThan(balance) {
		return zero, zero, decimal.Zero, fmt.Errorf("%w: %s %s exceeds balance %s",
			ErrInsufficientBalance, amount, fromToken.Symbol, balance)
	}

	return fromToken, toToken, amount, nil
}

// fail records attempts that reached the chain; pre-submission failures are
// not persisted.
func (x *Executor) fail(ctx context.Context, intent *domain.TradeIntent, hash, toAmount string, err error) (Receipt, error) {
	if hash != "" {
		walletAddr := ""
		if account, accErr := x.wallet.GetAccount(ctx); accErr == nil {
			walletAddr = account.Address
		}
		x.record(ctx, intent, walletAddr, hash, toAmount, string(StateFailed))
	}
	return Receipt{State: StateFailed, TxHash: hash}, err
}

func (x *Executor) record(ctx context.Context, intent *domain.TradeIntent, walletAddress, hash, toAmount, status string) {
	if x.records == nil {
		return
	}

	rec := history.Record{
		WalletAddress: walletAddress,
		FromAmount:    intent.FromAmount,
		ToAmount:      toAmount,
		TxHash:        hash,
		Status:        status,
	}
	if intent.FromToken != nil {
		rec.FromSymbol = intent.FromToken.Symbol
	}
	if intent.ToToken != nil {
		rec.ToSymbol = intent.ToToken.Symbol
	}
	if err := x.records.Save(ctx, rec); err != nil {
		slog.Warn("failed to persist swap record", "error", err)
	}
}
