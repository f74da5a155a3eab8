package swap

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dumbdevss/vault-app/internal/aggregator"
	"github.com/dumbdevss/vault-app/internal/catalog"
	"github.com/dumbdevss/vault-app/internal/domain"
	"github.com/dumbdevss/vault-app/internal/history"
	"github.com/dumbdevss/vault-app/internal/wallet"
)

type mockPayloadBuilder struct {
	err   error
	calls int
}

func (m *mockPayloadBuilder) BuildSwap(_ context.Context, _ aggregator.SwapParams) (aggregator.SwapPayload, error) {
	m.calls++
	if m.err != nil {
		return aggregator.SwapPayload{}, m.err
	}
	return aggregator.SwapPayload{
		Quote:  aggregator.RouteQuote{ToTokenAmount: "25"},
		TxData: json.RawMessage(`{"function":"0x1::router::swap"}`),
	}, nil
}

type mockWallet struct {
	account    wallet.Account
	submitErr  error
	confirmErr error
	reverted   bool
	submits    int
}

func (m *mockWallet) GetAccount(_ context.Context) (wallet.Account, error) {
	return m.account, nil
}

func (m *mockWallet) SignAndSubmit(_ context.Context, _ json.RawMessage) (wallet.SubmitResult, error) {
	m.submits++
	if m.submitErr != nil {
		return wallet.SubmitResult{}, m.submitErr
	}
	return wallet.SubmitResult{Hash: "0xhash"}, nil
}

func (m *mockWallet) WaitForTransaction(_ context.Context, hash string) (wallet.Confirmation, error) {
	if m.confirmErr != nil {
		return wallet.Confirmation{}, m.confirmErr
	}
	return wallet.Confirmation{Hash: hash, Success: !m.reverted}, nil
}

type mockRefresher struct {
	calls int
}

func (m *mockRefresher) RefreshAfterSwap(_ context.Context, _ string) error {
	m.calls++
	return nil
}

type mockHistory struct {
	records []history.Record
}

func (m *mockHistory) Save(_ context.Context, r history.Record) error {
	m.records = append(m.records, r)
	return nil
}

func (m *mockHistory) ListByWallet(_ context.Context, _ string, _ int) ([]history.Record, error) {
	return m.records, nil
}

func executorFixture() (*Executor, *mockPayloadBuilder, *mockWallet, *mockRefresher, *mockHistory) {
	store := catalog.NewStore()
	store.ReplaceTokens([]domain.Token{
		{Address: "0x1::usdc", Symbol: "USDC", Decimals: 6, USDPrice: "1.0"},
		{Address: "0xa", Symbol: "APT", Decimals: 8, USDPrice: "2.0"},
	})
	store.ReplaceBalances(domain.BalanceMap{
		"0x1::usdc": decimal.RequireFromString("100"),
	})

	payloads := &mockPayloadBuilder{}
	w := &mockWallet{account: wallet.Account{Address: "0xabc", Network: "mainnet"}}
	refresher := &mockRefresher{}
	hist := &mockHistory{}
	return NewExecutor(payloads, store, refresher, w, hist), payloads, w, refresher, hist
}

func intentFixture(amount string) *domain.TradeIntent {
	return &domain.TradeIntent{
		FromToken:       &domain.Token{Address: "0x1::usdc", Symbol: "USDC"},
		ToToken:         &domain.Token{Address: "0xa", Symbol: "APT"},
		FromAmount:      amount,
		SlippagePercent: decimal.RequireFromString("1"),
	}
}

func TestExecuteConfirmedSwap(t *testing.T) {
	x, payloads, w, refresher, hist := executorFixture()
	intent := intentFixture("50")

	receipt, err := x.Execute(context.Background(), intent)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if receipt.State != StateConfirmed {
		t.Errorf("state = %q, want confirmed", receipt.State)
	}
	if receipt.TxHash != "0xhash" {
		t.Errorf("hash = %q", receipt.TxHash)
	}
	if payloads.calls != 1 || w.submits != 1 {
		t.Errorf("payload calls = %d, submits = %d, want 1/1", payloads.calls, w.submits)
	}
	if refresher.calls != 1 {
		t.Error("balances were not refreshed after confirmation")
	}
	if intent.FromAmount != "" {
		t.Errorf("intent amount = %q, want cleared", intent.FromAmount)
	}
	if len(hist.records) != 1 || hist.records[0].Status != "confirmed" {
		t.Fatalf("history = %+v, want one confirmed record", hist.records)
	}
	if hist.records[0].ToAmount != "25" {
		t.Errorf("recorded toAmount = %q, want the quoted 25", hist.records[0].ToAmount)
	}
}

func TestExecuteBalanceGate(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr error
	}{
		{"within balance", "50", nil},
		{"exactly at balance", "100", nil},
		{"just over balance", "100.000001", ErrInsufficientBalance},
		{"far over balance", "1000", ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, _, _, refresher, _ := executorFixture()
			intent := intentFixture(tt.amount)

			receipt, err := x.Execute(context.Background(), intent)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Execute() error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if receipt.State != StateFailed {
				t.Errorf("state = %q, want failed", receipt.State)
			}
			if intent.FromAmount != tt.amount {
				t.Error("failed attempt mutated the intent")
			}
			if refresher.calls != 0 {
				t.Error("balances refreshed despite failure")
			}
		})
	}
}

func TestExecuteInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.TradeIntent)
	}{
		{"missing from token", func(i *domain.TradeIntent) { i.FromToken = nil }},
		{"identical tokens", func(i *domain.TradeIntent) { i.ToToken = i.FromToken }},
		{"zero amount", func(i *domain.TradeIntent) { i.FromAmount = "0" }},
		{"unknown token", func(i *domain.TradeIntent) { i.FromToken = &domain.Token{Address: "0xmissing"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, payloads, _, _, _ := executorFixture()
			intent := intentFixture("50")
			tt.mutate(intent)

			_, err := x.Execute(context.Background(), intent)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
			if payloads.calls != 0 {
				t.Error("payload requested despite invalid input")
			}
		})
	}
}

func TestExecuteDisconnectedWallet(t *testing.T) {
	x, _, w, _, _ := executorFixture()
	w.account = wallet.Account{}

	_, err := x.Execute(context.Background(), intentFixture("50"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestExecutePayloadFetchFailure(t *testing.T) {
	x, payloads, w, _, _ := executorFixture()
	payloads.err = errors.New("HTTP 502")

	_, err := x.Execute(context.Background(), intentFixture("50"))
	if !errors.Is(err, ErrPayloadFetchFailed) {
		t.Errorf("error = %v, want ErrPayloadFetchFailed", err)
	}
	if w.submits != 0 {
		t.Error("submitted despite payload failure")
	}
}

func TestExecuteUserRejection(t *testing.T) {
	x, _, w, refresher, _ := executorFixture()
	w.submitErr = wallet.ErrRejected
	intent := intentFixture("50")

	_, err := x.Execute(context.Background(), intent)
	if !errors.Is(err, ErrUserRejected) {
		t.Errorf("error = %v, want ErrUserRejected", err)
	}
	if intent.FromAmount != "50" {
		t.Error("rejection mutated the intent")
	}
	if refresher.calls != 0 {
		t.Error("balances refreshed despite rejection")
	}
}

func TestExecuteSubmissionFailures(t *testing.T) {
	t.Run("submit error", func(t *testing.T) {
		x, _, w, _, _ := executorFixture()
		w.submitErr = errors.New("mempool full")

		_, err := x.Execute(context.Background(), intentFixture("50"))
		if !errors.Is(err, ErrSubmissionFailed) {
			t.Errorf("error = %v, want ErrSubmissionFailed", err)
		}
	})

	t.Run("confirmation error", func(t *testing.T) {
		x, _, w, _, hist := executorFixture()
		w.confirmErr = errors.New("timed out waiting for finality")

		receipt, err := x.Execute(context.Background(), intentFixture("50"))
		if !errors.Is(err, ErrSubmissionFailed) {
			t.Errorf("error = %v, want ErrSubmissionFailed", err)
		}
		if receipt.TxHash != "0xhash" {
			t.Errorf("hash = %q, want 0xhash carried on the receipt", receipt.TxHash)
		}
		if len(hist.records) != 1 || hist.records[0].Status != "failed" {
			t.Fatalf("history = %+v, want one failed record", hist.records)
		}
		if hist.records[0].ToAmount != "25" {
			t.Errorf("recorded toAmount = %q, want the quoted 25", hist.records[0].ToAmount)
		}
	})

	t.Run("reverted on-chain", func(t *testing.T) {
		x, _, w, refresher, _ := executorFixture()
		w.reverted = true

		_, err := x.Execute(context.Background(), intentFixture("50"))
		if !errors.Is(err, ErrSubmissionFailed) {
			t.Errorf("error = %v, want ErrSubmissionFailed", err)
		}
		if refresher.calls != 0 {
			t.Error("balances refreshed for a reverted transaction")
		}
	})
}

func TestExecuteNilHistory(t *testing.T) {
	store := catalog.NewStore()
	store.ReplaceTokens([]domain.Token{
		{Address: "0x1::usdc", Symbol: "USDC"},
		{Address: "0xa", Symbol: "APT"},
	})
	store.ReplaceBalances(domain.BalanceMap{"0x1::usdc": decimal.RequireFromString("100")})

	w := &mockWallet{account: wallet.Account{Address: "0xabc"}}
	x := NewExecutor(&mockPayloadBuilder{}, store, &mockRefresher{}, w, nil)

	if _, err := x.Execute(context.Background(), intentFixture("50")); err != nil {
		t.Fatalf("Execute() with nil history error: %v", err)
	}
}
