package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dumbdevss/vault-app/internal/aggregator"
	"github.com/dumbdevss/vault-app/internal/catalog"
	"github.com/dumbdevss/vault-app/internal/history"
	"github.com/dumbdevss/vault-app/internal/indexer"
	"github.com/dumbdevss/vault-app/internal/portfolio"
	"github.com/dumbdevss/vault-app/internal/quote"
	"github.com/dumbdevss/vault-app/internal/swap"
	"github.com/dumbdevss/vault-app/internal/wallet"
)

type mockLister struct {
	entries []aggregator.TokenEntry
	err     error
}

func (m *mockLister) TokenList(_ context.Context) ([]aggregator.TokenEntry, error) {
	return m.entries, m.err
}

type mockFetcher struct {
	rows []indexer.BalanceRow
	err  error
}

func (m *mockFetcher) FetchBalances(_ context.Context, _ string) ([]indexer.BalanceRow, error) {
	return m.rows, m.err
}

type mockQuoter struct {
	route aggregator.RouteQuote
	err   error
}

func (m *mockQuoter) Quote(_ context.Context, _ aggregator.SwapParams) (aggregator.RouteQuote, error) {
	return m.route, m.err
}

func (m *mockQuoter) BuildSwap(_ context.Context, _ aggregator.SwapParams) (aggregator.SwapPayload, error) {
	return aggregator.SwapPayload{TxData: json.RawMessage(`{}`)}, nil
}

type mockWallet struct {
	address string
}

func (m *mockWallet) GetAccount(_ context.Context) (wallet.Account, error) {
	return wallet.Account{Address: m.address, Network: "mainnet"}, nil
}

func (m *mockWallet) SignAndSubmit(_ context.Context, _ json.RawMessage) (wallet.SubmitResult, error) {
	return wallet.SubmitResult{Hash: "0xhash"}, nil
}

func (m *mockWallet) WaitForTransaction(_ context.Context, hash string) (wallet.Confirmation, error) {
	return wallet.Confirmation{Hash: hash, Success: true}, nil
}

type mockHistory struct {
	records []history.Record
	err     error
}

func (m *mockHistory) Save(_ context.Context, r history.Record) error {
	m.records = append(m.records, r)
	return nil
}

func (m *mockHistory) ListByWallet(_ context.Context, _ string, _ int) ([]history.Record, error) {
	return m.records, m.err
}

type fixture struct {
	server  *http.Server
	lister  *mockLister
	fetcher *mockFetcher
	quoter  *mockQuoter
	history *mockHistory
}

func newFixture() *fixture {
	lister := &mockLister{entries: []aggregator.TokenEntry{
		{TokenAddress: "0x1::usdc", Symbol: "USDC", Name: "USD Coin", Decimals: 6, USDPrice: "1.0"},
		{FAAddress: "0xa", Symbol: "APT", Name: "Aptos Coin", Decimals: 8, USDPrice: "2.0"},
	}}
	fetcher := &mockFetcher{rows: []indexer.BalanceRow{
		balanceRow("0x1::usdc", "100000000", 6), // 100 USDC
	}}
	quoter := &mockQuoter{route: aggregator.RouteQuote{
		ToTokenAmount: "25",
		PriceImpact:   "0.3",
		FeeAmountUSD:  "0.05",
	}}
	hist := &mockHistory{}

	store := catalog.NewStore()
	cat := catalog.NewService(lister, fetcher, store)
	engine := quote.NewEngine(quoter, store, time.Second)
	executor := swap.NewExecutor(quoter, store, cat, &mockWallet{address: "0xabc"}, hist)
	pf := portfolio.NewService(cat, store)

	return &fixture{
		server:  NewServer("0", cat, engine, executor, pf, hist, "", 10*time.Millisecond, time.Hour),
		lister:  lister,
		fetcher: fetcher,
		quoter:  quoter,
		history: hist,
	}
}

func balanceRow(assetType, amount string, decimals int) indexer.BalanceRow {
	var row indexer.BalanceRow
	row.AssetType = assetType
	row.Amount = json.Number(amount)
	row.Metadata.Decimals = decimals
	return row
}

func (f *fixture) do(method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(w, req)
	return w
}

func TestListTokens(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/v1/tokens", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body)
	}

	var tokens []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(tokens) != 2 {
		t.Errorf("tokens = %d, want 2", len(tokens))
	}
}

func TestListTokensUpstreamDown(t *testing.T) {
	f := newFixture()
	f.lister.err = errors.New("HTTP 503")

	w := f.do(http.MethodGet, "/api/v1/tokens", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestGetBalances(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/v1/balances/0xabc", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body)
	}

	var balances map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &balances); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if balances["0x1::usdc"] != "100" {
		t.Errorf("balance = %q, want 100", balances["0x1::usdc"])
	}
}

func TestGetQuote(t *testing.T) {
	f := newFixture()
	// Prime the catalog so reference prices exist.
	if w := f.do(http.MethodGet, "/api/v1/tokens", ""); w.Code != http.StatusOK {
		t.Fatalf("priming catalog: status %d", w.Code)
	}

	w := f.do(http.MethodGet, "/api/v1/quote?from=0x1::usdc&to=0xa&amount=50&wallet=0xabc&slippage=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body)
	}

	var vm map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &vm); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if vm["available"] != true {
		t.Fatalf("preview unavailable: %s", w.Body)
	}
	if vm["toAmount"] != "25" {
		t.Errorf("toAmount = %v, want 25", vm["toAmount"])
	}
}

func TestGetQuoteMissingAmountIsSilent(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/v1/quote?from=0x1::usdc&to=0xa&wallet=0xabc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var vm map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &vm); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if vm["available"] != false {
		t.Errorf("preview = %s, want unavailable", w.Body)
	}
}

func TestGetQuoteUpstreamFailure(t *testing.T) {
	f := newFixture()
	if w := f.do(http.MethodGet, "/api/v1/tokens", ""); w.Code != http.StatusOK {
		t.Fatalf("priming catalog: status %d", w.Code)
	}
	f.quoter.err = errors.New("HTTP 500")

	w := f.do(http.MethodGet, "/api/v1/quote?from=0x1::usdc&to=0xa&amount=50&wallet=0xabc", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestExecuteSwap(t *testing.T) {
	f := newFixture()
	if w := f.do(http.MethodGet, "/api/v1/tokens", ""); w.Code != http.StatusOK {
		t.Fatalf("priming catalog: status %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/v1/balances/0xabc", ""); w.Code != http.StatusOK {
		t.Fatalf("priming balances: status %d", w.Code)
	}

	body := `{"fromTokenAddress":"0x1::usdc","toTokenAddress":"0xa","fromAmount":"50","slippagePercent":"1"}`
	w := f.do(http.MethodPost, "/api/v1/swap", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body)
	}

	var receipt map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if receipt["state"] != "confirmed" {
		t.Errorf("state = %v, want confirmed", receipt["state"])
	}
	if len(f.history.records) != 1 {
		t.Errorf("history records = %d, want 1", len(f.history.records))
	}
}

func TestExecuteSwapInsufficientBalance(t *testing.T) {
	f := newFixture()
	if w := f.do(http.MethodGet, "/api/v1/tokens", ""); w.Code != http.StatusOK {
		t.Fatalf("priming catalog: status %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/v1/balances/0xabc", ""); w.Code != http.StatusOK {
		t.Fatalf("priming balances: status %d", w.Code)
	}

	body := `{"fromTokenAddress":"0x1::usdc","toTokenAddress":"0xa","fromAmount":"100.01","slippagePercent":"1"}`
	w := f.do(http.MethodPost, "/api/v1/swap", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body %s", w.Code, w.Body)
	}
}

func TestExecuteSwapBadBody(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/api/v1/swap", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSessionQuoteLifecycle(t *testing.T) {
	f := newFixture()
	if w := f.do(http.MethodGet, "/api/v1/tokens", ""); w.Code != http.StatusOK {
		t.Fatalf("priming catalog: status %d", w.Code)
	}

	body := `{"fromTokenAddress":"0x1::usdc","toTokenAddress":"0xa","fromAmount":"50","slippagePercent":"1"}`
	if w := f.do(http.MethodPut, "/api/v1/sessions/0xabc/intent", body); w.Code != http.StatusOK {
		t.Fatalf("intent update: status %d, body %s", w.Code, w.Body)
	}

	// The session debounces the edit, then quotes; poll until the preview lands.
	var resp struct {
		Preview     map[string]any `json:"preview"`
		RefreshInMs int64          `json:"refreshInMs"`
	}
	deadline := time.Now().Add(time.Second)
	for {
		w := f.do(http.MethodGet, "/api/v1/sessions/0xabc/preview", "")
		if w.Code != http.StatusOK {
			t.Fatalf("preview: status %d", w.Code)
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding preview: %v", err)
		}
		if resp.Preview["available"] == true {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("preview never became available: %s", w.Body)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if resp.Preview["toAmount"] != "25" {
		t.Errorf("toAmount = %v, want 25", resp.Preview["toAmount"])
	}
	if resp.RefreshInMs <= 0 {
		t.Error("refresh countdown not running after quote landed")
	}

	if w := f.do(http.MethodDelete, "/api/v1/sessions/0xabc", ""); w.Code != http.StatusNoContent {
		t.Fatalf("close session: status %d", w.Code)
	}

	w := f.do(http.MethodGet, "/api/v1/sessions/0xabc/preview", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	if resp.Preview["available"] == true {
		t.Error("preview survived session close")
	}
	if resp.RefreshInMs != 0 {
		t.Error("countdown running in a fresh session")
	}
}

func TestSessionIntentUnknownToken(t *testing.T) {
	f := newFixture()
	if w := f.do(http.MethodGet, "/api/v1/tokens", ""); w.Code != http.StatusOK {
		t.Fatalf("priming catalog: status %d", w.Code)
	}

	body := `{"fromTokenAddress":"0xmissing"}`
	w := f.do(http.MethodPut, "/api/v1/sessions/0xabc/intent", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetPortfolio(t *testing.T) {
	f := newFixture()
	if w := f.do(http.MethodGet, "/api/v1/tokens", ""); w.Code != http.StatusOK {
		t.Fatalf("priming catalog: status %d", w.Code)
	}

	w := f.do(http.MethodGet, "/api/v1/portfolio/0xabc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body)
	}

	var p map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if p["totalUsd"] != "100" {
		t.Errorf("total = %v, want 100", p["totalUsd"])
	}
}

func TestExportPortfolioCSV(t *testing.T) {
	f := newFixture()
	if w := f.do(http.MethodGet, "/api/v1/tokens", ""); w.Code != http.StatusOK {
		t.Fatalf("priming catalog: status %d", w.Code)
	}

	w := f.do(http.MethodGet, "/api/v1/portfolio/0xabc/export?format=csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q, want text/csv", ct)
	}
	if !strings.Contains(w.Body.String(), "USDC") {
		t.Errorf("csv body missing USDC row:\n%s", w.Body)
	}
}

func TestExportPortfolioUnknownFormat(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/api/v1/portfolio/0xabc/export?format=pdf", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListSwaps(t *testing.T) {
	f := newFixture()
	f.history.records = []history.Record{
		{WalletAddress: "0xabc", FromSymbol: "USDC", ToSymbol: "APT", Status: "confirmed"},
	}

	w := f.do(http.MethodGet, "/api/v1/swaps/0xabc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var records []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}
