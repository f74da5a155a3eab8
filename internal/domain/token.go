package domain

import "github.com/shopspring/decimal"

// Token describes a tradable asset from the aggregator token list. Tokens are
// immutable once fetched; the catalog is replaced wholesale on refresh.
type Token struct {
	Address  string `json:"tokenAddress"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	LogoURL  string `json:"logoUrl"`
	USDPrice string `json:"usdPrice,omitempty"`
}

// BalanceMap maps token addresses to balances in human units (already divided
// by 10^decimals). A missing key means balance zero, not an error.
type BalanceMap map[string]decimal.Decimal

// Get returns the balance for a token address, or zero when absent.
func (m BalanceMap) Get(address string) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	if b, ok := m[address]; ok {
		return b
	}
	return decimal.Zero
}

// QuoteRequest is one quote attempt against the aggregator. Constructed fresh
// on every attempt, never mutated.
type QuoteRequest struct {
	FromTokenAddress string
	ToTokenAddress   string
	FromAmount       string
	SlippagePercent  decimal.Decimal
	WalletAddress    string
}

// QuoteResult is a reconciled quote, valid only for the current display cycle.
type QuoteResult struct {
	ToAmount        string          `json:"toAmount"`
	ExchangeRate    decimal.Decimal `json:"exchangeRate"`
	PriceImpact     decimal.Decimal `json:"priceImpactPercent"`
	NetworkFeeUSD   decimal.Decimal `json:"networkFeeUsd"`
	SlippagePercent decimal.Decimal `json:"slippagePercent"`
}

// TradeIntent is the user-facing swap input. The quote engine and executor
// read snapshots of it; mutation flows only from user input or SwapTokens.
type TradeIntent struct {
	FromToken       *Token          `json:"fromToken"`
	ToToken         *Token          `json:"toToken"`
	FromAmount      string          `json:"fromAmount"`
	SlippagePercent decimal.Decimal `json:"slippagePercent"`
}

// Valid reports whether the intent can produce a quote: a positive amount,
// two distinct tokens and a connected wallet.
func (t TradeIntent) Valid(walletAddress string) bool {
	if t.FromToken == nil || t.ToToken == nil || walletAddress == "" {
		return false
	}
	if t.FromToken.Address == t.ToToken.Address {
		return false
	}
	amount, err := decimal.NewFromString(t.FromAmount)
	if err != nil {
		return false
	}
	return amount.IsPositive()
}

// SwapTokens atomically exchanges the from/to tokens and clears the amount.
func (t *TradeIntent) SwapTokens() {
	t.FromToken, t.ToToken = t.ToToken, t.FromToken
	t.FromAmount = ""
}

// ClearAmounts resets the entered amount, keeping the token selection.
func (t *TradeIntent) ClearAmounts() {
	t.FromAmount = ""
}
