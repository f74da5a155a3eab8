package aggregator

import "encoding/json"

// TokenEntry is one token from the aggregator's /tokenlist endpoint.
type TokenEntry struct {
	ChainID      int      `json:"chainId"`
	TokenAddress string   `json:"tokenAddress"`
	FAAddress    string   `json:"faAddress"`
	Name         string   `json:"name"`
	Symbol       string   `json:"symbol"`
	Decimals     int      `json:"decimals"`
	LogoURL      string   `json:"logoUrl"`
	USDPrice     string   `json:"usdPrice"`
	Tags         []string `json:"panoraTags"`
}

// Address returns the canonical address for a token entry. Fungible asset
// addresses take precedence over legacy coin-type addresses.
func (t TokenEntry) Address() string {
	if t.FAAddress != "" {
		return t.FAAddress
	}
	return t.TokenAddress
}

// SwapParams are the query parameters shared by the quote and swap endpoints.
type SwapParams struct {
	FromTokenAddress string
	ToTokenAddress   string
	FromTokenAmount  string
	ToWalletAddress  string
	SlippagePercent  string
}

// RouteQuote is one quoted route from the aggregator.
type RouteQuote struct {
	ToTokenAmount      string `json:"toTokenAmount"`
	PriceImpact        string `json:"priceImpact"`
	SlippagePercentage string `json:"slippagePercentage"`
	FeeAmountUSD       string `json:"feeAmountUSD"`
}

type quoteResponse struct {
	FromTokenAmount string       `json:"fromTokenAmount"`
	Quotes          []RouteQuote `json:"quotes"`
}

// SwapPayload is an executable transaction payload built by the aggregator.
// Its contents are chain-specific and passed through to the wallet opaquely.
type SwapPayload struct {
	Quote  RouteQuote      `json:"quote"`
	TxData json.RawMessage `json:"txData"`
}

type swapResponse struct {
	Quotes []RouteQuote    `json:"quotes"`
	TxData json.RawMessage `json:"txData"`
}
