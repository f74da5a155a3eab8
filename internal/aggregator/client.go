package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is an HTTP client for the DEX aggregator REST API. Every request
// carries the API key header.
type Client struct {
	baseURL    string
	apiKey     string
	chainID    int
	httpClient *http.Client
}

// NewClient creates a new aggregator client.
func NewClient(baseURL, apiKey string, chainID int, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		chainID:    chainID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// TokenList fetches the full tradable token list for the configured chain.
func (c *Client) TokenList(ctx context.Context) ([]TokenEntry, error) {
	q := url.Values{}
	q.Set("chainId", strconv.Itoa(c.chainID))
	q.Set("panoraUI", "true")
	q.Set("panoraTags", "Verified,Recommended")

	var resp struct {
		Data []TokenEntry `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/tokenlist", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Quote fetches a swap quote for the given parameters.
func (c *Client) Quote(ctx context.Context, params SwapParams) (RouteQuote, error) {
	var resp quoteResponse
	if err := c.do(ctx, http.MethodGet, "/swap/quote", c.swapQuery(params), &resp); err != nil {
		return RouteQuote{}, err
	}
	if len(resp.Quotes) == 0 {
		return RouteQuote{}, fmt.Errorf("aggregator returned no routes")
	}
	return resp.Quotes[0], nil
}

// BuildSwap requests an executable transaction payload for the given
// parameters. The parameters must be computed fresh, not reused from an
// earlier quote, to avoid pricing drift.
func (c *Client) BuildSwap(ctx context.Context, params SwapParams) (SwapPayload, error) {
	var resp swapResponse
	if err := c.do(ctx, http.MethodPost, "/swap", c.swapQuery(params), &resp); err != nil {
		return SwapPayload{}, err
	}
	if len(resp.TxData) == 0 {
		return SwapPayload{}, fmt.Errorf("aggregator returned no transaction payload")
	}
	payload := SwapPayload{TxData: resp.TxData}
	if len(resp.Quotes) > 0 {
		payload.Quote = resp.Quotes[0]
	}
	return payload, nil
}

func (c *Client) swapQuery(params SwapParams) url.Values {
	q := url.Values{}
	q.Set("chainId", strconv.Itoa(c.chainID))
	q.Set("fromTokenAddress", params.FromTokenAddress)
	q.Set("toTokenAddress", params.ToTokenAddress)
	q.Set("fromTokenAmount", params.FromTokenAmount)
	q.Set("toWalletAddress", params.ToWalletAddress)
	q.Set("slippagePercentage", params.SlippagePercent)
	return q
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, dest any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("creating aggregator request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing aggregator request: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading aggregator response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aggregator HTTP %d from %s: %s", resp.StatusCode, path, string(body))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing aggregator response from %s: %w", path, err)
	}
	return nil
}
