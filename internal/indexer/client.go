package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// balancesQuery fetches all fungible asset balances for one owner address.
const balancesQuery = `
query GetFungibleAssetBalances($owner_address: String!) {
  current_fungible_asset_balances(
    where: {owner_address: {_eq: $owner_address}}
  ) {
    asset_type
    amount
    metadata {
      name
      symbol
      decimals
      icon_uri
    }
  }
}`

// Client is an HTTP client for the on-chain GraphQL indexer.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new indexer client.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchBalances queries the indexer for all fungible asset balances held by
// ownerAddress. Raw integer amounts are returned as reported; unit conversion
// is the caller's concern.
func (c *Client) FetchBalances(ctx context.Context, ownerAddress string) ([]BalanceRow, error) {
	reqBody := graphQLRequest{
		Query:     balancesQuery,
		Variables: map[string]any{"owner_address": ownerAddress},
	}

	var resp balancesResponse
	if err := c.postJSON(ctx, reqBody, &resp); err != nil {
		return nil, err
	}

	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("indexer returned %d errors: %s", len(resp.Errors), resp.Errors[0].Message)
	}

	return resp.Data.CurrentFungibleAssetBalances, nil
}

func (c *Client) postJSON(ctx context.Context, reqBody any, dest any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encoding indexer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating indexer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing indexer request: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading indexer response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer HTTP %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing indexer response: %w", err)
	}
	return nil
}
