package indexer

import "encoding/json"

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// BalanceRow is one fungible asset balance as reported by the indexer.
// Amount is the raw on-chain integer, not divided by 10^decimals.
type BalanceRow struct {
	AssetType string      `json:"asset_type"`
	Amount    json.Number `json:"amount"`
	Metadata  struct {
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
		IconURI  string `json:"icon_uri"`
	} `json:"metadata"`
}

type balancesResponse struct {
	Data struct {
		CurrentFungibleAssetBalances []BalanceRow `json:"current_fungible_asset_balances"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}
