package preview

import (
	"github.com/shopspring/decimal"

	"github.com/dumbdevss/vault-app/internal/domain"
)

// highImpactThreshold separates low-risk from high-risk price impact.
// Display policy only, not a financial guarantee.
var highImpactThreshold = decimal.NewFromInt(1)

// Severity tags the price impact for display.
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityHigh Severity = "high"
)

// ViewModel is a displayable trade preview.
type ViewModel struct {
	Available       bool     `json:"available"`
	ToAmount        string   `json:"toAmount,omitempty"`
	ExchangeRate    string   `json:"exchangeRate,omitempty"`
	PriceImpact     string   `json:"priceImpact,omitempty"`
	ImpactSeverity  Severity `json:"impactSeverity,omitempty"`
	NetworkFeeUSD   string   `json:"networkFeeUsd,omitempty"`
	SlippagePercent string   `json:"slippagePercent,omitempty"`
}

// Unavailable is the preview shown when no valid quote exists.
var Unavailable = ViewModel{Available: false}

// Build turns a quote result into a displayable preview. It performs no I/O
// and never panics into the render path: a result without a positive exchange
// rate or a missing output amount yields the explicit Unavailable variant.
func Build(quote domain.QuoteResult) ViewModel {
	if quote.ToAmount == "" || !quote.ExchangeRate.IsPositive() {
		return Unavailable
	}

	severity := SeverityLow
	if quote.PriceImpact.Abs().GreaterThanOrEqual(highImpactThreshold) {
		severity = SeverityHigh
	}

	return ViewModel{
		Available:       true,
		ToAmount:        quote.ToAmount,
		ExchangeRate:    domain.FormatAmount(quote.ExchangeRate),
		PriceImpact:     quote.PriceImpact.String() + "%",
		ImpactSeverity:  severity,
		NetworkFeeUSD:   "$" + domain.ConditionalFixed(quote.NetworkFeeUSD, 2),
		SlippagePercent: quote.SlippagePercent.String() + "%",
	}
}
