package export

import (
	"context"

	"github.com/samber/lo"

	"github.com/dumbdevss/vault-app/internal/domain"
	"github.com/dumbdevss/vault-app/internal/portfolio"
)

// ReportWriter renders a valued portfolio to some destination: a byte stream
// for downloads, or a remote spreadsheet.
type ReportWriter interface {
	Write(ctx context.Context, p portfolio.Portfolio) error
}

// reportHeaders is the column set shared by every report format.
var reportHeaders = []string{"Symbol", "Name", "Address", "Balance", "Price (USD)", "Value (USD)"}

// reportRows flattens the portfolio into printable cells. Amounts keep up to
// six decimal places, USD figures two, trailing zeros stripped.
func reportRows(p portfolio.Portfolio) [][]string {
	return lo.Map(p.Rows, func(r portfolio.Row, _ int) []string {
		return []string{
			r.Token.Symbol,
			r.Token.Name,
			r.Token.Address,
			domain.FormatAmount(r.Balance),
			domain.ConditionalFixed(domain.SafeParse(r.Token.USDPrice), 2),
			domain.ConditionalFixed(r.ValueUSD, 2),
		}
	})
}
