package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dumbdevss/vault-app/internal/portfolio"
)

// CSVWriter renders a portfolio report as comma-separated values. Cells are
// quoted only when they contain a comma, quote or newline; embedded quotes
// are doubled. An empty portfolio yields empty output.
type CSVWriter struct {
	out io.Writer
}

// NewCSVWriter creates a CSV report writer targeting out.
func NewCSVWriter(out io.Writer) *CSVWriter {
	return &CSVWriter{out: out}
}

func (w *CSVWriter) Write(_ context.Context, p portfolio.Portfolio) error {
	rows := reportRows(p)
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	writeLine(&b, reportHeaders)
	for _, row := range rows {
		b.WriteByte('\n')
		writeLine(&b, row)
	}

	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return fmt.Errorf("writing csv report: %w", err)
	}
	return nil
}

func writeLine(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeCell(cell))
	}
}

func escapeCell(v string) string {
	if !strings.ContainsAny(v, ",\"\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
