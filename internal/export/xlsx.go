package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/dumbdevss/vault-app/internal/portfolio"
)

const portfolioSheet = "Portfolio"

// XLSXWriter renders a portfolio report as an Excel workbook with a single
// Portfolio sheet.
type XLSXWriter struct {
	out io.Writer
}

// NewXLSXWriter creates an XLSX report writer targeting out.
func NewXLSXWriter(out io.Writer) *XLSXWriter {
	return &XLSXWriter{out: out}
}

func (w *XLSXWriter) Write(_ context.Context, p portfolio.Portfolio) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", portfolioSheet); err != nil {
		return fmt.Errorf("naming portfolio sheet: %w", err)
	}

	if err := setRow(f, 1, toCells(reportHeaders)); err != nil {
		return err
	}
	for i, row := range reportRows(p) {
		if err := setRow(f, i+2, toCells(row)); err != nil {
			return err
		}
	}

	if err := f.Write(w.out); err != nil {
		return fmt.Errorf("writing xlsx report: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNum int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("addressing row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(portfolioSheet, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", rowNum, err)
	}
	return nil
}

func toCells(row []string) []any {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
