package export

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/dumbdevss/vault-app/internal/portfolio"
)

// SheetsWriter pushes a portfolio report to a Google Sheets spreadsheet.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Write ensures the Portfolio sheet exists, then clears and rewrites it.
func (w *SheetsWriter) Write(ctx context.Context, p portfolio.Portfolio) error {
	if err := w.ensureSheet(ctx, portfolioSheet); err != nil {
		return err
	}

	values := make([][]any, 0, len(p.Rows)+2)
	values = append(values, toCells(reportHeaders))
	for _, row := range reportRows(p) {
		values = append(values, toCells(row))
	}
	values = append(values, []any{"Total", "", "", "", "", p.TotalUSD})

	_, err := w.svc.Spreadsheets.Values.BatchClear(
		w.spreadsheetID,
		&sheets.BatchClearValuesRequest{
			Ranges: []string{portfolioSheet + "!A:F"},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing portfolio sheet: %w", err)
	}

	_, err = w.svc.Spreadsheets.Values.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data: []*sheets.ValueRange{
				{Range: portfolioSheet + "!A1", Values: values},
			},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing portfolio sheet: %w", err)
	}

	return nil
}

// ensureSheet creates the named sheet if it does not already exist.
func (w *SheetsWriter) ensureSheet(ctx context.Context, name string) error {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	for _, s := range spreadsheet.Sheets {
		if s.Properties.Title == name {
			return nil
		}
	}

	_, err = w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			}},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating portfolio sheet: %w", err)
	}

	return nil
}
