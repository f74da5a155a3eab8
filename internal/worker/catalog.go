package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/dumbdevss/vault-app/internal/domain"
)

// CatalogLoader defines the interface for refreshing the token catalog.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) ([]domain.Token, error)
}

// CatalogWorker periodically replaces the token catalog (and with it the
// reference USD prices) wholesale.
type CatalogWorker struct {
	loader   CatalogLoader
	interval time.Duration
}

// NewCatalogWorker creates a new CatalogWorker.
func NewCatalogWorker(loader CatalogLoader, interval time.Duration) *CatalogWorker {
	return &CatalogWorker{
		loader:   loader,
		interval: interval,
	}
}

// Run starts the catalog refresh loop. It blocks until the context is cancelled.
func (w *CatalogWorker) Run(ctx context.Context) {
	slog.Info("CatalogWorker: starting")

	// Fetch immediately on startup
	if _, err := w.loader.LoadCatalog(ctx); err != nil {
		slog.Error("CatalogWorker: initial fetch failed", "error", err)
	} else {
		slog.Info("CatalogWorker: initial fetch completed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("CatalogWorker: shutting down")
			return
		case <-ticker.C:
			if _, err := w.loader.LoadCatalog(ctx); err != nil {
				slog.Error("CatalogWorker: fetch failed", "error", err)
			} else {
				slog.Info("CatalogWorker: fetch completed")
			}
		}
	}
}
