package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/dumbdevss/vault-app/internal/catalog"
	"github.com/dumbdevss/vault-app/internal/history"
	"github.com/dumbdevss/vault-app/internal/portfolio"
	"github.com/dumbdevss/vault-app/internal/quote"
	"github.com/dumbdevss/vault-app/internal/swap"
)

// NewServer creates an HTTP server with all routes configured. debounce and
// interval configure the per-wallet quote sessions.
func NewServer(port string, cat *catalog.Service, engine *quote.Engine, executor *swap.Executor, pf *portfolio.Service, swaps history.Repository, adminAPIKey string, debounce, interval time.Duration) *http.Server {
	handler := NewHandler(cat, engine, executor, pf, swaps, debounce, interval)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/tokens", handler.ListTokens)
	mux.HandleFunc("GET /api/v1/balances/{address}", handler.GetBalances)
	mux.HandleFunc("GET /api/v1/quote", handler.GetQuote)
	mux.HandleFunc("PUT /api/v1/sessions/{address}/intent", handler.UpdateSessionIntent)
	mux.HandleFunc("GET /api/v1/sessions/{address}/preview", handler.GetSessionPreview)
	mux.HandleFunc("DELETE /api/v1/sessions/{address}", handler.CloseSession)
	mux.HandleFunc("GET /api/v1/portfolio/{address}", handler.GetPortfolio)
	mux.HandleFunc("GET /api/v1/portfolio/{address}/export", handler.ExportPortfolio)
	mux.HandleFunc("GET /api/v1/swaps/{address}", handler.ListSwaps)

	swapHandler := http.HandlerFunc(handler.ExecuteSwap)
	if adminAPIKey != "" {
		mux.Handle("POST /api/v1/swap", requireAuth(adminAPIKey, swapHandler))
	} else {
		mux.Handle("POST /api/v1/swap", swapHandler)
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
