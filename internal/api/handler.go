package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dumbdevss/vault-app/internal/catalog"
	"github.com/dumbdevss/vault-app/internal/domain"
	"github.com/dumbdevss/vault-app/internal/export"
	"github.com/dumbdevss/vault-app/internal/history"
	"github.com/dumbdevss/vault-app/internal/portfolio"
	"github.com/dumbdevss/vault-app/internal/preview"
	"github.com/dumbdevss/vault-app/internal/quote"
	"github.com/dumbdevss/vault-app/internal/swap"
)

// Handler provides the HTTP endpoints of the swap engine.
type Handler struct {
	catalog   *catalog.Service
	engine    *quote.Engine
	executor  *swap.Executor
	portfolio *portfolio.Service
	swaps     history.Repository
	sessions  *sessionManager
}

// NewHandler creates a new API handler. swaps may be nil when no database is
// configured; the history endpoint then reports 404. debounce and interval
// drive the per-wallet quote sessions.
func NewHandler(cat *catalog.Service, engine *quote.Engine, executor *swap.Executor, pf *portfolio.Service, swaps history.Repository, debounce, interval time.Duration) *Handler {
	return &Handler{
		catalog:   cat,
		engine:    engine,
		executor:  executor,
		portfolio: pf,
		swaps:     swaps,
		sessions:  newSessionManager(engine, debounce, interval),
	}
}

// ListTokens handles GET /api/v1/tokens.
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens := h.catalog.Store().Tokens()
	if len(tokens) == 0 {
		// Cold start: serve the catalog on demand rather than an empty list.
		loaded, err := h.catalog.LoadCatalog(r.Context())
		if err != nil {
			slog.Error("failed to load token catalog", "error", err)
			writeError(w, http.StatusBadGateway, "token catalog unavailable")
			return
		}
		tokens = loaded
	}
	writeJSON(w, http.StatusOK, tokens)
}

// GetBalances handles GET /api/v1/balances/{address}.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	balances, err := h.catalog.LoadBalances(r.Context(), address)
	if err != nil {
		slog.Error("failed to load balances", "address", address, "error", err)
		writeError(w, http.StatusBadGateway, "balances unavailable")
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

// GetQuote handles GET /api/v1/quote. A quote that cannot exist yet (missing
// amount, identical tokens, no wallet) is not an error: the response is an
// unavailable preview with status 200.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.QuoteRequest{
		FromTokenAddress: q.Get("from"),
		ToTokenAddress:   q.Get("to"),
		FromAmount:       q.Get("amount"),
		WalletAddress:    q.Get("wallet"),
		SlippagePercent:  domain.SafeParse(q.Get("slippage")),
	}

	result, err := h.engine.RequestQuote(r.Context(), req)
	if err != nil {
		if quote.Silent(err) {
			writeJSON(w, http.StatusOK, preview.Unavailable)
			return
		}
		slog.Error("quote fetch failed", "from", req.FromTokenAddress, "to", req.ToTokenAddress, "error", err)
		writeError(w, http.StatusBadGateway, "quote fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, preview.Build(result))
}

type swapRequest struct {
	FromTokenAddress string `json:"fromTokenAddress"`
	ToTokenAddress   string `json:"toTokenAddress"`
	FromAmount       string `json:"fromAmount"`
	SlippagePercent  string `json:"slippagePercent"`
}

// ExecuteSwap handles POST /api/v1/swap.
func (h *Handler) ExecuteSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	intent := &domain.TradeIntent{
		FromToken:       &domain.Token{Address: req.FromTokenAddress},
		ToToken:         &domain.Token{Address: req.ToTokenAddress},
		FromAmount:      req.FromAmount,
		SlippagePercent: domain.SafeParse(req.SlippagePercent),
	}

	receipt, err := h.executor.Execute(r.Context(), intent)
	if err != nil {
		writeSwapError(w, receipt, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// GetPortfolio handles GET /api/v1/portfolio/{address}.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	p, err := h.portfolio.Value(r.Context(), address)
	if err != nil {
		slog.Error("failed to value portfolio", "address", address, "error", err)
		writeError(w, http.StatusBadGateway, "portfolio unavailable")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ExportPortfolio handles GET /api/v1/portfolio/{address}/export.
// format=csv (default) streams text/csv; format=xlsx streams a workbook.
func (h *Handler) ExportPortfolio(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	p, err := h.portfolio.Value(r.Context(), address)
	if err != nil {
		slog.Error("failed to value portfolio for export", "address", address, "error", err)
		writeError(w, http.StatusBadGateway, "portfolio unavailable")
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="portfolio.csv"`)
		err = export.NewCSVWriter(w).Write(r.Context(), p)
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="portfolio.xlsx"`)
		err = export.NewXLSXWriter(w).Write(r.Context(), p)
	default:
		writeError(w, http.StatusBadRequest, "unsupported format, expected csv or xlsx")
		return
	}
	if err != nil {
		slog.Warn("failed to stream portfolio report", "address", address, "error", err)
	}
}

// ListSwaps handles GET /api/v1/swaps/{address}.
func (h *Handler) ListSwaps(w http.ResponseWriter, r *http.Request) {
	if h.swaps == nil {
		writeError(w, http.StatusNotFound, "swap history not configured")
		return
	}

	const maxLimit = 500
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	address := r.PathValue("address")
	records, err := h.swaps.ListByWallet(r.Context(), address, limit)
	if err != nil {
		slog.Error("failed to list swap history", "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeSwapError(w http.ResponseWriter, receipt swap.Receipt, err error) {
	var status int
	switch {
	case errors.Is(err, swap.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, swap.ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, swap.ErrUserRejected):
		status = http.StatusConflict
	case errors.Is(err, swap.ErrPayloadFetchFailed), errors.Is(err, swap.ErrSubmissionFailed):
		status = http.StatusBadGateway
	default:
		slog.Error("swap execution failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, status, map[string]any{
		"error":   err.Error(),
		"receipt": receipt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
