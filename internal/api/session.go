package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dumbdevss/vault-app/internal/domain"
	"github.com/dumbdevss/vault-app/internal/preview"
	"github.com/dumbdevss/vault-app/internal/quote"
	"github.com/dumbdevss/vault-app/internal/session"
)

// sessionManager owns one quote session per wallet, created on first use.
// Each session runs its own debounce and refresh countdown server-side.
type sessionManager struct {
	engine   *quote.Engine
	debounce time.Duration
	interval time.Duration

	mu       sync.Mutex
	sessions map[string]*session.Session
}

func newSessionManager(engine *quote.Engine, debounce, interval time.Duration) *sessionManager {
	return &sessionManager{
		engine:   engine,
		debounce: debounce,
		interval: interval,
		sessions: make(map[string]*session.Session),
	}
}

func (m *sessionManager) get(walletAddress string) *session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[walletAddress]
	if !ok {
		s = session.New(context.Background(), m.engine, walletAddress, m.debounce, m.interval)
		m.sessions[walletAddress] = s
	}
	return s
}

func (m *sessionManager) drop(walletAddress string) {
	m.mu.Lock()
	s, ok := m.sessions[walletAddress]
	delete(m.sessions, walletAddress)
	m.mu.Unlock()
	if ok {
		s.Dispose()
	}
}

// intentRequest is a partial update: only the fields present are applied.
type intentRequest struct {
	FromTokenAddress *string `json:"fromTokenAddress,omitempty"`
	ToTokenAddress   *string `json:"toTokenAddress,omitempty"`
	FromAmount       *string `json:"fromAmount,omitempty"`
	SlippagePercent  *string `json:"slippagePercent,omitempty"`
	SwapTokens       bool    `json:"swapTokens,omitempty"`
}

// UpdateSessionIntent handles PUT /api/v1/sessions/{address}/intent. Each
// applied edit reschedules the session's quote debounce.
func (h *Handler) UpdateSessionIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.sessions.get(r.PathValue("address"))

	if req.SwapTokens {
		s.SwapTokens()
	}
	if req.FromTokenAddress != nil {
		token, ok := h.catalog.Store().Token(*req.FromTokenAddress)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown source token")
			return
		}
		s.SelectFromToken(&token)
	}
	if req.ToTokenAddress != nil {
		token, ok := h.catalog.Store().Token(*req.ToTokenAddress)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown destination token")
			return
		}
		s.SelectToToken(&token)
	}
	if req.FromAmount != nil {
		s.SetAmount(*req.FromAmount)
	}
	if req.SlippagePercent != nil {
		s.SetSlippage(domain.SafeParse(*req.SlippagePercent))
	}

	writeJSON(w, http.StatusOK, s.Intent())
}

type sessionPreviewResponse struct {
	Preview     preview.ViewModel `json:"preview"`
	RefreshInMs int64             `json:"refreshInMs"`
}

// GetSessionPreview handles GET /api/v1/sessions/{address}/preview. The
// response carries the current preview and the time until the session's next
// automatic refresh.
func (h *Handler) GetSessionPreview(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.get(r.PathValue("address"))
	vm, remaining := s.Preview()
	writeJSON(w, http.StatusOK, sessionPreviewResponse{
		Preview:     vm,
		RefreshInMs: remaining.Milliseconds(),
	})
}

// CloseSession handles DELETE /api/v1/sessions/{address}. All of the
// session's pending quote work is cancelled.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.drop(r.PathValue("address"))
	w.WriteHeader(http.StatusNoContent)
}
