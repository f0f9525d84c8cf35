// Package status serves a read-only JSON view of the running units.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"example.com/restock/internal/stock"
	"example.com/restock/internal/supervisor"
)

const maxHistoryLimit = 500

// UnitLister is satisfied by *supervisor.Supervisor.
type UnitLister interface {
	Units() []supervisor.UnitStatus
}

// HistoryReader is satisfied by *history.Store.
type HistoryReader interface {
	Recent(ctx context.Context, product string, limit int) ([]stock.Snapshot, error)
}

type Server struct {
	units   UnitLister
	history HistoryReader
	started time.Time
	logger  *slog.Logger
}

// NewServer builds the status API. history may be nil, in which case the
// history route answers 404.
func NewServer(units UnitLister, history HistoryReader, logger *slog.Logger) *Server {
	return &Server{units: units, history: history, started: time.Now().UTC(), logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/status", s.handleStatus)
	r.Get("/history/{product}", s.handleHistory)
	return r
}

type statusResponse struct {
	StartedAt time.Time               `json:"startedAt"`
	Running   int                     `json:"running"`
	Failed    int                     `json:"failed"`
	Units     []supervisor.UnitStatus `json:"units"`
	Totals    map[string]int64        `json:"totals"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	units := s.units.Units()
	resp := statusResponse{
		StartedAt: s.started,
		Units:     units,
		Totals:    map[string]int64{"cycles": 0, "ordersCreated": 0, "paymentsSubmitted": 0, "paymentsFailed": 0},
	}
	for _, u := range units {
		switch u.State {
		case supervisor.StateRunning:
			resp.Running++
		case supervisor.StateFailed:
			resp.Failed++
		}
		if u.Stats != nil {
			resp.Totals["cycles"] += u.Stats.Cycles
			resp.Totals["ordersCreated"] += u.Stats.OrdersCreated
			resp.Totals["paymentsSubmitted"] += u.Stats.PaymentsSubmitted
			resp.Totals["paymentsFailed"] += u.Stats.PaymentsFailed
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	if limit < 1 || limit > maxHistoryLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and %d", maxHistoryLimit)
		return
	}
	product := chi.URLParam(r, "product")
	snaps, err := s.history.Recent(r.Context(), product, limit)
	if err != nil {
		s.logger.Error("read history failed", "product", product, "error", err)
		writeError(w, http.StatusInternalServerError, "read history: %v", err)
		return
	}
	if snaps == nil {
		snaps = []stock.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product, "snapshots": snaps})
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": strings.TrimSpace(fmt.Sprintf(format, args...)),
			"status":  status,
		},
	})
}
