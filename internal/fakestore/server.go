package fakestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"example.com/restock/internal/storefront"
)

const sessionCookie = "ff_session"

// Server exposes the storefront API over a Store, plus a small admin surface
// for seeding products and injecting failures.
type Server struct {
	store  *Store
	logger *slog.Logger
}

func NewServer(store *Store, logger *slog.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// Router wires the storefront and admin routes under a single chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/products/{product}", s.handleProduct)
		r.Get("/users/me", s.handleCurrentUser)
		r.Route("/checkout/v1/orders", func(r chi.Router) {
			r.Post("/", s.handleCreateOrder)
			r.Patch("/{orderID}", s.handlePatchOrder)
			r.Post("/{orderID}/finalize", s.handleFinalize)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Put("/products/{product}", s.handleSetProduct)
		r.Post("/failures", s.handleFailures)
		r.Get("/orders", s.handleListOrders)
		r.Get("/calls", s.handleCalls)
	})
	return r
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	if s.store.hit(EndpointProduct) {
		writeError(w, http.StatusServiceUnavailable, "injected failure")
		return
	}
	if r.URL.Query().Get("ts") == "" {
		writeError(w, http.StatusBadRequest, "ts is required")
		return
	}
	p, err := s.store.product(chi.URLParam(r, "product"))
	if err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, _ *http.Request) {
	if s.store.hit(EndpointSession) {
		writeError(w, http.StatusForbidden, "injected failure")
		return
	}
	id := s.store.openSession()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "isGuest": true})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if s.store.hit(EndpointCreateOrder) {
		writeError(w, http.StatusServiceUnavailable, "injected failure")
		return
	}
	var req storefront.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	if req.GuestUserEmail == "" || len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "guestUserEmail and items are required")
		return
	}
	order, err := s.store.createOrder(session(r), req)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.logger.Info("order created", "order_id", order.ID, "email", order.Email)
	writeJSON(w, http.StatusOK, storefront.Order{ID: order.ID, OrderStatus: 1})
}

func (s *Server) handlePatchOrder(w http.ResponseWriter, r *http.Request) {
	if s.store.hit(EndpointPatchOrder) {
		writeError(w, http.StatusServiceUnavailable, "injected failure")
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var patch storefront.AddressPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	order, err := s.store.assignAddresses(session(r), id, patch)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, storefront.Order{ID: order.ID, OrderStatus: 2})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if s.store.hit(EndpointFinalize) {
		writeError(w, http.StatusPaymentRequired, "injected failure")
		return
	}
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var payment storefront.CardPayment
	if err := json.NewDecoder(r.Body).Decode(&payment); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	if err := s.store.finalize(session(r), id, payment); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.logger.Info("order submitted", "order_id", id)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSetProduct(w http.ResponseWriter, r *http.Request) {
	var p storefront.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	s.store.SetProduct(chi.URLParam(r, "product"), p)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Endpoint Endpoint `json:"endpoint"`
		Count    int      `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	switch payload.Endpoint {
	case EndpointProduct, EndpointSession, EndpointCreateOrder, EndpointPatchOrder, EndpointFinalize:
	default:
		writeError(w, http.StatusBadRequest, "unknown endpoint %q", payload.Endpoint)
		return
	}
	s.store.FailNext(payload.Endpoint, payload.Count)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListOrders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"orders": s.store.Orders()})
}

func (s *Server) handleCalls(w http.ResponseWriter, _ *http.Request) {
	calls := make(map[Endpoint]int)
	for _, e := range []Endpoint{EndpointProduct, EndpointSession, EndpointCreateOrder, EndpointPatchOrder, EndpointFinalize} {
		calls[e] = s.store.Calls(e)
	}
	writeJSON(w, http.StatusOK, calls)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNoSession):
		writeError(w, http.StatusUnauthorized, "%s", err.Error())
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "%s", err.Error())
	case errors.Is(err, errUnknownItem), errors.Is(err, errOrderPending):
		writeError(w, http.StatusConflict, "%s", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "%s", err.Error())
	}
}

func session(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": strings.TrimSpace(fmt.Sprintf(format, args...)),
			"status":  status,
		},
	})
}
