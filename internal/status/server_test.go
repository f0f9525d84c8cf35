package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/restock/internal/logging"
	"example.com/restock/internal/purchase"
	"example.com/restock/internal/stock"
	"example.com/restock/internal/supervisor"
)

type staticUnits []supervisor.UnitStatus

func (s staticUnits) Units() []supervisor.UnitStatus { return s }

type stubHistory struct {
	snaps []stock.Snapshot
	err   error
	limit int
}

func (h *stubHistory) Recent(_ context.Context, _ string, limit int) ([]stock.Snapshot, error) {
	h.limit = limit
	return h.snaps, h.err
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatusAggregatesUnits(t *testing.T) {
	units := staticUnits{
		{ID: "m", Kind: supervisor.KindMonitor, Name: "P123/GB", State: supervisor.StateRunning},
		{ID: "w1", Kind: supervisor.KindWorker, Name: "a@b.com", State: supervisor.StateRunning,
			Stats: &purchase.Stats{Cycles: 3, OrdersCreated: 3, PaymentsSubmitted: 1, PaymentsFailed: 2}},
		{ID: "w2", Kind: supervisor.KindWorker, Name: "c@d.com", State: supervisor.StateFailed, Error: "session",
			Stats: &purchase.Stats{}},
	}
	router := NewServer(units, nil, logging.Discard()).Router()

	rec := get(t, router, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Running)
	assert.Equal(t, 1, resp.Failed)
	assert.Len(t, resp.Units, 3)
	assert.Equal(t, int64(3), resp.Totals["cycles"])
	assert.Equal(t, int64(2), resp.Totals["paymentsFailed"])
}

func TestHealthz(t *testing.T) {
	rec := get(t, NewServer(staticUnits{}, nil, logging.Discard()).Router(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestHistoryRoute(t *testing.T) {
	h := &stubHistory{snaps: []stock.Snapshot{{Product: "P123", ProductID: 42, Country: "GB", ObservedAt: time.Unix(0, 0).UTC()}}}
	router := NewServer(staticUnits{}, h, logging.Discard()).Router()

	rec := get(t, router, "/history/P123?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, h.limit)
	var body struct {
		Product   string           `json:"product"`
		Snapshots []stock.Snapshot `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "P123", body.Product)
	require.Len(t, body.Snapshots, 1)
	assert.Equal(t, int64(42), body.Snapshots[0].ProductID)

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/history/P123?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/history/P123?limit=100000").Code)

	h.err = errors.New("db locked")
	assert.Equal(t, http.StatusInternalServerError, get(t, router, "/history/P123").Code)
}

func TestHistoryDisabled(t *testing.T) {
	router := NewServer(staticUnits{}, nil, logging.Discard()).Router()
	assert.Equal(t, http.StatusNotFound, get(t, router, "/history/P123").Code)
}
