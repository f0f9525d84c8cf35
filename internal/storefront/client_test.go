package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/restock/internal/country"
)

func newTestClient(t *testing.T, r http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	info, err := country.Lookup("GB")
	require.NoError(t, err)
	c, err := NewClient(Options{Country: info, BaseURL: srv.URL, Timeout: 2 * time.Second, Headers: DefaultHeaders()})
	require.NoError(t, err)
	return c
}

func TestFetchProductSendsTimestampAndCountryHeaders(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_123)
	r := chi.NewRouter()
	r.Get("/api/products/{product}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "P123", chi.URLParam(req, "product"))
		assert.Equal(t, "1700000000123", req.URL.Query().Get("ts"))
		assert.Equal(t, "GB", req.Header.Get("FF-Country"))
		assert.Equal(t, "GBP", req.Header.Get("FF-Currency"))
		assert.Equal(t, "en-GB,en;q=0.9", req.Header.Get("Accept-Language"))
		assert.NotEmpty(t, req.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"slug":"p","result":{"id":42,"variants":[{"id":"v1","merchantId":7,"quantity":3,"size":"M"}]}}`))
	})

	product, err := newTestClient(t, r).FetchProduct(context.Background(), "P123", ts)
	require.NoError(t, err)
	assert.Equal(t, int64(42), product.Result.ID)
	require.Len(t, product.Result.Variants, 1)
	assert.Equal(t, Variant{ID: "v1", MerchantID: 7, Quantity: 3, Size: "M"}, product.Result.Variants[0])
}

func TestStatusAndDecodeErrors(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/products/{product}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	r.Get("/api/users/me", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	c := newTestClient(t, r)

	_, err := c.FetchProduct(context.Background(), "P1", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode body")

	err = c.CurrentUser(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, "current user", statusErr.Op)
}

func TestSessionCookiesAreKept(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/users/me", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
	})
	r.Post("/api/checkout/v1/orders", func(w http.ResponseWriter, req *http.Request) {
		cookie, err := req.Cookie("session")
		if err != nil || cookie.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body CreateOrderRequest
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body.GuestUserEmail)
		assert.Equal(t, ShippingModeByMerchant, body.ShippingMode)
		_, _ = w.Write([]byte(`{"id":9001,"orderStatus":1}`))
	})
	c := newTestClient(t, r)

	require.NoError(t, c.CurrentUser(context.Background()))
	order, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		GuestUserEmail: "a@b.com",
		ShippingMode:   ShippingModeByMerchant,
		Items:          []OrderItem{{MerchantID: 7, ProductID: 42, Quantity: 1, VariantID: "v1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9001), order.ID)
}

func TestAssignAddressesAndFinalize(t *testing.T) {
	var patched AddressPatch
	r := chi.NewRouter()
	r.Patch("/api/checkout/v1/orders/{id}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "77", chi.URLParam(req, "id"))
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&patched))
		_, _ = w.Write([]byte(`{"id":77}`))
	})
	r.Post("/api/checkout/v1/orders/{id}/finalize", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	})
	c := newTestClient(t, r)

	patch := AddressPatch{
		BillingAddress:  Address{FirstName: "Ada", Country: AddressCountry{ID: 215, Name: "United Kingdom"}, City: Named{Name: "London"}},
		ShippingAddress: Address{FirstName: "Ada", ZipCode: "N1"},
	}
	require.NoError(t, c.AssignAddresses(context.Background(), 77, patch))
	assert.Equal(t, patch, patched)

	require.NoError(t, c.FinalizeOrder(context.Background(), 77, CardPayment{CardNumber: "4111"}))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{})
	require.Error(t, err)
}
