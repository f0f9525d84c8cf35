package supervisor

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/restock/internal/config"
	"example.com/restock/internal/country"
	"example.com/restock/internal/fakestore"
	"example.com/restock/internal/logging"
	"example.com/restock/internal/purchase"
	"example.com/restock/internal/retry"
	"example.com/restock/internal/storefront"
)

func profile(email string, code country.Code) config.Profile {
	addr := config.Address{FirstName: "Ada", LastName: "Lovelace", Address1: "1 Main St", Zip: "N1", City: "London", Country: code}
	return config.Profile{
		Email:    email,
		Card:     config.Card{Number: "4111111111111111", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "123"},
		Delivery: addr,
		Billing:  addr,
	}
}

func newFakeStore(t *testing.T) (*fakestore.Store, StorefrontFactory) {
	t.Helper()
	store := fakestore.NewStore()
	store.SetProduct("P123", storefront.Product{Result: storefront.ProductResult{ID: 42, Variants: []storefront.Variant{
		{ID: "v1", MerchantID: 7, Quantity: 3},
		{ID: "v2", MerchantID: 7, Quantity: 0},
	}}})
	srv := httptest.NewServer(fakestore.NewServer(store, logging.Discard()).Router())
	t.Cleanup(srv.Close)
	return store, StorefrontFactory{BaseURL: srv.URL, Timeout: 2 * time.Second, Headers: storefront.DefaultHeaders()}
}

func testOptions() Options {
	return Options{
		PollInterval:    10 * time.Millisecond,
		ChannelCapacity: 32,
		Policies:        purchase.DefaultPolicies(),
	}
}

func runAsync(ctx context.Context, s *Supervisor) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not return")
		return nil
	}
}

func TestEndToEndPurchaseCycles(t *testing.T) {
	store, factory := newFakeStore(t)
	tasks := []config.Task{{Product: "P123", Profiles: []config.Profile{profile("a@b.com", "GB")}}}
	sup := New(tasks, factory, testOptions(), logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, sup)

	require.Eventually(t, func() bool {
		return store.Calls(fakestore.EndpointCreateOrder) >= 2
	}, 5*time.Second, 10*time.Millisecond)

	orders := store.Orders()
	require.NotEmpty(t, orders)
	first := orders[0]
	assert.Equal(t, "a@b.com", first.Email)
	require.Len(t, first.Items, 1)
	assert.Equal(t, storefront.OrderItem{MerchantID: 7, ProductID: 42, Quantity: 1, VariantID: "v1"}, first.Items[0])
	assert.Equal(t, "submitted", first.Status)
	require.NotNil(t, first.Addresses)
	assert.Equal(t, 215, first.Addresses.ShippingAddress.Country.ID)

	units := sup.Units()
	require.Len(t, units, 2)
	for _, u := range units {
		assert.Equal(t, StateRunning, u.State)
		if u.Kind == KindMonitor {
			require.NotNil(t, u.LastSnapshot)
			assert.Equal(t, int64(42), u.LastSnapshot.ProductID)
			assert.Len(t, u.LastSnapshot.Variants, 1)
		}
	}

	cancel()
	err := waitDone(t, done)
	assert.ErrorIs(t, err, context.Canceled)
	for _, u := range sup.Units() {
		assert.Equal(t, StateStopped, u.State, u.Name)
	}
}

type brokenSession struct{ storefront.Checkout }

func (brokenSession) CurrentUser(context.Context) error { return errors.New("forbidden") }

// splitFactory hands a broken session to the first checkout client it builds.
type splitFactory struct {
	StorefrontFactory
	mu    sync.Mutex
	built int
}

func (f *splitFactory) Checkout(info country.Info) (storefront.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built++
	if f.built == 1 {
		return brokenSession{}, nil
	}
	return f.StorefrontFactory.Checkout(info)
}

func TestFailedWorkerDoesNotStopSiblings(t *testing.T) {
	store, base := newFakeStore(t)
	tasks := []config.Task{{Product: "P123", Profiles: []config.Profile{
		profile("broken@b.com", "GB"),
		profile("ok@b.com", "GB"),
	}}}
	opts := testOptions()
	opts.Policies.Session = retry.Policy{MaxAttempts: 1}
	sup := New(tasks, &splitFactory{StorefrontFactory: base}, opts, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, sup)

	require.Eventually(t, func() bool {
		var failed, ordering bool
		for _, u := range sup.Units() {
			if u.Name == "broken@b.com" && u.State == StateFailed {
				failed = true
			}
			if u.Name == "ok@b.com" && u.Stats != nil && u.Stats.Cycles >= 1 {
				ordering = true
			}
		}
		return failed && ordering
	}, 5*time.Second, 10*time.Millisecond)

	before := store.Calls(fakestore.EndpointProduct)
	require.Eventually(t, func() bool {
		return store.Calls(fakestore.EndpointProduct) > before
	}, 5*time.Second, 10*time.Millisecond, "monitor keeps polling")

	for _, u := range sup.Units() {
		if u.Name == "broken@b.com" {
			assert.Contains(t, u.Error, "forbidden")
			assert.NotNil(t, u.EndedAt)
		}
	}

	cancel()
	assert.ErrorIs(t, waitDone(t, done), context.Canceled)
}

func TestOneChannelPerCountry(t *testing.T) {
	_, factory := newFakeStore(t)
	tasks := []config.Task{{Product: "P123", Profiles: []config.Profile{
		profile("a@b.com", "GB"),
		profile("b@b.com", "IT"),
		profile("c@b.com", "GB"),
	}}}
	sup := New(tasks, factory, testOptions(), logging.Discard())
	units, err := sup.build()
	require.NoError(t, err)

	var monitors, workers int
	for _, u := range units {
		switch u.kind {
		case KindMonitor:
			monitors++
		case KindWorker:
			workers++
		}
	}
	assert.Equal(t, 2, monitors)
	assert.Equal(t, 3, workers)
}

type failingFactory struct{ StorefrontFactory }

func (failingFactory) Catalog(country.Info) (storefront.Catalog, error) {
	return nil, errors.New("no transport")
}

func TestBuildErrorAbortsBeforeStart(t *testing.T) {
	tasks := []config.Task{{Product: "P123", Profiles: []config.Profile{profile("a@b.com", "GB")}}}
	sup := New(tasks, failingFactory{}, testOptions(), logging.Discard())

	err := sup.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transport")
	assert.Empty(t, sup.Units())
}
