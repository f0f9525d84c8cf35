// Package purchase runs the checkout loop for one buyer profile.
package purchase

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"github.com/google/uuid"

	"example.com/restock/internal/broadcast"
	"example.com/restock/internal/config"
	"example.com/restock/internal/country"
	"example.com/restock/internal/errs"
	"example.com/restock/internal/retry"
	"example.com/restock/internal/stock"
	"example.com/restock/internal/storefront"
)

// Policies are the attempt budgets of the retried checkout steps. Payment is
// always attempted exactly once.
type Policies struct {
	Session retry.Policy
	Order   retry.Policy
	Address retry.Policy
}

func DefaultPolicies() Policies {
	return Policies{
		Session: retry.Policy{MaxAttempts: 6},
		Order:   retry.Policy{MaxAttempts: 11},
		Address: retry.Policy{MaxAttempts: 11},
	}
}

// Config describes one worker.
type Config struct {
	// ID is generated when empty.
	ID       string
	Profile  config.Profile
	Policies Policies
	// RefreshVariants adopts the newest queued snapshot before every cycle
	// instead of reusing the first one forever.
	RefreshVariants bool
	PaymentMethodID string
}

// Cycle is the input of one purchase attempt.
type Cycle struct {
	ProductID int64              `json:"productId"`
	Variant   storefront.Variant `json:"variant"`
}

// CycleResult reports a completed cycle. A failed payment is not an error.
type CycleResult struct {
	OrderID      int64  `json:"orderId"`
	PaymentError string `json:"paymentError,omitempty"`
}

// Stats are cumulative worker counters.
type Stats struct {
	Cycles            int64 `json:"cycles"`
	OrdersCreated     int64 `json:"ordersCreated"`
	PaymentsSubmitted int64 `json:"paymentsSubmitted"`
	PaymentsFailed    int64 `json:"paymentsFailed"`
}

// Worker owns one profile's session and turns stock snapshots into orders.
type Worker struct {
	id        string
	profile   config.Profile
	checkout  storefront.Checkout
	snapshots *broadcast.Receiver[stock.Snapshot]
	runner    Runner
	policies  Policies
	refresh   bool
	methodID  string
	pick      func(n int) int
	logger    *slog.Logger

	cycles            atomic.Int64
	ordersCreated     atomic.Int64
	paymentsSubmitted atomic.Int64
	paymentsFailed    atomic.Int64
}

func NewWorker(checkout storefront.Checkout, snapshots *broadcast.Receiver[stock.Snapshot], runner Runner, cfg Config, logger *slog.Logger) *Worker {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	if runner == nil {
		runner = LocalRunner{}
	}
	methodID := cfg.PaymentMethodID
	if methodID == "" {
		methodID = storefront.DefaultPaymentMethodID
	}
	return &Worker{
		id:        id,
		profile:   cfg.Profile,
		checkout:  checkout,
		snapshots: snapshots,
		runner:    runner,
		policies:  cfg.Policies,
		refresh:   cfg.RefreshVariants,
		methodID:  methodID,
		pick:      rand.IntN,
		logger:    logger.With("component", "purchase.worker", "worker_id", id, "email", cfg.Profile.Email),
	}
}

func (w *Worker) ID() string              { return w.id }
func (w *Worker) Profile() config.Profile { return w.profile }
func (w *Worker) Policies() Policies      { return w.policies }

// Stats returns a copy of the worker counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Cycles:            w.cycles.Load(),
		OrdersCreated:     w.ordersCreated.Load(),
		PaymentsSubmitted: w.paymentsSubmitted.Load(),
		PaymentsFailed:    w.paymentsFailed.Load(),
	}
}

// Start opens a session, waits for the first snapshot and then purchases
// forever. It returns a fatal error or ctx.Err(), and unsubscribes from the
// snapshot channel either way.
func (w *Worker) Start(ctx context.Context) error {
	if w.snapshots != nil {
		defer w.snapshots.Close()
	}
	if b, ok := w.runner.(workerBinder); ok {
		defer b.Bind(w)()
	}
	if err := w.openSession(ctx); err != nil {
		return err
	}
	pool, err := w.awaitSnapshot(ctx)
	if err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.refresh {
			pool = w.newestSnapshot(pool)
		}
		variant, err := w.pickVariant(pool)
		if err != nil {
			return err
		}
		res, err := w.runner.RunCycle(ctx, w, Cycle{ProductID: pool.ProductID, Variant: variant})
		if err != nil {
			return err
		}
		w.cycles.Add(1)
		if res.PaymentError != "" {
			w.paymentsFailed.Add(1)
			w.logger.Error("failed to submit order", "order_id", res.OrderID, "error", res.PaymentError)
		}
	}
}

func (w *Worker) openSession(ctx context.Context) error {
	err := w.policies.Session.Do(ctx, w.checkout.CurrentUser)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Mark(errs.Wrap(err, "open session"), ErrSessionFailed)
	}
	w.logger.Info("created session")
	return nil
}

func (w *Worker) awaitSnapshot(ctx context.Context) (stock.Snapshot, error) {
	for {
		snap, err := w.snapshots.Recv(ctx)
		if err == nil {
			return snap, nil
		}
		var lag *broadcast.LagError
		switch {
		case errors.As(err, &lag):
			w.logger.Warn("snapshot lagged", "missed", lag.Missed)
		case errors.Is(err, broadcast.ErrClosed):
			return stock.Snapshot{}, errs.Mark(err, ErrSnapshotsClosed)
		default:
			return stock.Snapshot{}, err
		}
	}
}

// newestSnapshot drains the receiver without blocking and returns the last
// snapshot found, or current when nothing newer is queued.
func (w *Worker) newestSnapshot(current stock.Snapshot) stock.Snapshot {
	for {
		snap, ok, err := w.snapshots.TryRecv()
		var lag *broadcast.LagError
		switch {
		case errors.As(err, &lag):
			w.logger.Warn("snapshot lagged", "missed", lag.Missed)
			continue
		case err != nil, !ok:
			return current
		}
		current = snap
	}
}

func (w *Worker) pickVariant(pool stock.Snapshot) (storefront.Variant, error) {
	if len(pool.Variants) == 0 {
		return storefront.Variant{}, errs.Mark(errs.Newf("product %s has no variants", pool.Product), ErrMissingVariant)
	}
	return pool.Variants[w.pick(len(pool.Variants))], nil
}

// CreateOrder makes a single order creation attempt.
func (w *Worker) CreateOrder(ctx context.Context, c Cycle) (int64, error) {
	order, err := w.checkout.CreateOrder(ctx, storefront.CreateOrderRequest{
		GuestUserEmail:   w.profile.Email,
		UsePaymentIntent: false,
		ShippingMode:     storefront.ShippingModeByMerchant,
		Items: []storefront.OrderItem{{
			MerchantID: c.Variant.MerchantID,
			ProductID:  c.ProductID,
			Quantity:   1,
			VariantID:  c.Variant.ID,
		}},
	})
	if err != nil {
		return 0, err
	}
	w.ordersCreated.Add(1)
	w.logger.Info("created order", "order_id", order.ID, "variant_id", c.Variant.ID)
	return order.ID, nil
}

// AssignAddresses makes a single attempt to attach the profile's addresses.
func (w *Worker) AssignAddresses(ctx context.Context, orderID int64) error {
	billing, err := w.address(w.profile.Billing)
	if err != nil {
		return err
	}
	shipping, err := w.address(w.profile.Delivery)
	if err != nil {
		return err
	}
	patch := storefront.AddressPatch{BillingAddress: billing, ShippingAddress: shipping}
	if err := w.checkout.AssignAddresses(ctx, orderID, patch); err != nil {
		return err
	}
	w.logger.Info("patched address", "order_id", orderID)
	return nil
}

// SubmitPayment makes the single finalize attempt of a cycle.
func (w *Worker) SubmitPayment(ctx context.Context, orderID int64) error {
	card := w.profile.Card
	err := w.checkout.FinalizeOrder(ctx, orderID, storefront.CardPayment{
		CardNumber:               card.Number,
		CardHolderName:           w.profile.Billing.FirstName + " " + w.profile.Billing.LastName,
		CardExpiryMonth:          card.ExpiryMonth,
		CardExpiryYear:           card.ExpiryYear,
		CardCVV:                  card.CVV,
		PaymentMethodType:        storefront.PaymentMethodCreditCard,
		PaymentMethodID:          w.methodID,
		SavePaymentMethodAsToken: true,
	})
	if err != nil {
		return errs.Mark(err, ErrPaymentSubmissionFailed)
	}
	w.paymentsSubmitted.Add(1)
	w.logger.Info("submitted order", "order_id", orderID)
	return nil
}

func (w *Worker) address(a config.Address) (storefront.Address, error) {
	info, err := country.Lookup(a.Country)
	if err != nil {
		return storefront.Address{}, err
	}
	return storefront.Address{
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Country:      storefront.AddressCountry{ID: info.ID, Name: info.Name},
		AddressLine1: a.Address1,
		AddressLine2: deref(a.Address2),
		AddressLine3: "",
		City:         storefront.Named{Name: a.City},
		State:        storefront.Named{Name: deref(a.State)},
		ZipCode:      a.Zip,
		Phone:        w.profile.Phone,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
