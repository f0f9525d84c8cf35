package stock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"example.com/restock/internal/broadcast"
	"example.com/restock/internal/country"
	"example.com/restock/internal/storefront"
)

// DefaultInterval is the pause between two catalog polls.
const DefaultInterval = time.Second

// Sink receives every published snapshot. Each sink reads from its own
// receiver on the country channel, so a slow sink only lags itself. Errors are
// logged and otherwise ignored.
type Sink interface {
	Record(ctx context.Context, snap Snapshot) error
}

// MonitorConfig binds a monitor to one product in one country.
type MonitorConfig struct {
	Product  string
	Country  country.Code
	Interval time.Duration
	Sinks    []Sink
}

// Monitor polls the catalog on a fixed interval and publishes in-stock
// variants to every subscribed purchase worker.
type Monitor struct {
	catalog  storefront.Catalog
	channel  *broadcast.Channel[Snapshot]
	product  string
	country  country.Code
	interval time.Duration
	sinks    []Sink
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.RWMutex
	last *Snapshot
}

func NewMonitor(catalog storefront.Catalog, channel *broadcast.Channel[Snapshot], cfg MonitorConfig, logger *slog.Logger) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		catalog:  catalog,
		channel:  channel,
		product:  cfg.Product,
		country:  cfg.Country,
		interval: interval,
		sinks:    cfg.Sinks,
		now:      time.Now,
		logger:   logger.With("component", "stock.monitor", "product", cfg.Product, "country", string(cfg.Country)),
	}
}

// Start polls until ctx is cancelled, which is the only way it returns.
func (m *Monitor) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, sink := range m.sinks {
		rx := m.channel.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer rx.Close()
			m.drain(ctx, sink, rx)
		}()
	}
	defer wg.Wait()

	for {
		m.poll(ctx)
		timer := time.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	product, err := m.catalog.FetchProduct(ctx, m.product, m.now())
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("fetch product failed", "error", err)
		}
		return
	}
	available := FilterAvailable(product.Result.Variants)
	if len(available) == 0 {
		m.logger.Warn("no variants loaded")
		return
	}
	snap := Snapshot{
		Product:    m.product,
		ProductID:  product.Result.ID,
		Country:    m.country,
		Variants:   available,
		ObservedAt: m.now().UTC(),
	}
	receivers := m.channel.Publish(snap)
	m.logger.Info("variants loaded", "count", len(available), "receivers", receivers)

	m.mu.Lock()
	m.last = &snap
	m.mu.Unlock()
}

// drain feeds one sink until ctx ends or the channel closes.
func (m *Monitor) drain(ctx context.Context, sink Sink, rx *broadcast.Receiver[Snapshot]) {
	for {
		snap, err := rx.Recv(ctx)
		var lag *broadcast.LagError
		switch {
		case err == nil:
			if err := sink.Record(ctx, snap); err != nil && ctx.Err() == nil {
				m.logger.Warn("record snapshot failed", "error", err)
			}
		case errors.As(err, &lag):
			m.logger.Warn("sink lagged", "missed", lag.Missed)
		default:
			return
		}
	}
}

// Last returns the most recently published snapshot.
func (m *Monitor) Last() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return Snapshot{}, false
	}
	return *m.last, true
}

func (m *Monitor) Product() string       { return m.product }
func (m *Monitor) Country() country.Code { return m.country }
