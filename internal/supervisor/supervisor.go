// Package supervisor builds the monitor and worker graph from the task list
// and runs every unit until it terminates.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/restock/internal/broadcast"
	"example.com/restock/internal/config"
	"example.com/restock/internal/country"
	"example.com/restock/internal/purchase"
	"example.com/restock/internal/stock"
	"example.com/restock/internal/storefront"
)

// ClientFactory creates storefront clients. Every Checkout call must return a
// client with its own session state.
type ClientFactory interface {
	Catalog(info country.Info) (storefront.Catalog, error)
	Checkout(info country.Info) (storefront.Checkout, error)
}

// StorefrontFactory builds real HTTP clients.
type StorefrontFactory struct {
	BaseURL string
	Timeout time.Duration
	Headers storefront.Headers
}

func (f StorefrontFactory) client(info country.Info) (*storefront.Client, error) {
	return storefront.NewClient(storefront.Options{Country: info, BaseURL: f.BaseURL, Timeout: f.Timeout, Headers: f.Headers})
}

func (f StorefrontFactory) Catalog(info country.Info) (storefront.Catalog, error) {
	return f.client(info)
}

func (f StorefrontFactory) Checkout(info country.Info) (storefront.Checkout, error) {
	return f.client(info)
}

// Options tune the units the supervisor builds.
type Options struct {
	PollInterval    time.Duration
	ChannelCapacity int
	Policies        purchase.Policies
	RefreshVariants bool
	PaymentMethodID string
	Sinks           []stock.Sink
	// Runner executes purchase cycles; nil means in-process.
	Runner purchase.Runner
}

type Kind string

const (
	KindMonitor Kind = "monitor"
	KindWorker  Kind = "worker"
)

type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateFailed  State = "failed"
)

// UnitStatus is a point-in-time view of one unit.
type UnitStatus struct {
	ID           string          `json:"id"`
	Kind         Kind            `json:"kind"`
	Name         string          `json:"name"`
	Product      string          `json:"product"`
	Country      country.Code    `json:"country,omitempty"`
	State        State           `json:"state"`
	Error        string          `json:"error,omitempty"`
	StartedAt    *time.Time      `json:"startedAt,omitempty"`
	EndedAt      *time.Time      `json:"endedAt,omitempty"`
	Stats        *purchase.Stats `json:"stats,omitempty"`
	LastSnapshot *stock.Snapshot `json:"lastSnapshot,omitempty"`
}

type unit struct {
	id      string
	kind    Kind
	name    string
	product string
	country country.Code
	run     func(ctx context.Context) error
	monitor *stock.Monitor
	worker  *purchase.Worker

	state     State
	err       error
	startedAt time.Time
	endedAt   time.Time
}

// Supervisor owns the unit graph of one process.
type Supervisor struct {
	tasks   []config.Task
	clients ClientFactory
	opts    Options
	logger  *slog.Logger

	mu    sync.RWMutex
	units []*unit
}

func New(tasks []config.Task, clients ClientFactory, opts Options, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		tasks:   tasks,
		clients: clients,
		opts:    opts,
		logger:  logger.With("component", "supervisor"),
	}
}

// Run builds every unit, starts them concurrently and waits until all have
// terminated. A unit that fails is logged and does not affect its siblings.
// Cancelling ctx stops every unit. Build errors are returned before anything starts.
func (s *Supervisor) Run(ctx context.Context) error {
	units, err := s.build()
	if err != nil {
		return err
	}

	type completion struct {
		unit *unit
		err  error
	}
	done := make(chan completion, len(units))

	s.mu.Lock()
	s.units = units
	now := time.Now().UTC()
	for _, u := range units {
		u.state = StateRunning
		u.startedAt = now
	}
	s.mu.Unlock()

	s.logger.Info("units started", "count", len(units))
	for _, u := range units {
		go func(u *unit) {
			done <- completion{unit: u, err: u.run(ctx)}
		}(u)
	}

	for range units {
		c := <-done
		s.finish(c.unit, c.err)
	}
	s.logger.Info("all units terminated")
	return ctx.Err()
}

func (s *Supervisor) finish(u *unit, err error) {
	s.mu.Lock()
	u.endedAt = time.Now().UTC()
	u.err = err
	stopped := err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if stopped {
		u.state = StateStopped
	} else {
		u.state = StateFailed
	}
	s.mu.Unlock()

	logger := s.logger.With("unit_id", u.id, "kind", string(u.kind), "name", u.name)
	if stopped {
		logger.Info("unit stopped")
		return
	}
	logger.Error("unit terminated", "error", err)
}

func (s *Supervisor) build() ([]*unit, error) {
	var units []*unit
	for _, task := range s.tasks {
		// Channels exist before any worker subscribes, so no worker misses
		// a publish of its own country.
		channels := make(map[country.Code]*broadcast.Channel[stock.Snapshot])
		for _, code := range task.Countries() {
			info, err := country.Lookup(code)
			if err != nil {
				return nil, fmt.Errorf("task %s: %w", task.Product, err)
			}
			catalog, err := s.clients.Catalog(info)
			if err != nil {
				return nil, fmt.Errorf("task %s: catalog client for %s: %w", task.Product, code, err)
			}
			ch := broadcast.New[stock.Snapshot](s.opts.ChannelCapacity)
			channels[info.Code] = ch
			m := stock.NewMonitor(catalog, ch, stock.MonitorConfig{
				Product:  task.Product,
				Country:  info.Code,
				Interval: s.opts.PollInterval,
				Sinks:    s.opts.Sinks,
			}, s.logger)
			units = append(units, &unit{
				id:      uuid.NewString(),
				kind:    KindMonitor,
				name:    fmt.Sprintf("%s/%s", task.Product, info.Code),
				product: task.Product,
				country: info.Code,
				run:     m.Start,
				monitor: m,
				state:   StatePending,
			})
		}

		for _, profile := range task.Profiles {
			info, err := country.Lookup(profile.Delivery.Country)
			if err != nil {
				return nil, fmt.Errorf("task %s: profile %s: %w", task.Product, profile.Email, err)
			}
			checkout, err := s.clients.Checkout(info)
			if err != nil {
				return nil, fmt.Errorf("task %s: checkout client for %s: %w", task.Product, profile.Email, err)
			}
			id := uuid.NewString()
			w := purchase.NewWorker(checkout, channels[info.Code].Subscribe(), s.opts.Runner, purchase.Config{
				ID:              id,
				Profile:         profile,
				Policies:        s.opts.Policies,
				RefreshVariants: s.opts.RefreshVariants,
				PaymentMethodID: s.opts.PaymentMethodID,
			}, s.logger)
			units = append(units, &unit{
				id:      id,
				kind:    KindWorker,
				name:    profile.Email,
				product: task.Product,
				country: info.Code,
				run:     w.Start,
				worker:  w,
				state:   StatePending,
			})
		}
	}
	return units, nil
}

// Units reports every unit of the current run.
func (s *Supervisor) Units() []UnitStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UnitStatus, 0, len(s.units))
	for _, u := range s.units {
		st := UnitStatus{
			ID:      u.id,
			Kind:    u.kind,
			Name:    u.name,
			Product: u.product,
			Country: u.country,
			State:   u.state,
		}
		if u.err != nil {
			st.Error = u.err.Error()
		}
		if !u.startedAt.IsZero() {
			t := u.startedAt
			st.StartedAt = &t
		}
		if !u.endedAt.IsZero() {
			t := u.endedAt
			st.EndedAt = &t
		}
		if u.worker != nil {
			stats := u.worker.Stats()
			st.Stats = &stats
		}
		if u.monitor != nil {
			if snap, ok := u.monitor.Last(); ok {
				st.LastSnapshot = &snap
			}
		}
		out = append(out, st)
	}
	return out
}
