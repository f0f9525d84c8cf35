// Package fakestore is an in-memory storefront that speaks the same API as
// the real shop. It backs end-to-end tests and local runs.
package fakestore

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"example.com/restock/internal/storefront"
)

// Endpoint names one storefront operation for failure injection and call counting.
type Endpoint string

const (
	EndpointProduct     Endpoint = "product"
	EndpointSession     Endpoint = "session"
	EndpointCreateOrder Endpoint = "create_order"
	EndpointPatchOrder  Endpoint = "patch_order"
	EndpointFinalize    Endpoint = "finalize"
)

var (
	errNotFound     = errors.New("not found")
	errNoSession    = errors.New("no session")
	errUnknownItem  = errors.New("unknown product or variant")
	errOrderPending = errors.New("order has no addresses")
)

// Order is the fake's view of a checkout order.
type Order struct {
	ID        int64                    `json:"id"`
	Session   string                   `json:"session"`
	Email     string                   `json:"email"`
	Items     []storefront.OrderItem   `json:"items"`
	Addresses *storefront.AddressPatch `json:"addresses,omitempty"`
	Payment   *storefront.CardPayment  `json:"payment,omitempty"`
	Status    string                   `json:"status"`
}

// Store holds catalog and order state behind a single lock.
type Store struct {
	mu       sync.Mutex
	products map[string]storefront.Product
	sessions map[string]struct{}
	orders   map[int64]*Order
	nextID   int64
	failures map[Endpoint]int
	calls    map[Endpoint]int
}

func NewStore() *Store {
	return &Store{
		products: make(map[string]storefront.Product),
		sessions: make(map[string]struct{}),
		orders:   make(map[int64]*Order),
		nextID:   1000,
		failures: make(map[Endpoint]int),
		calls:    make(map[Endpoint]int),
	}
}

// SetProduct replaces the catalog entry served for slug.
func (s *Store) SetProduct(slug string, p storefront.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Slug = slug
	s.products[slug] = p
}

// FailNext makes the next n calls to e fail with a server error.
func (s *Store) FailNext(e Endpoint, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[e] = n
}

// Calls returns how many requests reached e, failed ones included.
func (s *Store) Calls(e Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[e]
}

// Orders lists every order by id.
func (s *Store) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// hit counts the call and reports whether it should be failed.
func (s *Store) hit(e Endpoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[e]++
	if s.failures[e] > 0 {
		s.failures[e]--
		return true
	}
	return false
}

func (s *Store) product(slug string) (storefront.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[slug]
	if !ok {
		return storefront.Product{}, errNotFound
	}
	p.Result.Variants = append([]storefront.Variant(nil), p.Result.Variants...)
	return p, nil
}

func (s *Store) openSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.sessions[id] = struct{}{}
	return id
}

func (s *Store) validSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

func (s *Store) createOrder(session string, req storefront.CreateOrderRequest) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session]; !ok {
		return nil, errNoSession
	}
	for _, item := range req.Items {
		if !s.hasVariant(item.ProductID, item.VariantID) {
			return nil, errUnknownItem
		}
	}
	s.nextID++
	o := &Order{ID: s.nextID, Session: session, Email: req.GuestUserEmail, Items: req.Items, Status: "created"}
	s.orders[o.ID] = o
	out := *o
	return &out, nil
}

func (s *Store) hasVariant(productID int64, variantID string) bool {
	for _, p := range s.products {
		if p.Result.ID != productID {
			continue
		}
		for _, v := range p.Result.Variants {
			if v.ID == variantID {
				return true
			}
		}
	}
	return false
}

func (s *Store) assignAddresses(session string, id int64, patch storefront.AddressPatch) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Session != session {
		return nil, errNotFound
	}
	o.Addresses = &patch
	o.Status = "addressed"
	out := *o
	return &out, nil
}

func (s *Store) finalize(session string, id int64, payment storefront.CardPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Session != session {
		return errNotFound
	}
	if o.Addresses == nil {
		return errOrderPending
	}
	o.Payment = &payment
	o.Status = "submitted"
	return nil
}
