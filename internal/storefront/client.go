package storefront

//go:generate mockgen -source=client.go -destination=storefrontmock/client.go -package=storefrontmock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"example.com/restock/internal/country"
)

const maxBodyBytes = 4 << 20

// Catalog is the read side used by stock monitors.
type Catalog interface {
	FetchProduct(ctx context.Context, product string, ts time.Time) (*Product, error)
}

// Checkout is the session and order side used by purchase workers.
type Checkout interface {
	CurrentUser(ctx context.Context) error
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	AssignAddresses(ctx context.Context, orderID int64, patch AddressPatch) error
	FinalizeOrder(ctx context.Context, orderID int64, payment CardPayment) error
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: storefront returned %s", e.Op, e.Status)
}

// Headers is the request identity the client presents. It is supplied at
// construction so that no header literal lives in workflow code.
type Headers struct {
	UserAgent string
	Extra     map[string]string
}

// DefaultHeaders returns a plain desktop browser identity.
func DefaultHeaders() Headers {
	return Headers{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	}
}

// Options configures a Client.
type Options struct {
	Country country.Info
	// BaseURL overrides Country.BaseURL when set.
	BaseURL string
	Timeout time.Duration
	Headers Headers
}

// Client talks to the storefront API for one country. Each client owns its
// own cookie jar, so a purchase worker's session never leaks into another.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	country    country.Info
	headers    Headers
}

var (
	_ Catalog  = (*Client)(nil)
	_ Checkout = (*Client)(nil)
)

// NewClient configures a client with its own cookie jar.
func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = opts.Country.BaseURL
	}
	if raw == "" {
		return nil, errors.New("storefront base url required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse storefront base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		baseURL:    base,
		country:    opts.Country,
		headers:    opts.Headers,
	}, nil
}

// FetchProduct loads the catalog entry for product. ts is sent as a cache-busting query parameter.
func (c *Client) FetchProduct(ctx context.Context, product string, ts time.Time) (*Product, error) {
	query := make(url.Values)
	query.Set("ts", strconv.FormatInt(ts.UnixMilli(), 10))
	var out Product
	if err := c.do(ctx, "fetch product", http.MethodGet, "/api/products/"+product, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser establishes a session; the storefront sets its cookies on this call.
func (c *Client) CurrentUser(ctx context.Context) error {
	return c.do(ctx, "current user", http.MethodGet, "/api/users/me", nil, nil, nil)
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var out Order
	if err := c.do(ctx, "create order", http.MethodPost, "/api/checkout/v1/orders", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AssignAddresses(ctx context.Context, orderID int64, patch AddressPatch) error {
	var out Order
	path := "/api/checkout/v1/orders/" + strconv.FormatInt(orderID, 10)
	return c.do(ctx, "assign addresses", http.MethodPatch, path, nil, patch, &out)
}

// FinalizeOrder submits the card. The response body is not interpreted.
func (c *Client) FinalizeOrder(ctx context.Context, orderID int64, payment CardPayment) error {
	path := "/api/checkout/v1/orders/" + strconv.FormatInt(orderID, 10) + "/finalize"
	return c.do(ctx, "finalize order", http.MethodPost, path, nil, payment, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.decorate(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode body: %w", op, err)
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.headers.UserAgent != "" {
		req.Header.Set("User-Agent", c.headers.UserAgent)
	}
	if c.country.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", c.country.AcceptLanguage)
	}
	if c.country.Code != "" {
		req.Header.Set("FF-Country", string(c.country.Code))
	}
	if c.country.Currency != "" {
		req.Header.Set("FF-Currency", c.country.Currency)
	}
	for k, v := range c.headers.Extra {
		req.Header.Set(k, v)
	}
}
