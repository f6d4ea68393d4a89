package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vormiaphp/vormiaquery/internal/common"
	"github.com/vormiaphp/vormiaquery/internal/config"
	"github.com/vormiaphp/vormiaquery/internal/cryptox"
	"github.com/vormiaphp/vormiaquery/internal/events"
	"github.com/vormiaphp/vormiaquery/internal/logging"
	"github.com/vormiaphp/vormiaquery/internal/reqerr"
	"github.com/vormiaphp/vormiaquery/internal/sensitive"
	"github.com/vormiaphp/vormiaquery/internal/storage"
	"github.com/vormiaphp/vormiaquery/internal/transport"
)

// Doer performs one HTTP exchange. *transport.Transport is the default.
type Doer interface {
	Do(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// UnauthorizedHandler is called after a 401 has cleared the stored token.
type UnauthorizedHandler func(ctx context.Context, err *reqerr.RequestError)

type Client struct {
	cfg    *config.Config
	doer   Doer
	http   *transport.Transport
	store  storage.Store
	logger logging.Logger
	bus    *events.Bus
	filter *sensitive.Filter
	cipher cryptox.Cipher

	onUnauthorized UnauthorizedHandler
	httpClient     *http.Client
}

type Option func(*Client)

// WithStore sets the backing store of the token slot. Defaults to a
// MemoryStore.
func WithStore(s storage.Store) Option {
	return func(c *Client) { c.store = s }
}

// WithTransport replaces the HTTP transport, mostly for tests.
func WithTransport(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithHTTPClient sets the *http.Client used by the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithEvents publishes client events (unauthorized) on bus.
func WithEvents(bus *events.Bus) Option {
	return func(c *Client) { c.bus = bus }
}

func WithUnauthorizedHandler(fn UnauthorizedHandler) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New validates cfg and builds a Client. cfg is copied.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg.Clone()}
	for _, opt := range opts {
		opt(c)
	}

	if c.cfg.FilterSensitiveData {
		c.filter = sensitive.NewFilter(c.cfg.SensitiveKeys...)
	}

	cipher, err := cryptox.NewPayloadCipher(c.cfg.PublicKey, c.cfg.PrivateKey, c.cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	c.cipher = cipher

	if c.store == nil {
		c.store = storage.NewMemoryStore()
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	if c.doer == nil {
		c.http = transport.New(
			transport.WithHTTPClient(c.httpClient),
			transport.WithFilter(c.filter),
			transport.WithProduction(c.cfg.IsProduction()),
			transport.WithDebugInfo(c.cfg.IncludeDebugInfo),
		)
		c.doer = c.http
	}
	return c, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() *config.Config {
	return c.cfg.Clone()
}

func (c *Client) Store() storage.Store { return c.store }

func (c *Client) Events() *events.Bus { return c.bus }

func (c *Client) Logger() logging.Logger { return c.logger }

// Cipher returns the payload cipher, nil when no key is configured.
func (c *Client) Cipher() cryptox.Cipher { return c.cipher }

// Filter returns the sensitive-data filter, nil when filtering is off.
func (c *Client) Filter() *sensitive.Filter { return c.filter }

func (c *Client) tokenKey() string {
	return storage.Key(storage.DefaultNamespace, c.cfg.AuthTokenKey)
}

// AuthToken returns the stored token, "" when there is none.
func (c *Client) AuthToken(ctx context.Context) (string, error) {
	b, err := c.store.Get(ctx, c.tokenKey())
	if errors.Is(err, common.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read auth token: %w", err)
	}
	return string(b), nil
}

// SetAuthToken stores token; an empty token removes it.
func (c *Client) SetAuthToken(ctx context.Context, token string) error {
	if token == "" {
		return c.RemoveAuthToken(ctx)
	}
	if err := c.store.Set(ctx, c.tokenKey(), []byte(token)); err != nil {
		return fmt.Errorf("store auth token: %w", err)
	}
	return nil
}

func (c *Client) RemoveAuthToken(ctx context.Context) error {
	if err := c.store.Remove(ctx, c.tokenKey()); err != nil {
		return fmt.Errorf("remove auth token: %w", err)
	}
	return nil
}

// Close releases idle connections and the store.
func (c *Client) Close() error {
	if c.http != nil {
		c.http.CloseIdleConnections()
	}
	return c.store.Close()
}
