// Package provider holds the process-wide client used by reactive adapters
// that cannot receive one explicitly. The client is assigned once; Shutdown
// releases it and allows a new assignment.
package provider

import (
	"context"
	"sync"

	"github.com/vormiaphp/vormiaquery/internal/client"
	"github.com/vormiaphp/vormiaquery/internal/common"
	"github.com/vormiaphp/vormiaquery/internal/config"
	"github.com/vormiaphp/vormiaquery/internal/reactive"
)

var (
	mu     sync.RWMutex
	global *client.Client
)

// Init builds a client from cfg and installs it.
func Init(cfg *config.Config, opts ...client.Option) (*client.Client, error) {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		return nil, common.ErrAlreadyInitialized
	}
	c, err := client.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	global = c
	return c, nil
}

// Set installs an existing client.
func Set(c *client.Client) error {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		return common.ErrAlreadyInitialized
	}
	global = c
	return nil
}

// Client returns the installed client or common.ErrNotInitialized.
func Client() (*client.Client, error) {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return nil, common.ErrNotInitialized
	}
	return global, nil
}

// MustClient is Client for callers that treat a missing client as a
// programming error.
func MustClient() *client.Client {
	c, err := Client()
	if err != nil {
		panic(err)
	}
	return c
}

// Shutdown closes and removes the installed client. It is a no-op when none
// is installed.
func Shutdown() error {
	mu.Lock()
	c := global
	global = nil
	mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

// NewQuery builds a query bound to the installed client.
func NewQuery(ctx context.Context, opts reactive.QueryOptions) (*reactive.Query, error) {
	c, err := Client()
	if err != nil {
		return nil, err
	}
	return reactive.NewQuery(ctx, c, opts), nil
}

// NewMutation builds a mutation bound to the installed client.
func NewMutation(opts reactive.MutationOptions) (*reactive.Mutation, error) {
	c, err := Client()
	if err != nil {
		return nil, err
	}
	return reactive.NewMutation(c, opts), nil
}
