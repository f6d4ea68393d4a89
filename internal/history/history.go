// Package history keeps a capped list of recent searches in a Store.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vormiaphp/vormiaquery/internal/storage"
)

const DefaultLimit = 10

type Entry struct {
	Query string    `json:"query"`
	At    time.Time `json:"at"`
}

type History struct {
	store storage.Store
	key   string
	limit int
	now   func() time.Time
}

type Option func(*History)

func WithLimit(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.limit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// New returns a history stored under storage.Key(namespace, "search_history:"+name).
func New(store storage.Store, namespace, name string, opts ...Option) *History {
	h := &History{
		store: store,
		key:   storage.Key(namespace, "search_history:"+name),
		limit: DefaultLimit,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Add records query as the most recent entry. Blank queries are ignored and
// an earlier entry with the same query (case-insensitive) is replaced.
func (h *History) Add(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	entries, err := h.List(ctx)
	if err != nil {
		return err
	}
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, Entry{Query: query, At: h.now().UTC()})
	for _, e := range entries {
		if !strings.EqualFold(e.Query, query) {
			out = append(out, e)
		}
	}
	if len(out) > h.limit {
		out = out[:h.limit]
	}
	return h.save(ctx, out)
}

// List returns entries newest first.
func (h *History) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := storage.GetJSON(ctx, h.store, h.key, &entries)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load search history: %w", err)
	}
	return entries, nil
}

func (h *History) Queries(ctx context.Context) ([]string, error) {
	entries, err := h.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Query
	}
	return out, nil
}

func (h *History) Remove(ctx context.Context, query string) error {
	entries, err := h.List(ctx)
	if err != nil {
		return err
	}
	out := entries[:0]
	for _, e := range entries {
		if !strings.EqualFold(e.Query, query) {
			out = append(out, e)
		}
	}
	return h.save(ctx, out)
}

func (h *History) Clear(ctx context.Context) error {
	return h.store.Remove(ctx, h.key)
}

func (h *History) save(ctx context.Context, entries []Entry) error {
	if err := storage.SetJSON(ctx, h.store, h.key, entries); err != nil {
		return fmt.Errorf("save search history: %w", err)
	}
	return nil
}
