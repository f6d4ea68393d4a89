package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vormiaphp/vormiaquery/internal/common"
)

// DefaultNamespace prefixes every key the library writes.
const DefaultNamespace = "vormia"

type Store interface {
	// Get returns common.ErrNotFound when key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, opts ...SetOption) error
	// Remove deletes key; removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Clear removes every key in namespace, or every key when namespace is
	// empty.
	Clear(ctx context.Context, namespace string) error
	Close() error
}

type setOptions struct {
	ttl time.Duration
}

type SetOption func(*setOptions)

// WithTTL expires the value after d. Zero or negative means no expiry.
func WithTTL(d time.Duration) SetOption {
	return func(o *setOptions) { o.ttl = d }
}

func applySetOptions(opts []SetOption) setOptions {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// expiresAt returns the absolute expiry for o, zero when none.
func (o setOptions) expiresAt(now time.Time) time.Time {
	if o.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(o.ttl)
}

// Key joins namespace and key with ":".
func Key(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

// namespacePrefix returns the key prefix Clear matches for namespace.
func namespacePrefix(namespace string) string {
	if namespace == "" {
		return ""
	}
	return strings.TrimSuffix(namespace, ":") + ":"
}

// GetJSON decodes the value stored under key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, opts ...SetOption) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, b, opts...)
}

// IsNotFound reports whether err is a Store miss.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
