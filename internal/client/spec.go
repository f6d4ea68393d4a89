package client

import (
	"net/http"
	"strings"
	"time"
)

// TransformFunc rewrites a decoded response body before it is returned.
type TransformFunc func(body any) (any, error)

// Spec describes a single call.
type Spec struct {
	Endpoint string
	Method   string
	// Params are the query string for GET and HEAD, and the body of other
	// methods when Data is nil.
	Params map[string]any
	Data   any
	// Headers override configuration headers; a nil value removes one.
	Headers map[string]any
	// WithCredentials overrides the configured value when non-nil.
	WithCredentials *bool
	// Timeout overrides the configured timeout when positive.
	Timeout   time.Duration
	Encrypt   bool
	Transform TransformFunc
}

var methods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodHead:    {},
	http.MethodOptions: {},
}

func normalizeMethod(m string) (string, bool) {
	if m == "" {
		return http.MethodGet, true
	}
	m = strings.ToUpper(m)
	_, ok := methods[m]
	return m, ok
}

// Clone returns a copy of s whose maps can be modified independently.
func (s Spec) Clone() Spec {
	cp := s
	if s.Params != nil {
		cp.Params = make(map[string]any, len(s.Params))
		for k, v := range s.Params {
			cp.Params[k] = v
		}
	}
	if s.Headers != nil {
		cp.Headers = make(map[string]any, len(s.Headers))
		for k, v := range s.Headers {
			cp.Headers[k] = v
		}
	}
	if s.WithCredentials != nil {
		v := *s.WithCredentials
		cp.WithCredentials = &v
	}
	return cp
}

// RequestOption adjusts a Spec.
type RequestOption func(*Spec)

// Apply returns a copy of s with opts applied.
func (s Spec) Apply(opts ...RequestOption) Spec {
	cp := s.Clone()
	for _, opt := range opts {
		opt(&cp)
	}
	return cp
}

func WithParams(params map[string]any) RequestOption {
	return func(s *Spec) {
		if s.Params == nil {
			s.Params = map[string]any{}
		}
		for k, v := range params {
			s.Params[k] = v
		}
	}
}

func WithParam(key string, value any) RequestOption {
	return WithParams(map[string]any{key: value})
}

func WithData(data any) RequestOption {
	return func(s *Spec) { s.Data = data }
}

func WithHeader(name string, value any) RequestOption {
	return WithHeaders(map[string]any{name: value})
}

func WithHeaders(headers map[string]any) RequestOption {
	return func(s *Spec) {
		if s.Headers == nil {
			s.Headers = map[string]any{}
		}
		for k, v := range headers {
			s.Headers[k] = v
		}
	}
}

func WithTimeout(d time.Duration) RequestOption {
	return func(s *Spec) { s.Timeout = d }
}

func WithEncryption(encrypt bool) RequestOption {
	return func(s *Spec) { s.Encrypt = encrypt }
}

func WithTransform(fn TransformFunc) RequestOption {
	return func(s *Spec) { s.Transform = fn }
}

func WithCredentials(include bool) RequestOption {
	return func(s *Spec) { s.WithCredentials = &include }
}
