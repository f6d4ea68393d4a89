package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/vormiaphp/vormiaquery/internal/reqerr"
	"github.com/vormiaphp/vormiaquery/internal/sensitive"
)

// NoContentMessage is the message of the normalized 204 body.
const NoContentMessage = "No content found"

type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// Body is JSON-encoded for methods that carry one. A json.RawMessage is
	// sent as is.
	Body            any
	WithCredentials bool
	Timeout         time.Duration
}

type Response struct {
	Status     int
	StatusText string
	Headers    map[string]string
	// Body is the decoded JSON body, nil for an empty 2xx body.
	Body     any
	Raw      []byte
	Duration time.Duration
}

// Success reports whether the status is 2xx.
func (r *Response) Success() bool {
	return IsSuccessStatus(r.Status)
}

type Transport struct {
	client       *http.Client
	jar          http.CookieJar
	filter       *sensitive.Filter
	production   bool
	includeDebug bool
}

type Option func(*Transport)

// WithHTTPClient replaces the underlying client. Its Jar is ignored; cookies
// are only sent when a request asks for credentials.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		if c != nil {
			cp := *c
			cp.Jar = nil
			t.client = &cp
		}
	}
}

func WithCookieJar(jar http.CookieJar) Option {
	return func(t *Transport) { t.jar = jar }
}

// WithFilter sets the filter applied to error bodies.
func WithFilter(f *sensitive.Filter) Option {
	return func(t *Transport) { t.filter = f }
}

func WithProduction(production bool) Option {
	return func(t *Transport) { t.production = production }
}

// WithDebugInfo controls whether server debug details are kept on errors.
func WithDebugInfo(include bool) Option {
	return func(t *Transport) { t.includeDebug = include }
}

func New(opts ...Option) *Transport {
	jar, _ := cookiejar.New(nil)
	t := &Transport{
		client:       &http.Client{},
		jar:          jar,
		includeDebug: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HasBody reports whether requests with method carry a body.
func HasBody(method string) bool {
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodHead:
		return false
	}
	return true
}

// Do performs req. A non-nil error is always a *reqerr.RequestError; the
// Response is returned alongside it when one was received.
func (t *Transport) Do(ctx context.Context, req *Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if HasBody(method) && req.Body != nil {
		payload, err := encodeBody(req.Body)
		if err != nil {
			return nil, reqerr.New(reqerr.CodeUnknown, 0, fmt.Sprintf("encode request body: %v", err), reqerr.WithCause(err))
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, method, req.URL, bodyReader)
	if err != nil {
		return nil, reqerr.Network(fmt.Sprintf("failed to create request: %v", err), err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if req.WithCredentials && t.jar != nil {
		for _, c := range t.jar.Cookies(httpReq.URL) {
			httpReq.AddCookie(c)
		}
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, t.classify(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	if req.WithCredentials && t.jar != nil {
		t.jar.SetCookies(httpReq.URL, resp.Cookies())
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.classify(ctx, reqCtx, err)
	}

	out := &Response{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Headers:    flattenHeaders(resp.Header),
		Raw:        raw,
		Duration:   time.Since(start),
	}

	if resp.StatusCode == http.StatusNoContent {
		out.Body = map[string]any{
			"response": []any{},
			"message":  NoContentMessage,
		}
		return out, nil
	}

	body, decodeErr := DecodeJSON(raw)

	if !out.Success() {
		if decodeErr != nil {
			body = string(raw)
		}
		out.Body = body
		return out, reqerr.FromResponse(out.Status, out.StatusText, body, t.errorOptions()...)
	}

	if decodeErr != nil {
		return out, reqerr.InvalidJSON(out.Status, decodeErr)
	}
	out.Body = body
	return out, nil
}

// CloseIdleConnections releases pooled connections.
func (t *Transport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

func (t *Transport) errorOptions() []reqerr.Option {
	opts := []reqerr.Option{
		reqerr.WithFilter(t.filter),
		reqerr.WithProduction(t.production),
	}
	if !t.includeDebug {
		opts = append(opts, reqerr.WithDebug(nil))
	}
	return opts
}

func (t *Transport) classify(parent, reqCtx context.Context, err error) *reqerr.RequestError {
	switch {
	case parent.Err() != nil && errors.Is(parent.Err(), context.DeadlineExceeded):
		return reqerr.Timeout()
	case parent.Err() != nil:
		return reqerr.Cancelled()
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		return reqerr.Timeout()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return reqerr.Timeout()
	}
	return reqerr.Network(networkMessage(err), err)
}

func networkMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return fmt.Sprintf("Network error: %v", err)
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	}
	return json.Marshal(body)
}

// DecodeJSON decodes a single JSON value. Whitespace-only input decodes to
// nil. Integral numbers become int64.
func DecodeJSON(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON value")
	}
	return normalizeNumbers(v), nil
}

// normalizeNumbers turns json.Number into int64 when integral, float64
// otherwise, so ids survive without float rounding.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	default:
		return v
	}
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, values := range h {
		out[k] = strings.Join(values, ", ")
	}
	return out
}

func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
