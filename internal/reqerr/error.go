package reqerr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vormiaphp/vormiaquery/internal/sensitive"
)

type Code string

const (
	CodeNetwork     Code = "NETWORK_ERROR"
	CodeInvalidJSON Code = "INVALID_JSON"
	CodeHTTP        Code = "HTTP_ERROR"
	CodeUnknown     Code = "UNKNOWN_ERROR"
)

const (
	MsgCancelled = "Request was cancelled"
	MsgTimeout   = "Request timed out"
)

// ErrCancelled is the cause of every cancellation error.
var ErrCancelled = errors.New("request cancelled")

// RequestError is the structured failure of one API call.
type RequestError struct {
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Code      Code      `json:"code"`
	Data      any       `json:"data,omitempty"`
	Debug     any       `json:"debug,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	cause      error
	production bool
	filter     *sensitive.Filter
	// validation is read from Data before filtering, so fields such as
	// password keep their messages.
	validation map[string][]string
}

type Option func(*RequestError)

func WithData(data any) Option {
	return func(e *RequestError) { e.Data = data }
}

func WithDebug(debug any) Option {
	return func(e *RequestError) { e.Debug = debug }
}

func WithCause(err error) Option {
	return func(e *RequestError) { e.cause = err }
}

// WithFilter strips sensitive keys from Data and Debug once all options are
// applied.
func WithFilter(f *sensitive.Filter) Option {
	return func(e *RequestError) { e.filter = f }
}

// WithProduction switches UserMessage to the production wording.
func WithProduction(production bool) Option {
	return func(e *RequestError) { e.production = production }
}

func New(code Code, status int, msg string, opts ...Option) *RequestError {
	e := &RequestError{
		Message:   msg,
		Status:    status,
		Code:      code,
		Timestamp: time.Now().UTC(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.validation = parseValidation(e.Data)
	if e.filter != nil {
		e.Data = e.filter.Apply(e.Data)
		e.Debug = e.filter.Apply(e.Debug)
	}
	if e.Debug != nil {
		e.Debug = sensitive.TrimPaths(e.Debug)
	}
	return e
}

func Network(msg string, cause error, opts ...Option) *RequestError {
	if msg == "" {
		msg = "Network error"
	}
	return New(CodeNetwork, 0, msg, append(opts, WithCause(cause))...)
}

func Timeout(opts ...Option) *RequestError {
	return New(CodeNetwork, 0, MsgTimeout, append(opts, WithCause(context.DeadlineExceeded))...)
}

func Cancelled(opts ...Option) *RequestError {
	return New(CodeUnknown, 0, MsgCancelled, append(opts, WithCause(ErrCancelled))...)
}

func InvalidJSON(status int, cause error, opts ...Option) *RequestError {
	msg := "Invalid JSON response"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return New(CodeInvalidJSON, status, msg, append(opts, WithCause(cause))...)
}

// FromResponse builds the error for a non-2xx response whose body decoded to
// body. The message comes from body.message, then body.error, then the
// status text.
func FromResponse(status int, statusText string, body any, opts ...Option) *RequestError {
	msg := messageFrom(body)
	if msg == "" {
		msg = statusText
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}

	all := make([]Option, 0, len(opts)+2)
	all = append(all, WithData(body), WithDebug(debugFrom(body)))
	all = append(all, opts...)
	return New(CodeHTTP, status, msg, all...)
}

// As unwraps err into a *RequestError.
func As(err error) (*RequestError, bool) {
	var e *RequestError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status=%d, code=%s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (code=%s)", e.Message, e.Code)
}

func (e *RequestError) Unwrap() error { return e.cause }

// Is lets errors.Is(err, reqerr.ErrCancelled) and context errors match.
func (e *RequestError) Is(target error) bool {
	return e.cause != nil && errors.Is(e.cause, target)
}

func (e *RequestError) MarshalJSON() ([]byte, error) {
	type view RequestError
	return json.Marshal((*view)(e))
}

func messageFrom(body any) string {
	m, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	for _, k := range []string{"message", "error"} {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// debugKeys are the diagnostic fields frameworks attach to error bodies.
var debugKeys = []string{"debug", "exception", "file", "line", "trace"}

func debugFrom(body any) any {
	m, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	out := map[string]any{}
	for _, k := range debugKeys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
