package reqerr

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

func (e *RequestError) IsNetworkError() bool {
	return e.Code == CodeNetwork
}

func (e *RequestError) IsServerError() bool {
	return e.Status >= 500
}

func (e *RequestError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

func (e *RequestError) IsUnauthenticated() bool {
	return e.Status == http.StatusUnauthorized
}

func (e *RequestError) IsUnauthorized() bool {
	return e.Status == http.StatusForbidden
}

func (e *RequestError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

func (e *RequestError) IsValidationError() bool {
	return e.Status == http.StatusUnprocessableEntity
}

// IsDatabaseError reports whether the message carries a SQL-state marker.
func (e *RequestError) IsDatabaseError() bool {
	return strings.Contains(strings.ToUpper(e.Message), "SQLSTATE")
}

func (e *RequestError) IsCancelled() bool {
	return errors.Is(e.cause, ErrCancelled)
}

func (e *RequestError) IsTimeout() bool {
	return errors.Is(e.cause, context.DeadlineExceeded)
}

// ValidationErrors returns field → messages for a 422 response and nil for
// anything else. A single string value is treated as a one-message list.
func (e *RequestError) ValidationErrors() map[string][]string {
	if !e.IsValidationError() {
		return nil
	}
	table := e.validation
	if table == nil {
		table = parseValidation(e.Data)
	}
	out := make(map[string][]string, len(table))
	for field, msgs := range table {
		out[field] = append([]string(nil), msgs...)
	}
	return out
}

func parseValidation(data any) map[string][]string {
	body, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := body["errors"].(map[string]any)
	if !ok {
		return nil
	}

	out := make(map[string][]string, len(raw))
	for field, v := range raw {
		switch msgs := v.(type) {
		case string:
			out[field] = []string{msgs}
		case []string:
			out[field] = append([]string(nil), msgs...)
		case []any:
			list := make([]string, 0, len(msgs))
			for _, m := range msgs {
				if s, ok := m.(string); ok {
					list = append(list, s)
				}
			}
			out[field] = list
		}
	}
	return out
}
