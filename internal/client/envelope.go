package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmespath/go-jmespath"
)

// Envelope is the result of a successful call.
type Envelope struct {
	Data       any               `json:"data"`
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Success    bool              `json:"success"`
	Timestamp  time.Time         `json:"timestamp"`
	// OriginalData is the body as received, before decryption and
	// transform.
	OriginalData any `json:"originalData"`
}

// Decode converts Data into v through JSON.
func (e *Envelope) Decode(v any) error {
	b, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encode envelope data: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode envelope data: %w", err)
	}
	return nil
}

// Query evaluates a JMESPath expression against Data.
func (e *Envelope) Query(expr string) (any, error) {
	return Search(expr, e.Data)
}

// Search evaluates a JMESPath expression against v. v is first brought
// to its generic JSON form, where every number is a float64, since
// jmespath only compares float64 numbers.
func Search(expr string, v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode query input: %w", err)
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, fmt.Errorf("decode query input: %w", err)
	}
	out, err := jmespath.Search(expr, generic)
	if err != nil {
		return nil, fmt.Errorf("jmespath %q: %w", expr, err)
	}
	return out, nil
}

// Items returns Data.response or Data.data when it is a list, or Data
// itself when Data is a list.
func (e *Envelope) Items() []any {
	switch t := e.Data.(type) {
	case []any:
		return t
	case map[string]any:
		for _, k := range []string{"response", "data"} {
			if items, ok := t[k].([]any); ok {
				return items
			}
		}
	}
	return nil
}
