package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vormiaphp/vormiaquery/internal/common"
	"github.com/vormiaphp/vormiaquery/internal/events"
	"github.com/vormiaphp/vormiaquery/internal/reqerr"
	"github.com/vormiaphp/vormiaquery/internal/transport"
)

// Request runs spec through the pipeline. The returned error is always a
// *reqerr.RequestError.
func (c *Client) Request(ctx context.Context, spec Spec) (*Envelope, error) {
	method, ok := normalizeMethod(spec.Method)
	if !ok {
		return nil, reqerr.New(reqerr.CodeUnknown, 0, fmt.Sprintf("unsupported method %q", spec.Method))
	}

	req, err := c.prepare(ctx, method, spec)
	if err != nil {
		return nil, err
	}

	resp, err := c.doer.Do(ctx, req)
	c.logExchange(ctx, req, resp, err)
	if err != nil {
		re := c.asRequestError(err)
		if re.IsUnauthenticated() {
			c.handleUnauthorized(ctx, re)
		}
		return nil, re
	}

	original := resp.Body
	body := original
	if spec.Encrypt {
		body, err = c.decryptBody(body, resp.Status)
		if err != nil {
			return nil, err
		}
	}

	if spec.Transform != nil {
		body, err = spec.Transform(copyValue(body))
		if err != nil {
			return nil, reqerr.New(reqerr.CodeUnknown, resp.Status,
				fmt.Sprintf("transform response: %v", err), reqerr.WithCause(err))
		}
	}

	return &Envelope{
		Data:         body,
		Status:       resp.Status,
		StatusText:   resp.StatusText,
		Headers:      resp.Headers,
		Success:      transport.IsSuccessStatus(resp.Status),
		Timestamp:    time.Now().UTC(),
		OriginalData: original,
	}, nil
}

func (c *Client) prepare(ctx context.Context, method string, spec Spec) (*transport.Request, error) {
	var query map[string]any
	body := spec.Data
	if !transport.HasBody(method) {
		query = spec.Params
		body = nil
	} else if body == nil && len(spec.Params) > 0 {
		body = spec.Params
	}

	u, err := transport.BuildURL(c.cfg.BaseURL, spec.Endpoint, query)
	if err != nil {
		return nil, reqerr.New(reqerr.CodeUnknown, 0, err.Error(), reqerr.WithCause(err))
	}

	headers := transport.MergeHeaders(
		transport.DefaultHeaders(),
		transport.StringHeaders(c.cfg.Headers),
		spec.Headers,
	)
	if _, set := headers[common.AuthorizationHeaderName]; !set {
		token, err := c.AuthToken(ctx)
		if err != nil {
			return nil, reqerr.New(reqerr.CodeUnknown, 0, err.Error(), reqerr.WithCause(err))
		}
		if token != "" {
			headers[common.AuthorizationHeaderName] = "Bearer " + token
		}
	}

	if spec.Encrypt && spec.Data != nil && transport.HasBody(method) {
		body, err = c.encryptBody(spec.Data)
		if err != nil {
			return nil, err
		}
	}

	withCredentials := c.cfg.WithCredentials
	if spec.WithCredentials != nil {
		withCredentials = *spec.WithCredentials
	}
	timeout := c.cfg.Timeout
	if spec.Timeout > 0 {
		timeout = spec.Timeout
	}

	return &transport.Request{
		Method:          method,
		URL:             u,
		Headers:         headers,
		Body:            body,
		WithCredentials: withCredentials,
		Timeout:         timeout,
	}, nil
}

func (c *Client) encryptBody(data any) (map[string]any, error) {
	if c.cipher == nil {
		return nil, reqerr.New(reqerr.CodeUnknown, 0, common.ErrNoEncryptionKey.Error(),
			reqerr.WithCause(common.ErrNoEncryptionKey))
	}
	plain, err := json.Marshal(data)
	if err != nil {
		return nil, reqerr.New(reqerr.CodeUnknown, 0, fmt.Sprintf("encode request body: %v", err), reqerr.WithCause(err))
	}
	ct, err := c.cipher.Encrypt(plain)
	if err != nil {
		return nil, reqerr.New(reqerr.CodeUnknown, 0, fmt.Sprintf("encrypt request body: %v", err), reqerr.WithCause(err))
	}
	return map[string]any{common.EncryptedField: ct}, nil
}

// encryptedPayload returns the ciphertext of an {"encrypted": "..."} body.
func encryptedPayload(body any) (string, bool) {
	m, ok := body.(map[string]any)
	if !ok {
		return "", false
	}
	ct, ok := m[common.EncryptedField].(string)
	return ct, ok
}

func (c *Client) decryptBody(body any, status int) (any, error) {
	ct, ok := encryptedPayload(body)
	if !ok {
		return body, nil
	}
	if c.cipher == nil {
		return nil, reqerr.InvalidJSON(status, common.ErrNoEncryptionKey)
	}
	plain, err := c.cipher.Decrypt(ct)
	if err != nil {
		return nil, reqerr.InvalidJSON(status, fmt.Errorf("decrypt response: %w", err))
	}
	v, err := transport.DecodeJSON(plain)
	if err != nil {
		return nil, reqerr.InvalidJSON(status, fmt.Errorf("decode decrypted response: %w", err))
	}
	return v, nil
}

func (c *Client) handleUnauthorized(ctx context.Context, re *reqerr.RequestError) {
	if err := c.RemoveAuthToken(ctx); err != nil {
		c.logger.Error(ctx, "clear auth token", "error", err)
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx, re)
	}
	c.bus.Emit(ctx, events.Unauthorized, re)
}

func (c *Client) asRequestError(err error) *reqerr.RequestError {
	if re, ok := reqerr.As(err); ok {
		return re
	}
	return reqerr.Network("", err)
}

func (c *Client) logExchange(ctx context.Context, req *transport.Request, resp *transport.Response, err error) {
	path := req.URL
	if u, perr := url.Parse(req.URL); perr == nil {
		path = u.Path
	}

	args := []any{"method", req.Method, "path", path}
	if resp != nil {
		args = append(args, "status", resp.Status, "duration", resp.Duration)
	}

	re, _ := reqerr.As(err)
	switch {
	case re == nil:
		c.logger.Debug(ctx, "request finished", args...)
	case re.IsTimeout():
		c.logger.Warn(ctx, "request timed out", args...)
	case re.Status == http.StatusUnauthorized:
		c.logger.Warn(ctx, "request unauthenticated", args...)
	default:
		c.logger.Debug(ctx, "request failed", append(args, "code", string(re.Code))...)
	}
}

// copyValue deep-copies decoded JSON so that a transform editing its input
// leaves OriginalData intact.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
