package client

import (
	"context"
	"net/http"
)

func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*Envelope, error) {
	return c.Request(ctx, Spec{Endpoint: endpoint, Method: http.MethodGet}.Apply(opts...))
}

func (c *Client) Post(ctx context.Context, endpoint string, data any, opts ...RequestOption) (*Envelope, error) {
	return c.Request(ctx, Spec{Endpoint: endpoint, Method: http.MethodPost, Data: data}.Apply(opts...))
}

func (c *Client) Put(ctx context.Context, endpoint string, data any, opts ...RequestOption) (*Envelope, error) {
	return c.Request(ctx, Spec{Endpoint: endpoint, Method: http.MethodPut, Data: data}.Apply(opts...))
}

func (c *Client) Patch(ctx context.Context, endpoint string, data any, opts ...RequestOption) (*Envelope, error) {
	return c.Request(ctx, Spec{Endpoint: endpoint, Method: http.MethodPatch, Data: data}.Apply(opts...))
}

func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (*Envelope, error) {
	return c.Request(ctx, Spec{Endpoint: endpoint, Method: http.MethodDelete}.Apply(opts...))
}

func (c *Client) Head(ctx context.Context, endpoint string, opts ...RequestOption) (*Envelope, error) {
	return c.Request(ctx, Spec{Endpoint: endpoint, Method: http.MethodHead}.Apply(opts...))
}

func (c *Client) Options(ctx context.Context, endpoint string, opts ...RequestOption) (*Envelope, error) {
	return c.Request(ctx, Spec{Endpoint: endpoint, Method: http.MethodOptions}.Apply(opts...))
}
