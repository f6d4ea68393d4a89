package reactive

import (
	"context"
	"sync"

	"github.com/vormiaphp/vormiaquery/internal/client"
	"github.com/vormiaphp/vormiaquery/internal/reqerr"
)

type QueryOptions struct {
	Spec client.Spec
	// Enabled set to false skips the fetch at construction.
	Enabled   *bool
	OnSuccess func(*client.Envelope)
	OnError   func(*reqerr.RequestError)
}

type Query struct {
	m machine
	r Requester

	specMu sync.RWMutex
	spec   client.Spec
}

// NewQuery builds a query and, unless opts.Enabled is false, starts fetching
// in the background: the query is already Running when NewQuery returns.
func NewQuery(ctx context.Context, r Requester, opts QueryOptions) *Query {
	q := &Query{r: r, spec: opts.Spec.Clone()}
	q.m.onSuccess = opts.OnSuccess
	q.m.onError = opts.OnError

	if opts.Enabled == nil || *opts.Enabled {
		run := q.m.begin(ctx)
		spec := q.Spec()
		go func() {
			env, err := q.r.Request(run.ctx, spec)
			_, _ = q.m.complete(run, env, err)
		}()
	}
	return q
}

// Spec returns the stored request spec.
func (q *Query) Spec() client.Spec {
	q.specMu.RLock()
	defer q.specMu.RUnlock()
	return q.spec.Clone()
}

// Fetch applies opts to the stored spec, keeps the result for later
// refetches and runs it, cancelling any in-flight call.
func (q *Query) Fetch(ctx context.Context, opts ...client.RequestOption) (*client.Envelope, error) {
	q.specMu.Lock()
	q.spec = q.spec.Apply(opts...)
	spec := q.spec.Clone()
	q.specMu.Unlock()

	return q.do(ctx, spec)
}

// Refetch runs the stored spec; opts apply to this call only.
func (q *Query) Refetch(ctx context.Context, opts ...client.RequestOption) (*client.Envelope, error) {
	return q.do(ctx, q.Spec().Apply(opts...))
}

func (q *Query) do(ctx context.Context, spec client.Spec) (*client.Envelope, error) {
	run := q.m.begin(ctx)
	env, err := q.r.Request(run.ctx, spec)
	return q.m.complete(run, env, err)
}

// Cancel aborts the in-flight call and reports whether there was one.
func (q *Query) Cancel() bool { return q.m.cancelRunning() }

// Wait blocks until the query settles or ctx is done.
func (q *Query) Wait(ctx context.Context) (Snapshot, error) { return q.m.wait(ctx) }

// Subscribe calls fn on every state change and returns its unsubscribe
// func.
func (q *Query) Subscribe(fn func(Snapshot)) func() { return q.m.subscribe(fn) }

func (q *Query) Snapshot() Snapshot { return q.m.snapshot() }
func (q *Query) Status() Status { return q.Snapshot().Status }
func (q *Query) Data() *client.Envelope { return q.Snapshot().Data }
func (q *Query) Err() *reqerr.RequestError { return q.Snapshot().Err }
func (q *Query) IsLoading() bool { return q.Snapshot().IsLoading() }
func (q *Query) IsSuccess() bool { return q.Snapshot().IsSuccess() }
func (q *Query) IsError() bool { return q.Snapshot().IsError() }
