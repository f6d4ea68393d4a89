package reactive

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vormiaphp/vormiaquery/internal/client"
	"github.com/vormiaphp/vormiaquery/internal/fielderrors"
	"github.com/vormiaphp/vormiaquery/internal/formx"
	"github.com/vormiaphp/vormiaquery/internal/reqerr"
)

type MutationOptions struct {
	// Spec is the request template; Method defaults to POST and Data is
	// replaced by the mutate input.
	Spec      client.Spec
	Transform formx.Spec
	Encrypt   bool

	// FieldErrors, when set, is cleared when a mutation starts and when it
	// succeeds, and receives the server validation errors on 422.
	FieldErrors  *fielderrors.Manager
	FieldMapping map[string]string

	OnSuccess func(*client.Envelope)
	OnError   func(*reqerr.RequestError)
}

type Mutation struct {
	m    machine
	r    Requester
	opts MutationOptions
}

func NewMutation(r Requester, opts MutationOptions) *Mutation {
	if opts.Spec.Method == "" {
		opts.Spec.Method = http.MethodPost
	}
	mu := &Mutation{r: r, opts: opts}
	mu.m.onSuccess = mu.succeeded
	mu.m.onError = mu.failed
	return mu
}

// Mutate starts the mutation in the background.
func (mu *Mutation) Mutate(ctx context.Context, input any) {
	run, spec := mu.start(ctx, input)
	go func() {
		env, err := mu.r.Request(run.ctx, spec)
		_, _ = mu.m.complete(run, env, err)
	}()
}

// MutateAsync runs the mutation and returns its outcome.
func (mu *Mutation) MutateAsync(ctx context.Context, input any) (*client.Envelope, error) {
	run, spec := mu.start(ctx, input)
	env, err := mu.r.Request(run.ctx, spec)
	return mu.m.complete(run, env, err)
}

func (mu *Mutation) start(ctx context.Context, input any) (run, client.Spec) {
	if mu.opts.FieldErrors != nil {
		mu.opts.FieldErrors.ClearAllFieldErrors()
	}
	spec := mu.opts.Spec.Clone()
	spec.Data = transformInput(input, mu.opts.Transform)
	if mu.opts.Encrypt {
		spec.Encrypt = true
	}
	return mu.m.begin(ctx), spec
}

func (mu *Mutation) succeeded(env *client.Envelope) {
	if mu.opts.FieldErrors != nil {
		mu.opts.FieldErrors.ClearAllFieldErrors()
	}
	if mu.opts.OnSuccess != nil {
		mu.opts.OnSuccess(env)
	}
}

func (mu *Mutation) failed(err *reqerr.RequestError) {
	if mu.opts.FieldErrors != nil {
		if v := err.ValidationErrors(); v != nil {
			mu.opts.FieldErrors.ApplyValidation(v, mu.opts.FieldMapping)
		}
	}
	if mu.opts.OnError != nil {
		mu.opts.OnError(err)
	}
}

func (mu *Mutation) Cancel() bool { return mu.m.cancelRunning() }

func (mu *Mutation) Wait(ctx context.Context) (Snapshot, error) { return mu.m.wait(ctx) }

func (mu *Mutation) Subscribe(fn func(Snapshot)) func() { return mu.m.subscribe(fn) }

func (mu *Mutation) Snapshot() Snapshot { return mu.m.snapshot() }
func (mu *Mutation) Status() Status { return mu.Snapshot().Status }
func (mu *Mutation) Data() *client.Envelope { return mu.Snapshot().Data }
func (mu *Mutation) Err() *reqerr.RequestError { return mu.Snapshot().Err }
func (mu *Mutation) IsLoading() bool { return mu.Snapshot().IsLoading() }
func (mu *Mutation) IsPending() bool { return mu.IsLoading() }
func (mu *Mutation) IsSuccess() bool { return mu.Snapshot().IsSuccess() }
func (mu *Mutation) IsError() bool { return mu.Snapshot().IsError() }

// transformInput applies spec to input. Structs and typed maps are turned
// into a generic map through JSON first; other values pass through.
func transformInput(input any, spec formx.Spec) any {
	if spec.IsZero() || input == nil {
		return input
	}
	if m, ok := input.(map[string]any); ok {
		return formx.Apply(m, spec)
	}
	b, err := json.Marshal(input)
	if err != nil {
		return input
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return input
	}
	return formx.Apply(m, spec)
}
