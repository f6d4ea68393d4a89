package reactive

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vormiaphp/vormiaquery/internal/client"
	"github.com/vormiaphp/vormiaquery/internal/reqerr"
)

// Requester runs a request spec; *client.Client satisfies it.
type Requester interface {
	Request(ctx context.Context, spec client.Spec) (*client.Envelope, error)
}

type Status int

const (
	Idle Status = iota
	Running
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return "unknown"
}

// Snapshot is a consistent view of an instance.
type Snapshot struct {
	Status    Status
	Data      *client.Envelope
	Err       *reqerr.RequestError
	UpdatedAt time.Time
}

func (s Snapshot) IsLoading() bool { return s.Status == Running }
func (s Snapshot) IsSuccess() bool { return s.Status == Success }
func (s Snapshot) IsError() bool { return s.Status == Error }

// machine is the state shared by Query and Mutation.
type machine struct {
	mu        sync.Mutex
	snap      Snapshot
	gen       uint64
	cancel    context.CancelFunc
	done      chan struct{} // open iff snap.Status == Running
	subs      map[int]func(Snapshot)
	nextSubID int

	// pending holds snapshots in the order their transitions happened;
	// one goroutine at a time drains it to the subscribers.
	pending  []Snapshot
	flushing bool

	onSuccess func(*client.Envelope)
	onError   func(*reqerr.RequestError)
}

type run struct {
	gen uint64
	ctx context.Context
}

// begin supersedes any running invocation and moves to Running.
func (m *machine) begin(ctx context.Context) run {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	if m.done != nil {
		close(m.done)
	}
	m.gen++
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.snap.Status = Running
	m.snap.UpdatedAt = time.Now()
	m.pending = append(m.pending, m.snap)
	r := run{gen: m.gen, ctx: runCtx}
	m.mu.Unlock()

	m.flush()
	return r
}

// complete records the outcome of r unless it was superseded.
func (m *machine) complete(r run, env *client.Envelope, err error) (*client.Envelope, error) {
	m.mu.Lock()
	if r.gen != m.gen || m.snap.Status != Running {
		m.mu.Unlock()
		return nil, reqerr.Cancelled()
	}

	m.cancel()
	m.cancel = nil
	close(m.done)
	m.done = nil

	var re *reqerr.RequestError
	if err != nil {
		re = toRequestError(err)
		m.snap.Status = Error
		m.snap.Err = re
	} else {
		m.snap.Status = Success
		m.snap.Data = env
		m.snap.Err = nil
	}
	m.snap.UpdatedAt = time.Now()
	m.pending = append(m.pending, m.snap)
	onSuccess, onError := m.onSuccess, m.onError
	m.mu.Unlock()

	m.flush()

	if re != nil {
		if !re.IsCancelled() && onError != nil {
			onError(re)
		}
		return nil, re
	}
	if onSuccess != nil {
		onSuccess(env)
	}
	return env, nil
}

// cancelRunning aborts the in-flight invocation, if any.
func (m *machine) cancelRunning() bool {
	m.mu.Lock()
	if m.snap.Status != Running {
		m.mu.Unlock()
		return false
	}
	m.gen++
	m.cancel()
	m.cancel = nil
	close(m.done)
	m.done = nil
	m.snap.Status = Error
	m.snap.Err = reqerr.Cancelled()
	m.snap.UpdatedAt = time.Now()
	m.pending = append(m.pending, m.snap)
	m.mu.Unlock()

	m.flush()
	return true
}

func (m *machine) snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// wait blocks until the instance is no longer Running.
func (m *machine) wait(ctx context.Context) (Snapshot, error) {
	for {
		m.mu.Lock()
		if m.snap.Status != Running {
			snap := m.snap
			m.mu.Unlock()
			return snap, nil
		}
		done := m.done
		m.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return m.snapshot(), ctx.Err()
		}
	}
}

func (m *machine) subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = map[int]func(Snapshot){}
	}
	m.nextSubID++
	id := m.nextSubID
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// flush delivers pending snapshots in order. If another goroutine is
// already delivering, it picks up what was queued here and flush returns
// at once; a subscriber may therefore start a new run without deadlock.
func (m *machine) flush() {
	m.mu.Lock()
	if m.flushing {
		m.mu.Unlock()
		return
	}
	m.flushing = true
	for len(m.pending) > 0 {
		snap := m.pending[0]
		m.pending = m.pending[1:]
		fns := m.subscribersLocked()
		m.mu.Unlock()

		for _, fn := range fns {
			fn(snap)
		}

		m.mu.Lock()
	}
	m.pending = nil
	m.flushing = false
	m.mu.Unlock()
}

func (m *machine) subscribersLocked() []func(Snapshot) {
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), len(ids))
	for i, id := range ids {
		fns[i] = m.subs[id]
	}
	return fns
}

func toRequestError(err error) *reqerr.RequestError {
	if re, ok := reqerr.As(err); ok {
		return re
	}
	if errors.Is(err, context.Canceled) {
		return reqerr.Cancelled(reqerr.WithCause(err))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return reqerr.Timeout()
	}
	return reqerr.New(reqerr.CodeUnknown, 0, err.Error(), reqerr.WithCause(err))
}
