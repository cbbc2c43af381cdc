package recognition

import (
	"context"
	"sync"
	"time"
)

// flight is the context a shared chain run executes under. It is cancelled
// only once every caller waiting on the run has been cancelled, so one
// caller giving up does not fail the others.
type flight struct {
	values context.Context

	mu      sync.Mutex
	waiters []context.Context
	done    chan struct{}
	closed  bool
}

func newFlight(ctx context.Context) *flight {
	return &flight{
		values:  ctx,
		waiters: []context.Context{ctx},
		done:    make(chan struct{}),
	}
}

// add registers another waiter. It reports false when the flight has
// already been cancelled.
func (f *flight) add(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.waiters = append(f.waiters, ctx)
	return true
}

func (f *flight) Deadline() (time.Time, bool) { return time.Time{}, false }

func (f *flight) Done() <-chan struct{} { return f.done }

func (f *flight) Value(key interface{}) interface{} { return f.values.Value(key) }

func (f *flight) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return context.Canceled
	}
	for _, w := range f.waiters {
		if w.Err() == nil {
			return nil
		}
	}
	f.closed = true
	close(f.done)
	return context.Canceled
}

func (p *Pipeline) join(ctx context.Context, digest string) *flight {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.flights[digest]; ok && f.add(ctx) {
		return f
	}
	f := newFlight(ctx)
	p.flights[digest] = f
	return f
}

func (p *Pipeline) forget(digest string, f *flight) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.flights[digest] == f {
		delete(p.flights, digest)
	}
}
