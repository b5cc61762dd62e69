package query

import (
	"context"
	"sync"
)

// MutationFunc performs a remote write.
type MutationFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// MutationOptions holds the callbacks run after a write settles.
type MutationOptions[In, Out any] struct {
	OnSuccess func(ctx context.Context, in In, out Out)
	OnError   func(ctx context.Context, in In, err error)
}

// MutationState is a snapshot of a Mutation.
type MutationState[Out any] struct {
	Pending bool
	Err     error
	Data    Out
}

// Mutation runs a write once per call, without retries, and remembers the
// outcome of the last call. Failures are logged by the owning client as
// "Mutation Error" before OnError runs.
type Mutation[In, Out any] struct {
	client *Client
	fn     MutationFunc[In, Out]
	opts   MutationOptions[In, Out]

	mu    sync.Mutex
	state MutationState[Out]
}

func NewMutation[In, Out any](c *Client, fn MutationFunc[In, Out], opts MutationOptions[In, Out]) *Mutation[In, Out] {
	return &Mutation[In, Out]{client: c, fn: fn, opts: opts}
}

// Mutate runs the write and returns its outcome.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	m.mu.Lock()
	m.state = MutationState[Out]{Pending: true}
	m.mu.Unlock()

	out, err := m.fn(ctx, in)

	m.mu.Lock()
	m.state = MutationState[Out]{Err: err}
	if err == nil {
		m.state.Data = out
	}
	m.mu.Unlock()

	if err != nil {
		if m.client != nil {
			m.client.cache.logger.Error("Mutation Error", "error", err)
		}
		if m.opts.OnError != nil {
			m.opts.OnError(ctx, in, err)
		}
		var zero Out
		return zero, err
	}

	if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(ctx, in, out)
	}
	return out, nil
}

func (m *Mutation[In, Out]) State() MutationState[Out] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset forgets the last outcome.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = MutationState[Out]{}
}
