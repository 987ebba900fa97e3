package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/entgraph/internal/graph"
	"github.com/roach88/entgraph/internal/querysql"
	"github.com/roach88/entgraph/internal/queryir"
	"github.com/roach88/entgraph/internal/search"
	"github.com/roach88/entgraph/internal/store"
)

// Actor is the single writer of one namespace.
//
// The actor owns the namespace's store. Callers submit closures with Do;
// the Run goroutine executes them one at a time in FIFO order, so store
// operations never overlap and each one is an atomic unit.
//
// Thread-safety model:
//   - Do() and the typed operations: safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Actor struct {
	name      string
	store     *store.Store
	compiler  *querysql.SQLCompiler
	traverser *graph.Traverser
	searcher  *search.Searcher
	policy    queryir.FieldPolicy
	logger    *slog.Logger

	queue     *taskQueue
	processed atomic.Int64
	stopped   chan struct{}
}

// ActorOption configures an Actor.
type ActorOption func(*Actor)

// WithFieldPolicy sets how query requests with invalid field names are handled.
func WithFieldPolicy(p queryir.FieldPolicy) ActorOption {
	return func(a *Actor) { a.policy = p }
}

// WithSearchOptions configures the actor's searcher.
func WithSearchOptions(opts ...search.Option) ActorOption {
	return func(a *Actor) { a.searcher = search.NewSearcher(a.store, opts...) }
}

// WithTraverseOptions configures the actor's traverser.
func WithTraverseOptions(opts ...graph.Option) ActorOption {
	return func(a *Actor) { a.traverser = graph.NewTraverser(a.store, opts...) }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) ActorOption {
	return func(a *Actor) { a.logger = l }
}

// NewActor creates an actor owning s. The store must already be open, which
// guarantees its schema exists before any task runs.
func NewActor(name string, s *store.Store, opts ...ActorOption) *Actor {
	a := &Actor{
		name:      name,
		store:     s,
		compiler:  querysql.NewSQLCompiler(),
		traverser: graph.NewTraverser(s),
		searcher:  search.NewSearcher(s),
		policy:    queryir.PolicyDrop,
		logger:    slog.Default(),
		queue:     newTaskQueue(),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("namespace", name)
	return a
}

// Name returns the namespace the actor serves.
func (a *Actor) Name() string {
	return a.name
}

// Processed returns the number of tasks the actor has run.
func (a *Actor) Processed() int64 {
	return a.processed.Load()
}

// Run processes tasks until ctx is cancelled or Stop is called.
//
// After Stop, tasks already queued still run before Run returns. After ctx
// cancellation, queued tasks fail with ErrClosed.
func (a *Actor) Run(ctx context.Context) error {
	defer close(a.stopped)
	a.logger.Debug("actor starting")

	for {
		if t, ok := a.queue.TryDequeue(); ok {
			a.execute(t)
			continue
		}

		select {
		case <-ctx.Done():
			a.logger.Debug("actor stopping: context cancelled")
			a.queue.Close()
			a.failPending()
			return ctx.Err()

		case <-a.queue.Wait():
			// The signal channel is closed once the queue is closed, so
			// this case fires repeatedly until the queue drains.
			if a.queue.Drained() {
				a.logger.Debug("actor stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once queued tasks have run.
func (a *Actor) Stop() {
	a.queue.Close()
}

// Done is closed when Run has returned.
func (a *Actor) Done() <-chan struct{} {
	return a.stopped
}

// Do runs fn on the actor goroutine and returns its error.
//
// If ctx is cancelled while waiting, Do returns ctx.Err(); fn is then
// skipped if it has not started yet.
func (a *Actor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTask(ctx, fn)
	if !a.queue.Enqueue(t) {
		return ErrClosed
	}
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute runs one task. Called only from the Run goroutine.
func (a *Actor) execute(t task) {
	if err := t.ctx.Err(); err != nil {
		t.done <- err
		return
	}
	seq := a.processed.Add(1)

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("task panicked", "seq", seq, "panic", r)
			t.done <- fmt.Errorf("task panicked: %v", r)
		}
	}()
	t.done <- t.run(t.ctx)
}

func (a *Actor) failPending() {
	for {
		t, ok := a.queue.TryDequeue()
		if !ok {
			return
		}
		t.done <- ErrClosed
	}
}

// call runs fn on a's goroutine and returns its value, wrapping any error
// in an *OpError.
func call[T any](ctx context.Context, a *Actor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := a.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, &OpError{Namespace: a.name, Op: op, Err: err}
	}
	return out, nil
}
