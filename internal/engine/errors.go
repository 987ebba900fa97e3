package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/entgraph/internal/graph"
	"github.com/roach88/entgraph/internal/queryir"
	"github.com/roach88/entgraph/internal/search"
	"github.com/roach88/entgraph/internal/store"
)

var (
	// ErrInvalidNamespace is returned for namespace names outside
	// [A-Za-z0-9_-]{1,64}.
	ErrInvalidNamespace = errors.New("invalid namespace name")

	// ErrClosed is returned for work submitted to a stopped actor.
	ErrClosed = errors.New("namespace actor closed")
)

// OpError records the namespace and operation of a failed call.
//
// OpError wraps the underlying error, so errors.Is and errors.As see
// through it to store, queryir, graph and search errors.
type OpError struct {
	Namespace string
	Op        string
	Err       error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Namespace, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the addressed record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// IsConflict reports whether err means an explicit id is already taken.
func IsConflict(err error) bool {
	return errors.Is(err, store.ErrConflict)
}

// IsInvalidRequest reports whether err was caused by the caller's input
// rather than by storage.
func IsInvalidRequest(err error) bool {
	var (
		fe *queryir.FieldError
		he *graph.HopLimitError
	)
	switch {
	case errors.As(err, &fe), errors.As(err, &he):
		return true
	case errors.Is(err, ErrInvalidNamespace),
		errors.Is(err, queryir.ErrMissingType),
		errors.Is(err, queryir.ErrNegativePagination),
		errors.Is(err, graph.ErrNoAnchor),
		errors.Is(err, search.ErrMissingType),
		errors.Is(err, search.ErrMissingQuery):
		return true
	}
	return false
}
