package store

import "errors"

var (
	// ErrNotFound is returned when an operation targets a record that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert supplies an id that is already taken.
	ErrConflict = errors.New("already exists")
)
