// Package engine runs each namespace behind a single-writer actor.
//
// ARCHITECTURE:
//
// One Actor per namespace owns that namespace's SQLite store. HTTP handlers
// (any number of goroutines) submit closures to the actor's FIFO queue and
// block until the actor goroutine has run them:
//
//	handler → Actor.Do → taskQueue → Actor.Run → store / graph / search
//
// Because only the actor goroutine touches the store, operations on one
// namespace never overlap: each insert, update, cascade delete, edge upsert
// or traversal runs to completion before the next begins. Namespaces share
// no state, so different namespaces proceed in parallel.
//
// The Registry opens actors lazily. Opening a namespace opens its database
// file and creates the schema; if that fails no actor is started and the
// request fails.
//
// Errors returned by actor operations are *OpError values wrapping the
// underlying store, queryir, graph or search error. IsNotFound, IsConflict
// and IsInvalidRequest classify them for transport layers.
package engine
