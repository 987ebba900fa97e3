// Package graph resolves traversals over the edge table and projects the
// reached identifiers back onto records.
//
// A traversal walks a frontier (a set of record ids) one hop at a time.
// Each hop is a single query over the whole frontier, and the next frontier
// is the distinct set of ids reached, so an id reached over parallel edges
// is counted once. A hop that reaches nothing ends the walk with an empty
// result. Edges may point at ids with no record; those ids take part in the
// walk but are absent from the projected result.
//
// Hops follow path semantics: the result of a two-hop walk is every id at
// the end of some two-edge path, even if that id was also seen on hop one.
package graph
