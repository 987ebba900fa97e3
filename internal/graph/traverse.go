package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/entgraph/internal/ir"
)

// ErrNoAnchor is returned when a request names neither a start nor a target.
var ErrNoAnchor = errors.New("from_id or to_id is required")

// DefaultMaxHops bounds the relation list of one traversal.
const DefaultMaxHops = 16

// HopLimitError is returned when a traversal names more relations than
// the traverser allows. The request is rejected before any hop runs.
type HopLimitError struct {
	Hops  int
	Limit int
}

func (e *HopLimitError) Error() string {
	return fmt.Sprintf("traversal of %d hops exceeds limit of %d", e.Hops, e.Limit)
}

// EdgeReader is the slice of the store a traversal needs.
// *store.Store satisfies it.
type EdgeReader interface {
	Successors(ctx context.Context, ids []string, relation string) ([]string, error)
	Predecessors(ctx context.Context, ids []string, relation string) ([]string, error)
	RecordsByID(ctx context.Context, ids []string, typ string) ([]ir.Record, error)
}

// Request describes one traversal.
//
//   - FromID with Relations: forward walk, one hop per relation.
//   - ToID with Relations: reverse walk; the first relation is the hop
//     nearest the target.
//   - FromID alone: every record reachable over any outgoing edge.
//   - ToID alone: every record with any edge into ToID.
//
// FromID takes precedence when both ids are set. Type, when set, filters
// the projected records.
type Request struct {
	FromID    string
	ToID      string
	Relations []string
	Type      string
}

// ParseRelations splits a comma-separated relation list, trimming blanks
// and dropping empty entries. "" yields nil.
func ParseRelations(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Traverser runs traversals against an EdgeReader.
type Traverser struct {
	edges   EdgeReader
	maxHops int
}

// Option configures a Traverser.
type Option func(*Traverser)

// WithMaxHops sets the hop limit. n <= 0 keeps DefaultMaxHops.
func WithMaxHops(n int) Option {
	return func(t *Traverser) {
		if n > 0 {
			t.maxHops = n
		}
	}
}

// NewTraverser creates a Traverser.
func NewTraverser(edges EdgeReader, opts ...Option) *Traverser {
	t := &Traverser{edges: edges, maxHops: DefaultMaxHops}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MaxHops returns the hop limit.
func (t *Traverser) MaxHops() int {
	return t.maxHops
}

// Resolve dispatches a request to the matching traversal shape.
func (t *Traverser) Resolve(ctx context.Context, req Request) ([]ir.Record, error) {
	switch {
	case req.FromID != "" && len(req.Relations) > 0:
		return t.Forward(ctx, req.FromID, req.Relations, req.Type)
	case req.FromID != "":
		return t.Neighbors(ctx, req.FromID, req.Type)
	case req.ToID != "" && len(req.Relations) > 0:
		return t.Reverse(ctx, req.ToID, req.Relations, req.Type)
	case req.ToID != "":
		return t.Incoming(ctx, req.ToID, req.Type)
	default:
		return nil, ErrNoAnchor
	}
}

// Forward walks relations in order starting at fromID.
func (t *Traverser) Forward(ctx context.Context, fromID string, relations []string, typ string) ([]ir.Record, error) {
	return t.walk(ctx, fromID, relations, typ, t.edges.Successors)
}

// Reverse walks relations backwards starting at toID.
func (t *Traverser) Reverse(ctx context.Context, toID string, relations []string, typ string) ([]ir.Record, error) {
	return t.walk(ctx, toID, relations, typ, t.edges.Predecessors)
}

// Neighbors returns every record one outgoing edge away from fromID.
func (t *Traverser) Neighbors(ctx context.Context, fromID string, typ string) ([]ir.Record, error) {
	return t.walk(ctx, fromID, []string{""}, typ, t.edges.Successors)
}

// Incoming returns every record with an edge of any relation into toID.
func (t *Traverser) Incoming(ctx context.Context, toID string, typ string) ([]ir.Record, error) {
	return t.walk(ctx, toID, []string{""}, typ, t.edges.Predecessors)
}

type stepFunc func(ctx context.Context, ids []string, relation string) ([]string, error)

func (t *Traverser) walk(ctx context.Context, start string, relations []string, typ string, step stepFunc) ([]ir.Record, error) {
	if len(relations) > t.maxHops {
		return nil, &HopLimitError{Hops: len(relations), Limit: t.maxHops}
	}

	frontier := []string{start}
	for hop, rel := range relations {
		next, err := step(ctx, frontier, rel)
		if err != nil {
			return nil, fmt.Errorf("hop %d (%s): %w", hop+1, rel, err)
		}
		if len(next) == 0 {
			return []ir.Record{}, nil
		}
		frontier = dedupe(next)
	}

	recs, err := t.edges.RecordsByID(ctx, frontier, typ)
	if err != nil {
		return nil, fmt.Errorf("project frontier: %w", err)
	}
	return recs, nil
}

// dedupe removes repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
