package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/entgraph/internal/queryir"
	"github.com/roach88/entgraph/internal/store"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent // included for context
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %d\n", ev.Seq, ev.Method, ev.Path, ev.Status)
		}
	}
	return buf.String()
}

func (h *Harness) evaluateAssertions(ctx context.Context, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinalState:
			err = h.assertFinalState(ctx, a)
		case AssertEdgeCount:
			err = h.assertEdgeCount(ctx, a)
		case AssertTraceContains:
			err = h.assertTraceContains(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) namespaceFor(a Assertion) string {
	if a.Namespace != "" {
		return a.Namespace
	}
	return h.namespace
}

// assertFinalState runs a query through the namespace actor and compares
// the matching ids in query order.
func (h *Harness) assertFinalState(ctx context.Context, a Assertion) error {
	actor, err := h.registry.Get(h.namespaceFor(a))
	if err != nil {
		return err
	}

	var where map[string]any
	if a.Where != nil {
		normalized, err := normalize(a.Where)
		if err != nil {
			return err
		}
		where, _ = normalized.(map[string]any)
	}

	recs, err := actor.QueryList(ctx, queryir.Request{Type: a.RecordType, Where: where})
	if err != nil {
		return fmt.Errorf("query %s: %w", a.RecordType, err)
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}

	if a.IDs != nil && !slices.Equal(ids, a.IDs) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s ids %v", a.RecordType, a.IDs),
			Actual:   fmt.Sprintf("%v", ids),
		}
	}
	if a.Count != nil && len(ids) != *a.Count {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%d %s records", *a.Count, a.RecordType),
			Actual:   fmt.Sprintf("%d: %v", len(ids), ids),
		}
	}
	return nil
}

func (h *Harness) assertEdgeCount(ctx context.Context, a Assertion) error {
	actor, err := h.registry.Get(h.namespaceFor(a))
	if err != nil {
		return err
	}
	edges, err := actor.ListEdges(ctx, store.EdgeFilter{FromID: a.FromID, ToID: a.ToID, Relation: a.Relation})
	if err != nil {
		return fmt.Errorf("list edges: %w", err)
	}
	if len(edges) != *a.Count {
		return &AssertionError{
			Type:     AssertEdgeCount,
			Expected: fmt.Sprintf("%d edges from=%q to=%q relation=%q", *a.Count, a.FromID, a.ToID, a.Relation),
			Actual:   fmt.Sprintf("%d", len(edges)),
		}
	}
	return nil
}

func (h *Harness) assertTraceContains(trace []TraceEvent, a Assertion) error {
	path := h.substituteString(a.Path)
	for _, ev := range trace {
		if ev.Method == a.Method && ev.Path == path && (a.Status == 0 || ev.Status == a.Status) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s %s -> %d", a.Method, path, a.Status),
		Actual:   "no matching request",
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Status != a.Status {
			continue
		}
		if a.Method != "" && ev.Method != a.Method {
			continue
		}
		count++
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d requests with status %d", *a.Count, a.Status),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    trace,
		}
	}
	return nil
}
