// Package search implements the scored full-text fallback over records.
//
// Every record of the requested type is a candidate. For each searched
// field the score is the share of query terms the field contains; if the
// field also contains the whole query verbatim, ExactBonus is added and the
// score capped at 1. A record scores the best of its fields. Matching is
// case-insensitive by Unicode case folding on NFC-normalized text.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/entgraph/internal/ir"
	"github.com/roach88/entgraph/internal/store"
)

// DefaultExactBonus is added when a field contains the full query.
const DefaultExactBonus = 0.5

// Validation errors returned by Search.
var (
	ErrMissingType  = errors.New("type is required")
	ErrMissingQuery = errors.New("query is required")
)

// RecordSource lists candidate records. *store.Store satisfies it.
type RecordSource interface {
	ListRecords(ctx context.Context, opts store.ListOptions) ([]ir.Record, error)
}

// Request is the wire shape of a search.
type Request struct {
	Type     string   `json:"type"`
	Query    string   `json:"query"`
	Fields   []string `json:"fields,omitempty"`   // dot paths; empty = every string/number top-level field
	MinScore float64  `json:"minScore,omitempty"` // results scoring below are dropped
	Limit    *int     `json:"limit,omitempty"`
}

// Searcher scores records of one namespace.
type Searcher struct {
	src        RecordSource
	exactBonus float64
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithExactBonus overrides DefaultExactBonus.
func WithExactBonus(b float64) Option {
	return func(s *Searcher) { s.exactBonus = b }
}

// NewSearcher creates a Searcher reading candidates from src.
func NewSearcher(src RecordSource, opts ...Option) *Searcher {
	s := &Searcher{src: src, exactBonus: DefaultExactBonus}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExactBonus returns the bonus added for a verbatim phrase match.
func (s *Searcher) ExactBonus() float64 {
	return s.exactBonus
}

// Search returns matching records sorted by score, highest first. Records
// with equal scores keep insertion order.
func (s *Searcher) Search(ctx context.Context, req Request) ([]ir.ScoredRecord, error) {
	if req.Type == "" {
		return nil, ErrMissingType
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrMissingQuery
	}

	m, err := newMatcher(req.Query)
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}

	candidates, err := s.src.ListRecords(ctx, store.ListOptions{Type: req.Type})
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	results := []ir.ScoredRecord{}
	for _, rec := range candidates {
		var best float64
		for _, text := range fieldTexts(rec.Data, req.Fields) {
			if sc := m.score(text, s.exactBonus); sc > best {
				best = sc
			}
		}
		if best <= 0 || best < req.MinScore {
			continue
		}
		results = append(results, ir.ScoredRecord{Record: rec, Score: best})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if req.Limit != nil && *req.Limit >= 0 && *req.Limit < len(results) {
		results = results[:*req.Limit]
	}
	return results, nil
}

// fieldTexts returns the string form of every searched field of doc.
func fieldTexts(doc ir.Document, fields []string) []string {
	var out []string
	if len(fields) == 0 {
		for _, k := range doc.SortedKeys() {
			v := doc[k]
			if !ir.IsTextual(v) {
				continue
			}
			if s, ok := ir.ScalarString(v); ok {
				out = append(out, s)
			}
		}
		return out
	}
	for _, f := range fields {
		v, ok := doc.Lookup(f)
		if !ok {
			continue
		}
		if s, ok := ir.ScalarString(v); ok {
			out = append(out, s)
		}
	}
	return out
}
