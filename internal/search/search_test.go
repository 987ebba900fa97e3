package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entgraph/internal/ir"
	"github.com/roach88/entgraph/internal/store"
	"github.com/roach88/entgraph/internal/testutil"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "s.db"),
		store.WithClock(testutil.NewDeterministicClock()),
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("p")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insert(t *testing.T, s *store.Store, typ string, doc ir.Document) {
	t.Helper()
	_, err := s.InsertRecord(context.Background(), typ, doc, "")
	require.NoError(t, err)
}

func seedPosts(t *testing.T) *store.Store {
	s := newStore(t)
	insert(t, s, "Post", ir.Document{"title": "Go concurrency patterns", "views": 120.0})
	insert(t, s, "Post", ir.Document{"title": "Patterns of Go", "body": "concurrency"})
	insert(t, s, "Post", ir.Document{"title": "Rust ownership"})
	insert(t, s, "Post", ir.Document{"title": "GO CONCURRENCY"})
	insert(t, s, "Note", ir.Document{"title": "go concurrency"})
	return s
}

type hit struct {
	ID    string
	Score float64
}

func hits(rs []ir.ScoredRecord) []hit {
	out := make([]hit, len(rs))
	for i, r := range rs {
		out[i] = hit{r.ID, r.Score}
	}
	return out
}

func TestSearch_RanksByCoverage(t *testing.T) {
	s := NewSearcher(seedPosts(t))
	got, err := s.Search(context.Background(), Request{Type: "Post", Query: "go concurrency"})
	require.NoError(t, err)

	assert.Equal(t, []hit{
		{"p-1", 1.0},
		{"p-4", 1.0},
		{"p-2", 0.5},
	}, hits(got), "exact matches first, ties in insertion order, zero scores excluded")
}

func TestSearch_MinScoreAndLimit(t *testing.T) {
	s := NewSearcher(seedPosts(t))
	ctx := context.Background()

	got, err := s.Search(ctx, Request{Type: "Post", Query: "go concurrency", MinScore: 0.6})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"p-1", 1.0}, {"p-4", 1.0}}, hits(got))

	one := 1
	got, err = s.Search(ctx, Request{Type: "Post", Query: "go concurrency", Limit: &one})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"p-1", 1.0}}, hits(got))
}

func TestSearch_ExplicitFields(t *testing.T) {
	s := NewSearcher(seedPosts(t))
	got, err := s.Search(context.Background(), Request{
		Type:   "Post",
		Query:  "concurrency",
		Fields: []string{"body"},
	})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"p-2", 1.0}}, hits(got))
}

func TestSearch_NestedFieldsOnlyWhenNamed(t *testing.T) {
	st := newStore(t)
	insert(t, st, "Post", ir.Document{"author": map[string]any{"name": "Ann Lee"}})
	s := NewSearcher(st)
	ctx := context.Background()

	got, err := s.Search(ctx, Request{Type: "Post", Query: "ann"})
	require.NoError(t, err)
	assert.Empty(t, got, "default fields are top-level scalars only")

	got, err = s.Search(ctx, Request{Type: "Post", Query: "ann", Fields: []string{"author.name"}})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"p-1", 1.0}}, hits(got))
}

func TestSearch_NumbersAreSearchable(t *testing.T) {
	st := newStore(t)
	insert(t, st, "Part", ir.Document{"code": 12345.0, "active": true})
	s := NewSearcher(st)

	got, err := s.Search(context.Background(), Request{Type: "Part", Query: "234"})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"p-1", 1.0}}, hits(got))

	got, err = s.Search(context.Background(), Request{Type: "Part", Query: "true"})
	require.NoError(t, err)
	assert.Empty(t, got, "booleans are not default search fields")
}

func TestSearch_UnicodeFolding(t *testing.T) {
	st := newStore(t)
	insert(t, st, "Place", ir.Document{"name": "Hauptstraße"})
	insert(t, st, "Place", ir.Document{"name": "Café Central"})
	s := NewSearcher(st)
	ctx := context.Background()

	got, err := s.Search(ctx, Request{Type: "Place", Query: "STRASSE"})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"p-1", 1.0}}, hits(got))

	got, err = s.Search(ctx, Request{Type: "Place", Query: "café"})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"p-2", 1.0}}, hits(got))
}

func TestSearch_PartialCoverage(t *testing.T) {
	st := newStore(t)
	insert(t, st, "Doc", ir.Document{"text": "alpha beta"})
	s := NewSearcher(st)

	got, err := s.Search(context.Background(), Request{Type: "Doc", Query: "alpha gamma delta"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 1.0/3.0, got[0].Score, 1e-9)
}

func TestSearch_DuplicateTermsCountEach(t *testing.T) {
	st := newStore(t)
	insert(t, st, "Doc", ir.Document{"text": "alpha"})
	s := NewSearcher(st)

	got, err := s.Search(context.Background(), Request{Type: "Doc", Query: "alpha alpha beta"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 2.0/3.0, got[0].Score, 1e-9)
}

func TestSearch_Validation(t *testing.T) {
	s := NewSearcher(newStore(t))
	ctx := context.Background()

	_, err := s.Search(ctx, Request{Query: "x"})
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = s.Search(ctx, Request{Type: "Post", Query: "   "})
	assert.ErrorIs(t, err, ErrMissingQuery)
}

func TestSearch_EmptyResultIsNonNil(t *testing.T) {
	s := NewSearcher(seedPosts(t))
	got, err := s.Search(context.Background(), Request{Type: "Post", Query: "haskell"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

type brokenSource struct{}

func (brokenSource) ListRecords(context.Context, store.ListOptions) ([]ir.Record, error) {
	return nil, errors.New("locked")
}

func TestSearch_SourceError(t *testing.T) {
	_, err := NewSearcher(brokenSource{}).Search(context.Background(), Request{Type: "Post", Query: "x"})
	assert.ErrorContains(t, err, "load candidates: locked")
}

func TestMatcher_ExactBonusCapped(t *testing.T) {
	m, err := newMatcher("red fox")
	require.NoError(t, err)

	assert.Equal(t, 1.0, m.score("the red fox", 0.5))
	assert.Equal(t, 1.0, m.score("fox, red", 0.5), "all terms without the phrase")
	assert.Equal(t, 0.5, m.score("red hen", 0.5))
	assert.Equal(t, 0.0, m.score("blue hen", 0.5))
}

func TestWithExactBonus(t *testing.T) {
	s := NewSearcher(nil, WithExactBonus(0.25))
	assert.Equal(t, 0.25, s.exactBonus)
	assert.Equal(t, DefaultExactBonus, NewSearcher(nil).exactBonus)
}
