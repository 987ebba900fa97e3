package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entgraph/internal/ir"
)

func TestInsertRecord_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	doc := ir.Document{
		"title":  "Hello",
		"views":  float64(3),
		"author": map[string]any{"name": "Ada"},
	}
	inserted, err := s.InsertRecord(ctx, "Post", doc, "")
	require.NoError(t, err)

	assert.Equal(t, "rec-1", inserted.ID)
	assert.Equal(t, "Post", inserted.Type)
	assert.Equal(t, "2024-01-01T00:00:00.001Z", inserted.CreatedAt)
	assert.Equal(t, inserted.CreatedAt, inserted.UpdatedAt)

	got, err := s.GetRecord(ctx, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, inserted, got)
}

func TestInsertRecord_ExplicitID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec, err := s.InsertRecord(ctx, "Post", ir.Document{"a": float64(1)}, "post-1")
	require.NoError(t, err)
	assert.Equal(t, "post-1", rec.ID)
}

func TestInsertRecord_NilDataStoresEmptyDocument(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec, err := s.InsertRecord(ctx, "Tag", nil, "t1")
	require.NoError(t, err)
	assert.Equal(t, ir.Document{}, rec.Data)

	got, err := s.GetRecord(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, ir.Document{}, got.Data)
}

func TestInsertRecord_DuplicateIDConflicts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.InsertRecord(ctx, "Post", ir.Document{"v": float64(1)}, "dup")
	require.NoError(t, err)

	_, err = s.InsertRecord(ctx, "Comment", ir.Document{"v": float64(2)}, "dup")
	require.ErrorIs(t, err, ErrConflict)

	// The original row is untouched.
	got, err := s.GetRecord(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "Post", got.Type)
	assert.Equal(t, float64(1), got.Data["v"])
}

func TestGetRecord_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRecord_ShallowMerge(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	orig, err := s.InsertRecord(ctx, "Post", ir.Document{
		"a":    float64(0),
		"b":    float64(2),
		"meta": map[string]any{"x": float64(1), "y": float64(2)},
	}, "p1")
	require.NoError(t, err)

	updated, err := s.UpdateRecord(ctx, "p1", ir.Document{
		"a":    float64(1),
		"meta": map[string]any{"x": float64(5)},
	})
	require.NoError(t, err)

	assert.Equal(t, ir.Document{
		"a":    float64(1),
		"b":    float64(2),
		"meta": map[string]any{"x": float64(5)},
	}, updated.Data)
	assert.Equal(t, orig.CreatedAt, updated.CreatedAt)
	assert.NotEqual(t, orig.UpdatedAt, updated.UpdatedAt)
	assert.Greater(t, updated.UpdatedAt, orig.UpdatedAt)

	got, err := s.GetRecord(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestUpdateRecord_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.UpdateRecord(context.Background(), "missing", ir.Document{"a": float64(1)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRecord_CascadesEdges(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.InsertRecord(ctx, "Node", nil, id)
		require.NoError(t, err)
	}
	_, err := s.UpsertEdge(ctx, "a", "links", "b", nil)
	require.NoError(t, err)
	_, err = s.UpsertEdge(ctx, "c", "links", "a", nil)
	require.NoError(t, err)
	_, err = s.UpsertEdge(ctx, "b", "links", "c", nil)
	require.NoError(t, err)

	deleted, err := s.DeleteRecord(ctx, "a")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.GetRecord(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	fromA, err := s.ListEdges(ctx, EdgeFilter{FromID: "a"})
	require.NoError(t, err)
	assert.Empty(t, fromA)

	toA, err := s.ListEdges(ctx, EdgeFilter{ToID: "a"})
	require.NoError(t, err)
	assert.Empty(t, toA)

	rest, err := s.ListEdges(ctx, EdgeFilter{})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "b", rest[0].FromID)
}

func TestDeleteRecord_AbsentIsNotAnError(t *testing.T) {
	s := createTestStore(t)

	deleted, err := s.DeleteRecord(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListRecords_FiltersByTypeInInsertionOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.InsertRecord(ctx, "Post", nil, "p2")
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, "Comment", nil, "c1")
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, "Post", nil, "p1")
	require.NoError(t, err)

	posts, err := s.ListRecords(ctx, ListOptions{Type: "Post"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, recordIDs(posts))

	all, err := s.ListRecords(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "c1", "p1"}, recordIDs(all))
}

func TestInsertionOrderSurvivesClockRewind(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "rewind.db"),
		WithClock(&rewindingClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		_, err := s.InsertRecord(ctx, "Post", nil, id)
		require.NoError(t, err)
	}
	want := []string{"first", "second", "third"}

	all, err := s.ListRecords(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, want, recordIDs(all))
	assert.Greater(t, all[0].CreatedAt, all[2].CreatedAt, "clock ran backwards")

	byID, err := s.RecordsByID(ctx, []string{"third", "first", "second"}, "")
	require.NoError(t, err)
	assert.Equal(t, want, recordIDs(byID))

	mustEdge(t, s, "a", "likes", "x")
	mustEdge(t, s, "a", "likes", "y")
	edges, err := s.ListEdges(ctx, EdgeFilter{})
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "x", edges[0].ToID)
	assert.Equal(t, "y", edges[1].ToID)
}

func TestListRecords_EmptyIsNonNil(t *testing.T) {
	s := createTestStore(t)

	recs, err := s.ListRecords(context.Background(), ListOptions{Type: "Nothing"})
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestListRecords_PaginationPartitions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.InsertRecord(ctx, "Item", ir.Document{"n": float64(i)}, fmt.Sprintf("i%d", i))
		require.NoError(t, err)
	}

	first, err := s.ListRecords(ctx, ListOptions{Type: "Item", Limit: intPtr(2), Offset: intPtr(0)})
	require.NoError(t, err)
	second, err := s.ListRecords(ctx, ListOptions{Type: "Item", Limit: intPtr(2), Offset: intPtr(2)})
	require.NoError(t, err)
	third, err := s.ListRecords(ctx, ListOptions{Type: "Item", Limit: intPtr(2), Offset: intPtr(4)})
	require.NoError(t, err)

	assert.Equal(t, []string{"i0", "i1"}, recordIDs(first))
	assert.Equal(t, []string{"i2", "i3"}, recordIDs(second))
	assert.Equal(t, []string{"i4"}, recordIDs(third))
}

func TestListRecords_OffsetWithoutLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.InsertRecord(ctx, "Item", nil, fmt.Sprintf("i%d", i))
		require.NoError(t, err)
	}

	recs, err := s.ListRecords(ctx, ListOptions{Type: "Item", Offset: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i2", "i3"}, recordIDs(recs))
}

func TestListRecords_LimitOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.InsertRecord(ctx, "Item", nil, fmt.Sprintf("i%d", i))
		require.NoError(t, err)
	}

	recs, err := s.ListRecords(ctx, ListOptions{Limit: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"i0"}, recordIDs(recs))
}

func TestQueryRecords(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.InsertRecord(ctx, "Post", ir.Document{"published": true}, "p1")
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, "Post", ir.Document{"published": false}, "p2")
	require.NoError(t, err)

	recs, err := s.QueryRecords(ctx,
		"SELECT id, type, data, created_at, updated_at FROM records WHERE json_extract(data, ?) = ?",
		"$.published", int64(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, recordIDs(recs))
}
