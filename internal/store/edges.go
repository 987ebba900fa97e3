package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/entgraph/internal/ir"
)

// EdgeFilter selects edges; an empty field does not filter.
type EdgeFilter struct {
	FromID   string
	ToID     string
	Relation string
}

// ListEdges returns edges matching every non-empty filter field, oldest first.
func (s *Store) ListEdges(ctx context.Context, f EdgeFilter) ([]ir.Edge, error) {
	var conds []string
	var args []any
	if f.FromID != "" {
		conds = append(conds, "from_id = ?")
		args = append(args, f.FromID)
	}
	if f.ToID != "" {
		conds = append(conds, "to_id = ?")
		args = append(args, f.ToID)
	}
	if f.Relation != "" {
		conds = append(conds, "relation = ?")
		args = append(args, f.Relation)
	}

	query := "SELECT " + edgeColumns + " FROM edges"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	edges := []ir.Edge{}
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

// UpsertEdge creates the edge, or overwrites only its metadata if the
// (from, relation, to) triple already exists. created_at is kept from the
// first insert. Returns the stored edge.
func (s *Store) UpsertEdge(ctx context.Context, fromID, relation, toID string, metadata ir.Document) (ir.Edge, error) {
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return ir.Edge{}, fmt.Errorf("upsert edge: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.Edge{}, fmt.Errorf("upsert edge: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO edges (from_id, relation, to_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(from_id, relation, to_id) DO UPDATE SET metadata = excluded.metadata
	`, fromID, relation, toID, meta, s.now()); err != nil {
		return ir.Edge{}, fmt.Errorf("upsert edge: %w", err)
	}

	row := tx.QueryRowContext(ctx, "SELECT "+edgeColumns+`
		FROM edges WHERE from_id = ? AND relation = ? AND to_id = ?
	`, fromID, relation, toID)
	edge, err := scanEdge(row)
	if err != nil {
		return ir.Edge{}, fmt.Errorf("upsert edge: read back: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ir.Edge{}, fmt.Errorf("upsert edge: commit: %w", err)
	}
	return edge, nil
}

// DeleteEdge removes one edge. Returns false when the triple did not exist.
func (s *Store) DeleteEdge(ctx context.Context, fromID, relation, toID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM edges WHERE from_id = ? AND relation = ? AND to_id = ?
	`, fromID, relation, toID)
	if err != nil {
		return false, fmt.Errorf("delete edge: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete edge: rows affected: %w", err)
	}
	return affected > 0, nil
}
