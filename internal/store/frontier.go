package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/entgraph/internal/ir"
)

// Frontier queries bind the whole id set as one JSON array parameter and
// expand it with json_each, so frontiers of any size fit in one statement
// regardless of SQLite's bound-parameter limit.

// Successors returns the distinct to_id values of edges leaving any of ids.
// An empty relation matches every relation.
func (s *Store) Successors(ctx context.Context, ids []string, relation string) ([]string, error) {
	return s.neighbors(ctx, "to_id", "from_id", ids, relation)
}

// Predecessors returns the distinct from_id values of edges entering any of ids.
// An empty relation matches every relation.
func (s *Store) Predecessors(ctx context.Context, ids []string, relation string) ([]string, error) {
	return s.neighbors(ctx, "from_id", "to_id", ids, relation)
}

func (s *Store) neighbors(ctx context.Context, selectCol, matchCol string, ids []string, relation string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	set, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode frontier: %w", err)
	}

	// selectCol and matchCol are compile-time column names, never caller input.
	query := fmt.Sprintf(
		"SELECT DISTINCT %s FROM edges WHERE %s IN (SELECT value FROM json_each(?))",
		selectCol, matchCol)
	args := []any{string(set)}
	if relation != "" {
		query += " AND relation = ?"
		args = append(args, relation)
	}
	query += fmt.Sprintf(" ORDER BY %s", selectCol)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query frontier: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan frontier: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frontier: %w", err)
	}
	return out, nil
}

// RecordsByID returns the existing records among ids in insertion order,
// optionally restricted to one type. Ids with no record (dangling edge
// targets) are skipped.
func (s *Store) RecordsByID(ctx context.Context, ids []string, typ string) ([]ir.Record, error) {
	if len(ids) == 0 {
		return []ir.Record{}, nil
	}
	set, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode id set: %w", err)
	}

	query := "SELECT " + recordColumns + " FROM records WHERE id IN (SELECT value FROM json_each(?))"
	args := []any{string(set)}
	if typ != "" {
		query += " AND type = ?"
		args = append(args, typ)
	}
	query += " ORDER BY rowid ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("records by id: %w", err)
	}
	return collectRecords(rows)
}
