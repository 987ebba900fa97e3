package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/entgraph/internal/ir"
)

// ListOptions filters and paginates ListRecords. A nil Limit means
// unbounded; Offset is honored with or without a Limit.
type ListOptions struct {
	Type   string
	Limit  *int
	Offset *int
}

// ListRecords returns records in insertion order, optionally filtered by type.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListRecords(ctx context.Context, opts ListOptions) ([]ir.Record, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT " + recordColumns + " FROM records")
	if opts.Type != "" {
		sb.WriteString(" WHERE type = ?")
		args = append(args, opts.Type)
	}
	sb.WriteString(" ORDER BY rowid ASC")

	// SQLite rejects OFFSET without LIMIT; -1 means no limit.
	if opts.Limit != nil || opts.Offset != nil {
		limit := -1
		if opts.Limit != nil {
			limit = *opts.Limit
		}
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
		if opts.Offset != nil {
			sb.WriteString(" OFFSET ?")
			args = append(args, *opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return collectRecords(rows)
}

// QueryRecords runs a compiled record query. The statement must select
// "id, type, data, created_at, updated_at" in that order.
func (s *Store) QueryRecords(ctx context.Context, query string, args ...any) ([]ir.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return collectRecords(rows)
}

// InsertRecord stores a new record. An empty id is replaced with a generated
// one. Both timestamps are set to now.
//
// Returns ErrConflict if the id is already taken. The conflict is detected
// with ON CONFLICT(id) DO NOTHING and the affected-row count, so no
// driver-specific error inspection is needed.
func (s *Store) InsertRecord(ctx context.Context, typ string, data ir.Document, id string) (ir.Record, error) {
	if id == "" {
		id = s.ids.Generate()
	}
	if data == nil {
		data = ir.Document{}
	}

	encoded, err := ir.EncodeDocument(data)
	if err != nil {
		return ir.Record{}, fmt.Errorf("insert record: %w", err)
	}

	now := s.now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, type, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, typ, encoded, now, now)
	if err != nil {
		return ir.Record{}, fmt.Errorf("insert record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ir.Record{}, fmt.Errorf("insert record: rows affected: %w", err)
	}
	if affected == 0 {
		return ir.Record{}, fmt.Errorf("insert record %q: %w", id, ErrConflict)
	}

	// Return what was stored so the caller sees normalized data.
	stored, err := ir.DecodeDocument(encoded)
	if err != nil {
		return ir.Record{}, fmt.Errorf("insert record: %w", err)
	}

	return ir.Record{
		ID:        id,
		Type:      typ,
		Data:      stored,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetRecord retrieves a single record by id.
// Returns ErrNotFound if the id does not exist.
func (s *Store) GetRecord(ctx context.Context, id string) (ir.Record, error) {
	return getRecord(ctx, s.db, id)
}

// UpdateRecord shallow-merges partial into the record's document and
// refreshes updated_at. created_at is preserved.
// Returns ErrNotFound if the id does not exist.
//
// The read-merge-write runs in one transaction.
func (s *Store) UpdateRecord(ctx context.Context, id string, partial ir.Document) (ir.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.Record{}, fmt.Errorf("update record: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	existing, err := getRecord(ctx, tx, id)
	if err != nil {
		return ir.Record{}, fmt.Errorf("update record: %w", err)
	}

	merged := existing.Data.Merge(partial)
	encoded, err := ir.EncodeDocument(merged)
	if err != nil {
		return ir.Record{}, fmt.Errorf("update record: %w", err)
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE records SET data = ?, updated_at = ? WHERE id = ?
	`, encoded, now, id); err != nil {
		return ir.Record{}, fmt.Errorf("update record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ir.Record{}, fmt.Errorf("update record: commit: %w", err)
	}

	stored, err := ir.DecodeDocument(encoded)
	if err != nil {
		return ir.Record{}, fmt.Errorf("update record: %w", err)
	}
	existing.Data = stored
	existing.UpdatedAt = now
	return existing, nil
}

// DeleteRecord removes a record and every edge that starts or ends at it.
// Returns false (and no error) when the id does not exist; edges are left
// untouched in that case.
func (s *Store) DeleteRecord(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete record: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record: rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM edges WHERE from_id = ? OR to_id = ?
	`, id, id); err != nil {
		return false, fmt.Errorf("delete record: cascade edges: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete record: commit: %w", err)
	}
	return true, nil
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryRower, id string) (ir.Record, error) {
	row := q.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Record{}, fmt.Errorf("record %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}
