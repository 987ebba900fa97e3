package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/entgraph/internal/ir"
)

// recordColumns is the column list every record query selects, in scan order.
const recordColumns = "id, type, data, created_at, updated_at"

// edgeColumns is the column list every edge query selects, in scan order.
const edgeColumns = "from_id, relation, to_id, metadata, created_at"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (ir.Record, error) {
	var rec ir.Record
	var data string
	if err := row.Scan(&rec.ID, &rec.Type, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return ir.Record{}, err
	}
	doc, err := ir.DecodeDocument(data)
	if err != nil {
		return ir.Record{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	if doc == nil {
		doc = ir.Document{}
	}
	rec.Data = doc
	return rec, nil
}

func scanEdge(row scanner) (ir.Edge, error) {
	var e ir.Edge
	var metadata sql.NullString
	if err := row.Scan(&e.FromID, &e.Relation, &e.ToID, &metadata, &e.CreatedAt); err != nil {
		return ir.Edge{}, err
	}
	if metadata.Valid {
		doc, err := ir.DecodeDocument(metadata.String)
		if err != nil {
			return ir.Edge{}, fmt.Errorf("edge %s-%s->%s: %w", e.FromID, e.Relation, e.ToID, err)
		}
		e.Metadata = doc
	}
	return e, nil
}

// collectRecords drains rows into a non-nil slice.
func collectRecords(rows *sql.Rows) ([]ir.Record, error) {
	defer rows.Close()

	records := []ir.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// encodeMetadata maps a nil metadata document to SQL NULL.
func encodeMetadata(d ir.Document) (any, error) {
	if d == nil {
		return nil, nil
	}
	return ir.EncodeDocument(d)
}
