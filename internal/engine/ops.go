package engine

import (
	"context"

	"github.com/roach88/entgraph/internal/graph"
	"github.com/roach88/entgraph/internal/ir"
	"github.com/roach88/entgraph/internal/queryir"
	"github.com/roach88/entgraph/internal/search"
	"github.com/roach88/entgraph/internal/store"
)

// Each operation below runs as exactly one task on the actor goroutine.

// ListRecords lists records in insertion order, optionally by type.
func (a *Actor) ListRecords(ctx context.Context, opts store.ListOptions) ([]ir.Record, error) {
	return call(ctx, a, "list records", func(ctx context.Context) ([]ir.Record, error) {
		return a.store.ListRecords(ctx, opts)
	})
}

// InsertRecord creates a record. An empty id is generated; a taken id
// fails with a conflict.
func (a *Actor) InsertRecord(ctx context.Context, typ string, data ir.Document, id string) (ir.Record, error) {
	return call(ctx, a, "insert record", func(ctx context.Context) (ir.Record, error) {
		return a.store.InsertRecord(ctx, typ, data, id)
	})
}

// GetRecord returns the record with id or a not-found error.
func (a *Actor) GetRecord(ctx context.Context, id string) (ir.Record, error) {
	return call(ctx, a, "get record", func(ctx context.Context) (ir.Record, error) {
		return a.store.GetRecord(ctx, id)
	})
}

// UpdateRecord shallow-merges partial into the record's data.
func (a *Actor) UpdateRecord(ctx context.Context, id string, partial ir.Document) (ir.Record, error) {
	return call(ctx, a, "update record", func(ctx context.Context) (ir.Record, error) {
		return a.store.UpdateRecord(ctx, id, partial)
	})
}

// DeleteRecord removes the record and every edge touching it. It reports
// false when no record had that id.
func (a *Actor) DeleteRecord(ctx context.Context, id string) (bool, error) {
	return call(ctx, a, "delete record", func(ctx context.Context) (bool, error) {
		return a.store.DeleteRecord(ctx, id)
	})
}

// ListEdges lists edges matching f.
func (a *Actor) ListEdges(ctx context.Context, f store.EdgeFilter) ([]ir.Edge, error) {
	return call(ctx, a, "list edges", func(ctx context.Context) ([]ir.Edge, error) {
		return a.store.ListEdges(ctx, f)
	})
}

// UpsertEdge creates the edge or replaces the metadata of an existing one.
func (a *Actor) UpsertEdge(ctx context.Context, fromID, relation, toID string, metadata ir.Document) (ir.Edge, error) {
	return call(ctx, a, "upsert edge", func(ctx context.Context) (ir.Edge, error) {
		return a.store.UpsertEdge(ctx, fromID, relation, toID, metadata)
	})
}

// DeleteEdge removes one edge and reports whether it existed.
func (a *Actor) DeleteEdge(ctx context.Context, fromID, relation, toID string) (bool, error) {
	return call(ctx, a, "delete edge", func(ctx context.Context) (bool, error) {
		return a.store.DeleteEdge(ctx, fromID, relation, toID)
	})
}

// Traverse resolves a graph traversal. The whole walk is one task, so it
// sees a single consistent state of the edge table.
func (a *Actor) Traverse(ctx context.Context, req graph.Request) ([]ir.Record, error) {
	return call(ctx, a, "traverse", func(ctx context.Context) ([]ir.Record, error) {
		return a.traverser.Resolve(ctx, req)
	})
}

// Version returns the schema version.
func (a *Actor) Version(ctx context.Context) (int, error) {
	return call(ctx, a, "version", func(ctx context.Context) (int, error) {
		return a.store.Version(ctx)
	})
}

// Indexes lists the secondary indexes of the namespace database.
func (a *Actor) Indexes(ctx context.Context) ([]ir.IndexInfo, error) {
	return call(ctx, a, "indexes", func(ctx context.Context) ([]ir.IndexInfo, error) {
		return a.store.Indexes(ctx)
	})
}

// QueryList runs a filter/sort/paginate query.
func (a *Actor) QueryList(ctx context.Context, req queryir.Request) ([]ir.Record, error) {
	return call(ctx, a, "query list", func(ctx context.Context) ([]ir.Record, error) {
		q, err := a.parse(req)
		if err != nil {
			return nil, err
		}
		sql, params, err := a.compiler.Compile(q)
		if err != nil {
			return nil, err
		}
		return a.store.QueryRecords(ctx, sql, params...)
	})
}

// QueryFind returns the first record QueryList would return, or nil when
// nothing matches.
func (a *Actor) QueryFind(ctx context.Context, req queryir.Request) (*ir.Record, error) {
	return call(ctx, a, "query find", func(ctx context.Context) (*ir.Record, error) {
		q, err := a.parse(req)
		if err != nil {
			return nil, err
		}
		sql, params, err := a.compiler.CompileFind(q)
		if err != nil {
			return nil, err
		}
		recs, err := a.store.QueryRecords(ctx, sql, params...)
		if err != nil || len(recs) == 0 {
			return nil, err
		}
		return &recs[0], nil
	})
}

// Search runs a scored full-text search.
func (a *Actor) Search(ctx context.Context, req search.Request) ([]ir.ScoredRecord, error) {
	return call(ctx, a, "search", func(ctx context.Context) ([]ir.ScoredRecord, error) {
		return a.searcher.Search(ctx, req)
	})
}

func (a *Actor) parse(req queryir.Request) (queryir.Select, error) {
	res, err := queryir.Parse(req, a.policy)
	if err != nil {
		return queryir.Select{}, err
	}
	if len(res.Dropped) > 0 {
		a.logger.Debug("dropped invalid query fields", "type", req.Type, "fields", res.Dropped)
	}
	return res.Query, nil
}
