// Package store provides SQLite-backed storage for one namespace.
//
// The store holds two tables plus a version marker:
//   - records: typed JSON documents keyed by id
//   - edges: directed labeled relationships keyed by (from_id, relation, to_id)
//   - meta: the schema_version marker
//
// # Critical Patterns
//
// Atomic operations: every public mutation is a single statement or a
// single transaction. DeleteRecord removes the record and its incident
// edges together; UpdateRecord reads, merges and writes in one transaction.
//
// No referential integrity: edges may name ids that have no record.
// Readers (RecordsByID, traversal) skip dangling ids.
//
// Deterministic ordering: record and edge lists are ordered by rowid,
// which is insertion order even when the clock steps backwards. An edge
// upsert updates in place and keeps its position.
//
// Conflict detection: inserts and upserts use ON CONFLICT clauses and
// affected-row counts instead of inspecting driver error strings.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - MaxOpenConns=1: single writer
package store
