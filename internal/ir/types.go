package ir

import "time"

// TimeLayout is the ISO-8601 layout used for created_at and updated_at.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Record is a typed document keyed by a namespace-unique id.
type Record struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Data      Document `json:"data"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// Edge is a directed, labeled relationship between two record ids.
// The (FromID, Relation, ToID) triple is unique. Either end may reference
// a record that does not exist.
type Edge struct {
	FromID    string   `json:"from_id"`
	Relation  string   `json:"relation"`
	ToID      string   `json:"to_id"`
	Metadata  Document `json:"metadata"` // nil encodes as null
	CreatedAt string   `json:"created_at"`
}

// ScoredRecord is a search hit: the record plus its relevance in [0, 1].
type ScoredRecord struct {
	Record
	Score float64 `json:"score"`
}

// IndexInfo describes one secondary index of the store.
type IndexInfo struct {
	Name  string `json:"name"`
	Table string `json:"table"`
	SQL   string `json:"sql"`
}
