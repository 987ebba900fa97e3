package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/entgraph/internal/ir"
	"github.com/roach88/entgraph/internal/testutil"
)

// createTestStore creates a fresh store in a temp dir with a deterministic
// clock and sequential generated ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithClock(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequentialIDGenerator("rec")),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(n int) *int { return &n }

func recordIDs(recs []ir.Record) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

// rewindingClock moves one second backwards on every reading.
type rewindingClock struct{ t time.Time }

func (c *rewindingClock) Now() time.Time {
	c.t = c.t.Add(-time.Second)
	return c.t
}
