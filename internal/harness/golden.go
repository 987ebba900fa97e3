package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RenderTrace formats a result as one line per request, the form stored
// in golden files:
//
//	1 POST /data -> 201 [rec-1]
func RenderTrace(name string, result *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, ev := range result.Trace {
		fmt.Fprintf(&b, "%d %s %s -> %d", ev.Seq, ev.Method, ev.Path, ev.Status)
		if len(ev.IDs) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(ev.IDs, " "))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "pass: %t\n", result.Pass)
	return b.String()
}

// RunWithGolden executes a scenario and compares its rendered trace with
// testdata/golden/<name>.golden.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, []byte(RenderTrace(scenario.Name, result)))
	return result, nil
}
