package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// its trace with the matching golden file.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "file name and scenario name should agree")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario := mustParse(t, `
name: failing
description: every expectation is wrong
steps:
  - name: insert
    method: POST
    path: /data
    body: {type: person, id: p1, data: {name: Ada}}
    expect:
      status: 200
      body: {data: {name: Grace}}
  - name: list
    method: GET
    path: /data
    expect: {ids: [p2], count: 3}
assertions:
  - type: final_state
    record_type: person
    count: 5
`)
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "steps[0] (insert): status = 201, want 200")
	assert.Contains(t, result.Errors[1], "body.data.name: got Ada, want Grace")
	assert.Contains(t, result.Errors[2], "ids = [p1], want [p2]")
	assert.Contains(t, result.Errors[3], "count = 1, want 3")
	assert.Contains(t, result.Errors[4], "assertions[0]")
	assert.Contains(t, result.Errors[4], "5 person records")
}

func TestRun_SetupFailureIsAnError(t *testing.T) {
	scenario := mustParse(t, `
name: bad_setup
description: setup must succeed
setup:
  - {method: POST, path: /data, body: {data: {}}}
steps:
  - {method: GET, path: /data}
`)
	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0]")
	assert.Contains(t, err.Error(), "400")
}

func TestRun_CaptureAndSubstitute(t *testing.T) {
	scenario := mustParse(t, `
name: capture
description: captured values flow into later paths and bodies
steps:
  - method: POST
    path: /data
    body: {type: person, data: {n: 7}}
    capture: {id: id, n: data.n}
  - method: POST
    path: /data
    body: {type: copy, data: {source: "${id}", n: "${n}", label: "from ${id}"}}
    expect:
      status: 201
      body: {data: {source: rec-1, n: 7, label: from rec-1}}
  - method: GET
    path: /data/${id}
    expect: {status: 200, ids: [rec-1]}
  - method: GET
    path: /data
    capture: {second: 1.id}
    expect: {ids: [rec-1, rec-2]}
`)
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "/data/rec-1", result.Trace[2].Path)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{result.Trace[0].Seq, result.Trace[1].Seq, result.Trace[2].Seq, result.Trace[3].Seq})
}

func TestRun_MissingCapture(t *testing.T) {
	scenario := mustParse(t, `
name: missing_capture
description: capturing an absent path fails the step
steps:
  - method: GET
    path: /meta/version
    capture: {x: nope}
`)
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `no value at "nope"`)
}

func TestRenderTrace(t *testing.T) {
	result := NewResult()
	result.AddTrace(TraceEvent{Method: "POST", Path: "/data", Status: 201, IDs: []string{"rec-1"}})
	result.AddTrace(TraceEvent{Method: "GET", Path: "/data/x", Status: 404})

	want := "scenario: demo\n" +
		"1 POST /data -> 201 [rec-1]\n" +
		"2 GET /data/x -> 404\n" +
		"pass: true\n"
	assert.Equal(t, want, RenderTrace("demo", result))

	result.AddError("boom")
	assert.Contains(t, RenderTrace("demo", result), "pass: false")
}
