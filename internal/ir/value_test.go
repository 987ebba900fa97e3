package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_ShallowOverwrite(t *testing.T) {
	existing := Document{"a": float64(0), "b": float64(2)}

	merged := existing.Merge(Document{"a": float64(1)})

	assert.Equal(t, Document{"a": float64(1), "b": float64(2)}, merged)
	assert.Equal(t, float64(0), existing["a"], "input must not be modified")
}

func TestMerge_NestedObjectsReplacedWholesale(t *testing.T) {
	existing := Document{"meta": map[string]any{"x": float64(1), "y": float64(2)}}

	merged := existing.Merge(Document{"meta": map[string]any{"x": float64(9)}})

	assert.Equal(t, map[string]any{"x": float64(9)}, merged["meta"])
}

func TestMerge_NilReceiver(t *testing.T) {
	var d Document
	merged := d.Merge(Document{"k": "v"})
	assert.Equal(t, Document{"k": "v"}, merged)
}

func TestLookup(t *testing.T) {
	d := Document{
		"title":  "Hello",
		"author": map[string]any{"name": "Ada", "age": float64(36)},
	}

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"title", "Hello", true},
		{"author.name", "Ada", true},
		{"author.age", float64(36), true},
		{"author.missing", nil, false},
		{"title.deeper", nil, false},
		{"missing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := d.Lookup(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScalarString(t *testing.T) {
	s, ok := ScalarString(float64(42))
	assert.True(t, ok)
	assert.Equal(t, "42", s)

	s, ok = ScalarString(3.5)
	assert.True(t, ok)
	assert.Equal(t, "3.5", s)

	s, ok = ScalarString(true)
	assert.True(t, ok)
	assert.Equal(t, "true", s)

	_, ok = ScalarString(map[string]any{})
	assert.False(t, ok)
	_, ok = ScalarString(nil)
	assert.False(t, ok)
}

func TestSQLParam_NormalizesBooleans(t *testing.T) {
	p, ok := SQLParam(true)
	assert.True(t, ok)
	assert.Equal(t, int64(1), p)

	p, ok = SQLParam(false)
	assert.True(t, ok)
	assert.Equal(t, int64(0), p)

	p, ok = SQLParam("x")
	assert.True(t, ok)
	assert.Equal(t, "x", p)

	_, ok = SQLParam([]any{1})
	assert.False(t, ok)
}

func TestSortedKeys(t *testing.T) {
	d := Document{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, d.SortedKeys())
}
