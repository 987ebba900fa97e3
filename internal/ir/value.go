package ir

import (
	"slices"
	"strconv"
	"strings"
)

// Document is a schemaless JSON object.
//
// Values are whatever encoding/json produces for untyped targets:
// nil, bool, float64, string, []any and map[string]any.
type Document map[string]any

// SortedKeys returns the document's top-level keys in lexical order.
func (d Document) SortedKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns a shallow copy of the document. A nil document clones to
// an empty, non-nil document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge returns {...d, ...patch}: top-level keys of patch overwrite keys of d,
// keys absent from patch are kept. Nested objects are replaced wholesale,
// never merged. Neither input is modified.
func (d Document) Merge(patch Document) Document {
	out := d.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Lookup resolves a dot-separated path ("author.name") against the document.
// Returns (nil, false) when any segment is missing or traverses a non-object.
func (d Document) Lookup(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, seg := range strings.Split(path, ".") {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case Document:
		return o, true
	default:
		return nil, false
	}
}

// ScalarString returns the string form of a string, number or boolean value.
// Numbers use the shortest representation ("42", "3.5"). Objects, arrays and
// null are not scalars and return ok=false.
func ScalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// IsTextual reports whether v is a string or a number. These are the fields
// searched when a search request names no fields.
func IsTextual(v any) bool {
	switch v.(type) {
	case string, float64, float32, int, int64:
		return true
	default:
		return false
	}
}

// SQLParam converts a JSON scalar into a driver parameter comparable with
// json_extract output. SQLite's JSON functions surface true/false as 1/0,
// so booleans are normalized to integers. Non-scalars return ok=false.
func SQLParam(v any) (any, bool) {
	switch val := v.(type) {
	case bool:
		if val {
			return int64(1), true
		}
		return int64(0), true
	case string, float64, float32, int, int64:
		return val, true
	default:
		return nil, false
	}
}
