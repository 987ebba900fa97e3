package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// EncodeDocument serializes a document for storage.
//
// Output is deterministic: object keys are sorted (encoding/json does this
// for maps), HTML characters are not escaped, and every string key and
// value is NFC normalized so visually identical text compares equal in
// json_extract filters. A nil document encodes as "{}".
func EncodeDocument(d Document) (string, error) {
	if d == nil {
		d = Document{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalizeValue(map[string]any(d))); err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// DecodeDocument parses a stored document. Empty input decodes to nil.
func DecodeDocument(s string) (Document, error) {
	if s == "" {
		return nil, nil
	}
	var d Document
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return d, nil
}

// NormalizeString applies the same NFC normalization as EncodeDocument.
func NormalizeString(s string) string {
	return norm.NFC.String(s)
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return norm.NFC.String(val)
	case Document:
		return normalizeValue(map[string]any(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[norm.NFC.String(k)] = normalizeValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeValue(elem)
		}
		return out
	default:
		return val
	}
}
