// Package ir provides the shared data types of the entity store.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Documents are schemaless: a Document is a plain JSON object
//     (map[string]any) addressed by dot-separated paths.
//   - Timestamps are ISO-8601 UTC strings with millisecond precision.
//   - All JSON tags use snake_case.
//   - Strings are NFC normalized at the storage boundary (EncodeDocument).
package ir
