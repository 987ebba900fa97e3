// Package queryir provides the intermediate representation of record
// queries and the parser that builds it from filter/sort/paginate requests.
//
// ARCHITECTURE:
//
//	[Request JSON] → Parse → [Select IR] → querysql.Compile → [SQL + params]
//
// The IR is deliberately small: a conjunction of predicates over document
// fields, an optional order field and pagination. Values in the IR are
// already normalized for SQLite (booleans as 1/0, see ir.SQLParam).
//
// FIELD NAMES:
//
// Every field referenced in where or orderBy must match
//
//	^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$
//
// i.e. an identifier, optionally dot-separated into a nested path. What
// happens to names that fail is decided by the FieldPolicy:
//
//   - PolicyDrop (default): the clause is silently left out of the query
//     and reported in Result.Dropped. A hostile key such as
//     "a; DROP TABLE x" therefore yields the same rows as an empty filter.
//   - PolicyReject: Parse fails with a *FieldError.
//
// Either way an invalid name never reaches SQL text. The compiler
// re-checks every field in the IR (Validate) and refuses to compile one
// that slipped through, so a hand-built IR cannot inject either.
//
// SEALED INTERFACES:
//
// Predicate is sealed with a marker method so compilers can switch
// exhaustively over Compare, IsNull, In and And.
package queryir
