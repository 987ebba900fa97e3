package queryir

// Select is a query over the records table of one type.
//
// Semantics:
//
//	SELECT * FROM records WHERE type = <Type> AND <Filter>
//	ORDER BY <OrderBy> [DESC], created_at, rowid
//	LIMIT <Limit> OFFSET <Offset>
//
// An empty OrderBy means insertion order. Nil Limit means unbounded; Offset
// may be set without Limit.
type Select struct {
	Type    string
	Filter  Predicate // nil = no filter
	OrderBy string    // document path, "" = insertion order
	Desc    bool
	Limit   *int
	Offset  *int
}

// Predicate represents a filter condition on a document field.
//
// Predicate types:
//   - Compare: field <op> value
//   - IsNull: field IS [NOT] NULL
//   - In: field IN (values...)
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "!="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

// Compare compares a document field with a literal scalar.
// Value is a driver-ready parameter (string, float64, int64).
type Compare struct {
	Field string
	Op    Op
	Value any
}

func (Compare) predicateNode() {}

// IsNull matches documents where the field is null or absent.
// Not inverts the test.
type IsNull struct {
	Field string
	Not   bool
}

func (IsNull) predicateNode() {}

// In matches documents whose field equals one of Values.
// Values is never empty in a parsed query.
type In struct {
	Field  string
	Values []any
}

func (In) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
