package queryir

import (
	"fmt"
	"regexp"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidField reports whether name is safe to use as a document path.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// FieldError reports a field name rejected under PolicyReject, or an unsafe
// field found in a hand-built Select.
type FieldError struct {
	Clause string // "where" or "orderBy"
	Field  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid field name in %s: %q", e.Clause, e.Field)
}

// Validate checks every field referenced by the query and returns the first
// unsafe one as a *FieldError. Parse never produces such a query; Validate
// guards queries built by hand before they are compiled to SQL.
//
// Validate is a pure function with no side effects.
func Validate(q Select) error {
	if q.OrderBy != "" && !ValidField(q.OrderBy) {
		return &FieldError{Clause: "orderBy", Field: q.OrderBy}
	}
	return validatePredicate(q.Filter)
}

func validatePredicate(p Predicate) error {
	var field string
	switch pred := p.(type) {
	case nil:
		return nil
	case Compare:
		field = pred.Field
	case *Compare:
		field = pred.Field
	case IsNull:
		field = pred.Field
	case *IsNull:
		field = pred.Field
	case In:
		field = pred.Field
	case *In:
		field = pred.Field
	case And:
		return validateAnd(pred)
	case *And:
		return validateAnd(*pred)
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
	if !ValidField(field) {
		return &FieldError{Clause: "where", Field: field}
	}
	return nil
}

func validateAnd(and And) error {
	for _, sub := range and.Predicates {
		if err := validatePredicate(sub); err != nil {
			return err
		}
	}
	return nil
}
