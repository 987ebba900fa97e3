package queryir

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/entgraph/internal/ir"
)

// Request is the wire shape of a list/find query.
type Request struct {
	Type    string         `json:"type"`
	Where   map[string]any `json:"where,omitempty"`
	OrderBy string         `json:"orderBy,omitempty"`
	Order   string         `json:"order,omitempty"` // "desc" for descending, anything else ascending
	Limit   *int           `json:"limit,omitempty"`
	Offset  *int           `json:"offset,omitempty"`
}

// FieldPolicy decides what happens to invalid field names.
type FieldPolicy int

const (
	// PolicyDrop silently leaves clauses with invalid names out of the query.
	PolicyDrop FieldPolicy = iota
	// PolicyReject fails the whole request with a *FieldError.
	PolicyReject
)

// ParsePolicy maps a config value ("drop" or "reject") to a FieldPolicy.
// The empty string selects PolicyDrop.
func ParsePolicy(s string) (FieldPolicy, error) {
	switch s {
	case "", "drop":
		return PolicyDrop, nil
	case "reject":
		return PolicyReject, nil
	default:
		return PolicyDrop, fmt.Errorf("unknown field policy %q (want drop or reject)", s)
	}
}

func (p FieldPolicy) String() string {
	if p == PolicyReject {
		return "reject"
	}
	return "drop"
}

var (
	// ErrMissingType is returned when a request names no record type.
	ErrMissingType = errors.New("type is required")

	// ErrNegativePagination is returned for a negative limit or offset.
	ErrNegativePagination = errors.New("limit and offset must be non-negative")
)

// Result is a parsed query plus the field names dropped under PolicyDrop.
type Result struct {
	Query   Select
	Dropped []string
}

// operatorOrder fixes the order operator-map entries compile in, so the
// same request always yields the same SQL.
var operatorOrder = []struct {
	key string
	op  Op
}{
	{"$gt", OpGt},
	{"$gte", OpGte},
	{"$lt", OpLt},
	{"$lte", OpLte},
	{"$ne", OpNe},
}

// Parse converts a request into a Select.
//
// Filter semantics per where entry (keys processed in sorted order):
//   - null          → IsNull
//   - scalar        → Compare(=), booleans normalized to 1/0
//   - operator map  → $gt/$gte/$lt/$lte/$ne comparisons and $in membership;
//     $in needs a non-empty array, $ne: null means IS NOT NULL, unknown
//     operators are ignored
//   - arrays and objects without operators produce no predicate
//
// An invalid orderBy falls back to insertion order under PolicyDrop.
func Parse(req Request, policy FieldPolicy) (Result, error) {
	if req.Type == "" {
		return Result{}, ErrMissingType
	}
	if (req.Limit != nil && *req.Limit < 0) || (req.Offset != nil && *req.Offset < 0) {
		return Result{}, ErrNegativePagination
	}

	res := Result{Query: Select{
		Type:   req.Type,
		Desc:   req.Order == "desc",
		Limit:  req.Limit,
		Offset: req.Offset,
	}}

	keys := make([]string, 0, len(req.Where))
	for k := range req.Where {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var preds []Predicate
	for _, field := range keys {
		if !ValidField(field) {
			if policy == PolicyReject {
				return Result{}, &FieldError{Clause: "where", Field: field}
			}
			res.Dropped = append(res.Dropped, field)
			continue
		}
		preds = append(preds, fieldPredicates(field, req.Where[field])...)
	}
	if len(preds) > 0 {
		res.Query.Filter = And{Predicates: preds}
	}

	if req.OrderBy != "" {
		if ValidField(req.OrderBy) {
			res.Query.OrderBy = req.OrderBy
		} else if policy == PolicyReject {
			return Result{}, &FieldError{Clause: "orderBy", Field: req.OrderBy}
		} else {
			res.Dropped = append(res.Dropped, req.OrderBy)
		}
	}

	return res, nil
}

func fieldPredicates(field string, value any) []Predicate {
	if value == nil {
		return []Predicate{IsNull{Field: field}}
	}
	if ops, ok := value.(map[string]any); ok {
		return operatorPredicates(field, ops)
	}
	if param, ok := ir.SQLParam(value); ok {
		return []Predicate{Compare{Field: field, Op: OpEq, Value: param}}
	}
	return nil
}

func operatorPredicates(field string, ops map[string]any) []Predicate {
	var preds []Predicate
	for _, o := range operatorOrder {
		v, present := ops[o.key]
		if !present {
			continue
		}
		if v == nil {
			if o.op == OpNe {
				preds = append(preds, IsNull{Field: field, Not: true})
			}
			continue
		}
		if param, ok := ir.SQLParam(v); ok {
			preds = append(preds, Compare{Field: field, Op: o.op, Value: param})
		}
	}

	if list, ok := ops["$in"].([]any); ok {
		var values []any
		for _, v := range list {
			if param, ok := ir.SQLParam(v); ok {
				values = append(values, param)
			}
		}
		if len(values) > 0 {
			preds = append(preds, In{Field: field, Values: values})
		}
	}
	return preds
}
