package filter

import (
	"github.com/hupe1980/s3vkit/model"
)

// Matches evaluates e against a metadata document.
//
// The service is authoritative; this is used by the in-memory store and to
// double-check results returned by the service.
func (e *Expression) Matches(doc model.Metadata) bool {
	if e == nil {
		return true
	}

	switch e.Op {
	case OpAnd:
		for _, o := range e.Operands {
			if !o.Matches(doc) {
				return false
			}
		}
		return true
	case OpOr:
		for _, o := range e.Operands {
			if o.Matches(doc) {
				return true
			}
		}
		return false
	}

	value, exists := doc[e.Field]

	switch e.Op {
	case OpExists:
		want, _ := e.Value.(bool)
		return exists == want
	case OpNe:
		return !exists || !compareEqual(value, e.Value)
	case OpNin:
		return !exists || !compareIn(value, e.Value)
	}

	if !exists {
		return false
	}

	switch e.Op {
	case OpEq:
		return compareEqual(value, e.Value)
	case OpGt:
		return compareNumbers(value, e.Value, func(a, b float64) bool { return a > b })
	case OpGte:
		return compareNumbers(value, e.Value, func(a, b float64) bool { return a >= b })
	case OpLt:
		return compareNumbers(value, e.Value, func(a, b float64) bool { return a < b })
	case OpLte:
		return compareNumbers(value, e.Value, func(a, b float64) bool { return a <= b })
	case OpIn:
		return compareIn(value, e.Value)
	default:
		return false
	}
}

// compareEqual compares a metadata value with a literal. A list-valued
// metadata field equals the literal if any element does.
func compareEqual(a, b any) bool {
	if list, ok := a.([]any); ok {
		for _, item := range list {
			if compareEqual(item, b) {
				return true
			}
		}
		return false
	}

	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

func compareIn(a, set any) bool {
	values, ok := set.([]any)
	if !ok {
		return false
	}
	for _, item := range values {
		if compareEqual(a, item) {
			return true
		}
	}
	return false
}

func compareNumbers(a, b any, cmp func(a, b float64) bool) bool {
	fa, ok := toFloat(a)
	if !ok {
		return false
	}
	fb, ok := toFloat(b)
	if !ok {
		return false
	}
	return cmp(fa, fb)
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	_, ok := toFloat(v)
	return ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
