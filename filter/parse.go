package filter

import (
	"fmt"
	"strings"

	"github.com/valyala/fastjson"
)

// Parse parses a JSON filter document.
//
// Accepted shapes:
//
//	{"field": "v"}                         implicit $eq
//	{"field": {"$in": ["a", "b"]}}         explicit operator
//	{"field": {"$gte": 1, "$lt": 5}}       several operators, implicit $and
//	{"a": "x", "b": "y"}                   several fields, implicit $and
//	{"$and": [{...}, {...}]}               logical operators
//
// Unknown operators and malformed literals fail with ErrInvalidFilter.
func Parse(s string) (*Expression, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidFilter)
	}

	var p fastjson.Parser
	v, err := p.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}

	e, err := parseNode(v)
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func parseNode(v *fastjson.Value) (*Expression, error) {
	o, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrInvalidFilter, v.Type())
	}
	if o.Len() == 0 {
		return nil, fmt.Errorf("%w: empty object", ErrInvalidFilter)
	}

	var (
		parts    []*Expression
		visitErr error
	)
	o.Visit(func(k []byte, fv *fastjson.Value) {
		if visitErr != nil {
			return
		}
		key := string(k)
		var e *Expression
		if strings.HasPrefix(key, "$") {
			e, visitErr = parseLogical(Operator(key), fv)
		} else {
			e, visitErr = parseField(key, fv)
		}
		if visitErr == nil {
			parts = append(parts, e)
		}
	})
	if visitErr != nil {
		return nil, visitErr
	}
	return collapse(parts), nil
}

func parseLogical(op Operator, v *fastjson.Value) (*Expression, error) {
	if !op.IsLogical() {
		if op.known() {
			return nil, fmt.Errorf("%w: operator %s must be applied to a field", ErrInvalidFilter, op)
		}
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, op)
	}
	items, err := v.Array()
	if err != nil {
		return nil, fmt.Errorf("%w: %s expects an array", ErrInvalidFilter, op)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s requires at least one operand", ErrInvalidFilter, op)
	}
	operands := make([]*Expression, 0, len(items))
	for _, item := range items {
		e, err := parseNode(item)
		if err != nil {
			return nil, err
		}
		operands = append(operands, e)
	}
	return &Expression{Op: op, Operands: operands}, nil
}

func parseField(field string, v *fastjson.Value) (*Expression, error) {
	if v.Type() != fastjson.TypeObject {
		lit, err := scalar(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidFilter, field, err)
		}
		return Eq(field, lit), nil
	}

	o, _ := v.Object()
	if o.Len() == 0 {
		return nil, fmt.Errorf("%w: field %q has no operator", ErrInvalidFilter, field)
	}

	var (
		parts    []*Expression
		visitErr error
	)
	o.Visit(func(k []byte, ov *fastjson.Value) {
		if visitErr != nil {
			return
		}
		op := Operator(k)
		if !op.known() || op.IsLogical() {
			visitErr = fmt.Errorf("%w: unknown operator %q on field %q", ErrInvalidFilter, op, field)
			return
		}
		var lit any
		lit, visitErr = literal(op, ov)
		if visitErr != nil {
			visitErr = fmt.Errorf("%w: %s on %q: %w", ErrInvalidFilter, op, field, visitErr)
			return
		}
		parts = append(parts, leaf(op, field, lit))
	})
	if visitErr != nil {
		return nil, visitErr
	}
	return collapse(parts), nil
}

func literal(op Operator, v *fastjson.Value) (any, error) {
	switch op {
	case OpIn, OpNin:
		items, err := v.Array()
		if err != nil {
			return nil, fmt.Errorf("expected array, got %s", v.Type())
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			s, err := scalar(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case OpExists:
		b, err := v.Bool()
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %s", v.Type())
		}
		return b, nil
	default:
		return scalar(v)
	}
}

func scalar(v *fastjson.Value) (any, error) {
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b), nil
	case fastjson.TypeNumber:
		return v.Float64()
	case fastjson.TypeTrue:
		return true, nil
	case fastjson.TypeFalse:
		return false, nil
	default:
		return nil, fmt.Errorf("expected scalar, got %s", v.Type())
	}
}

func collapse(parts []*Expression) *Expression {
	if len(parts) == 1 {
		return parts[0]
	}
	return And(parts...)
}
