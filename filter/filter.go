package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilter is returned for malformed filters and unknown operators.
var ErrInvalidFilter = errors.New("invalid filter")

// Operator is a filter operator as spelled on the wire.
type Operator string

const (
	// OpEq matches exact scalar equality.
	OpEq Operator = "$eq"
	// OpNe matches inequality (or a missing field).
	OpNe Operator = "$ne"
	// OpGt matches numbers greater than the literal.
	OpGt Operator = "$gt"
	// OpGte matches numbers greater than or equal to the literal.
	OpGte Operator = "$gte"
	// OpLt matches numbers less than the literal.
	OpLt Operator = "$lt"
	// OpLte matches numbers less than or equal to the literal.
	OpLte Operator = "$lte"
	// OpIn matches set membership.
	OpIn Operator = "$in"
	// OpNin matches set non-membership (or a missing field).
	OpNin Operator = "$nin"
	// OpExists matches field presence (true) or absence (false).
	OpExists Operator = "$exists"
	// OpAnd requires all operands to match.
	OpAnd Operator = "$and"
	// OpOr requires at least one operand to match.
	OpOr Operator = "$or"
)

// IsLogical reports whether op combines sub-expressions.
func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

func (op Operator) known() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNin, OpExists, OpAnd, OpOr:
		return true
	default:
		return false
	}
}

// Expression is a node of a metadata filter.
//
// Leaf nodes bind Field to Value under a comparison operator. Logical nodes
// ($and, $or) carry Operands and leave Field and Value empty.
type Expression struct {
	Op       Operator
	Field    string
	Value    any
	Operands []*Expression
}

// Eq builds {field: {"$eq": value}}.
func Eq(field string, value any) *Expression { return leaf(OpEq, field, value) }

// Ne builds {field: {"$ne": value}}.
func Ne(field string, value any) *Expression { return leaf(OpNe, field, value) }

// Gt builds {field: {"$gt": value}}.
func Gt(field string, value any) *Expression { return leaf(OpGt, field, value) }

// Gte builds {field: {"$gte": value}}.
func Gte(field string, value any) *Expression { return leaf(OpGte, field, value) }

// Lt builds {field: {"$lt": value}}.
func Lt(field string, value any) *Expression { return leaf(OpLt, field, value) }

// Lte builds {field: {"$lte": value}}.
func Lte(field string, value any) *Expression { return leaf(OpLte, field, value) }

// In builds {field: {"$in": [values...]}}.
func In(field string, values ...any) *Expression { return leaf(OpIn, field, values) }

// Nin builds {field: {"$nin": [values...]}}.
func Nin(field string, values ...any) *Expression { return leaf(OpNin, field, values) }

// Exists builds {field: {"$exists": present}}.
func Exists(field string, present bool) *Expression { return leaf(OpExists, field, present) }

// And builds {"$and": [operands...]}.
func And(operands ...*Expression) *Expression {
	return &Expression{Op: OpAnd, Operands: operands}
}

// Or builds {"$or": [operands...]}.
func Or(operands ...*Expression) *Expression {
	return &Expression{Op: OpOr, Operands: operands}
}

func leaf(op Operator, field string, value any) *Expression {
	return &Expression{Op: op, Field: field, Value: value}
}

// Validate checks operators and literal types recursively.
func (e *Expression) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil expression", ErrInvalidFilter)
	}
	if !e.Op.known() {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, e.Op)
	}

	if e.Op.IsLogical() {
		if len(e.Operands) == 0 {
			return fmt.Errorf("%w: %s requires at least one operand", ErrInvalidFilter, e.Op)
		}
		for _, o := range e.Operands {
			if err := o.Validate(); err != nil {
				return err
			}
		}
		return nil
	}

	if e.Field == "" {
		return fmt.Errorf("%w: %s without field name", ErrInvalidFilter, e.Op)
	}
	if strings.HasPrefix(e.Field, "$") {
		return fmt.Errorf("%w: field name %q must not start with '$'", ErrInvalidFilter, e.Field)
	}

	switch e.Op {
	case OpEq, OpNe:
		if !isScalar(e.Value) {
			return fmt.Errorf("%w: %s on %q needs a scalar, got %T", ErrInvalidFilter, e.Op, e.Field, e.Value)
		}
	case OpGt, OpGte, OpLt, OpLte:
		if _, ok := toFloat(e.Value); !ok {
			return fmt.Errorf("%w: %s on %q needs a number, got %T", ErrInvalidFilter, e.Op, e.Field, e.Value)
		}
	case OpIn, OpNin:
		values, ok := e.Value.([]any)
		if !ok || len(values) == 0 {
			return fmt.Errorf("%w: %s on %q needs a non-empty list", ErrInvalidFilter, e.Op, e.Field)
		}
		for _, v := range values {
			if !isScalar(v) {
				return fmt.Errorf("%w: %s on %q has non-scalar member %T", ErrInvalidFilter, e.Op, e.Field, v)
			}
		}
	case OpExists:
		if _, ok := e.Value.(bool); !ok {
			return fmt.Errorf("%w: %s on %q needs a boolean", ErrInvalidFilter, e.Op, e.Field)
		}
	}
	return nil
}

// Document returns the wire representation as nested maps and slices,
// suitable for JSON or smithy document encoding.
func (e *Expression) Document() map[string]any {
	if e.Op.IsLogical() {
		operands := make([]any, len(e.Operands))
		for i, o := range e.Operands {
			operands[i] = o.Document()
		}
		return map[string]any{string(e.Op): operands}
	}
	return map[string]any{e.Field: map[string]any{string(e.Op): e.Value}}
}

// MarshalJSON implements json.Marshaler.
func (e *Expression) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Document())
}

// String returns the JSON form of the expression.
func (e *Expression) String() string {
	if e == nil {
		return "<nil>"
	}
	b, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid filter: %v>", err)
	}
	return string(b)
}
