package filter

import (
	"encoding/json"
	"testing"

	"github.com/hupe1980/s3vkit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hybridFilter = `{"$and":[{"category":{"$eq":"apples"}},{"origin":{"$in":["NL","DE"]}}]}`

func TestParse(t *testing.T) {
	t.Run("AndOfEqAndIn", func(t *testing.T) {
		e, err := Parse(hybridFilter)
		require.NoError(t, err)
		require.Equal(t, OpAnd, e.Op)
		require.Len(t, e.Operands, 2)
		assert.Equal(t, Eq("category", "apples"), e.Operands[0])
		assert.Equal(t, In("origin", "NL", "DE"), e.Operands[1])
	})

	t.Run("ImplicitEq", func(t *testing.T) {
		e, err := Parse(`{"kind":"smoke"}`)
		require.NoError(t, err)
		assert.Equal(t, Eq("kind", "smoke"), e)
	})

	t.Run("ImplicitAndAcrossFields", func(t *testing.T) {
		e, err := Parse(`{"a":"x","b":true}`)
		require.NoError(t, err)
		assert.Equal(t, And(Eq("a", "x"), Eq("b", true)), e)
	})

	t.Run("SeveralOperatorsOnOneField", func(t *testing.T) {
		e, err := Parse(`{"year":{"$gte":2020,"$lt":2025}}`)
		require.NoError(t, err)
		assert.Equal(t, And(Gte("year", float64(2020)), Lt("year", float64(2025))), e)
	})

	t.Run("OrAndExists", func(t *testing.T) {
		e, err := Parse(`{"$or":[{"genre":{"$nin":["x"]}},{"rating":{"$exists":false}}]}`)
		require.NoError(t, err)
		assert.Equal(t, Or(Nin("genre", "x"), Exists("rating", false)), e)
	})
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"Empty":             ``,
		"Whitespace":        `   `,
		"Malformed":         `{"a":`,
		"NotObject":         `["a"]`,
		"EmptyObject":       `{}`,
		"UnknownTopLevel":   `{"$xor":[{"a":"b"}]}`,
		"UnknownFieldOp":    `{"a":{"$regex":"b"}}`,
		"FieldOpAtTop":      `{"$eq":"b"}`,
		"EmptyAnd":          `{"$and":[]}`,
		"AndNotArray":       `{"$and":{"a":"b"}}`,
		"InNotArray":        `{"a":{"$in":"b"}}`,
		"InNested":          `{"a":{"$in":[["b"]]}}`,
		"GtNotNumber":       `{"a":{"$gt":"b"}}`,
		"ExistsNotBool":     `{"a":{"$exists":1}}`,
		"NullLiteral":       `{"a":null}`,
		"FieldWithoutOps":   `{"a":{}}`,
		"LogicalInsideLeaf": `{"a":{"$and":[]}}`,
		"EmptyIn":           `{"a":{"$in":[]}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(doc)
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, And(Eq("a", 1), In("b", "x", 2, true)).Validate())

	assert.ErrorIs(t, (&Expression{Op: "$like", Field: "a", Value: "b"}).Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Eq("", "b").Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Eq("$a", "b").Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Eq("a", []string{"b"}).Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, And().Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, And(nil).Validate(), ErrInvalidFilter)

	var nilExpr *Expression
	assert.ErrorIs(t, nilExpr.Validate(), ErrInvalidFilter)
}

func TestDocumentRoundTrip(t *testing.T) {
	e, err := Parse(hybridFilter)
	require.NoError(t, err)

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, hybridFilter, string(b))
	assert.JSONEq(t, hybridFilter, e.String())

	again, err := Parse(string(b))
	require.NoError(t, err)
	assert.Equal(t, e, again)
}

func TestMatches(t *testing.T) {
	e, err := Parse(hybridFilter)
	require.NoError(t, err)

	assert.True(t, e.Matches(model.Metadata{"category": "apples", "origin": "NL"}))
	assert.False(t, e.Matches(model.Metadata{"category": "apples", "origin": "FR"}))
	assert.False(t, e.Matches(model.Metadata{"category": "pears", "origin": "NL"}))
	assert.False(t, e.Matches(model.Metadata{"category": "apples"}))

	t.Run("NumbersAcrossTypes", func(t *testing.T) {
		assert.True(t, Eq("n", 1).Matches(model.Metadata{"n": float64(1)}))
		assert.True(t, Gt("n", 1).Matches(model.Metadata{"n": int64(2)}))
		assert.False(t, Lte("n", 1).Matches(model.Metadata{"n": 2}))
		assert.False(t, Gt("n", 1).Matches(model.Metadata{"n": "2"}))
	})

	t.Run("NegationsMatchMissing", func(t *testing.T) {
		assert.True(t, Ne("a", "x").Matches(model.Metadata{}))
		assert.True(t, Nin("a", "x").Matches(model.Metadata{}))
		assert.False(t, Nin("a", "x").Matches(model.Metadata{"a": "x"}))
	})

	t.Run("Exists", func(t *testing.T) {
		assert.True(t, Exists("a", true).Matches(model.Metadata{"a": false}))
		assert.True(t, Exists("a", false).Matches(model.Metadata{}))
	})

	t.Run("Or", func(t *testing.T) {
		e := Or(Eq("a", "x"), Eq("b", "y"))
		assert.True(t, e.Matches(model.Metadata{"b": "y"}))
		assert.False(t, e.Matches(model.Metadata{"a": "y"}))
	})

	t.Run("ListMetadata", func(t *testing.T) {
		assert.True(t, Eq("tags", "red").Matches(model.Metadata{"tags": []any{"blue", "red"}}))
	})

	t.Run("NilExpressionMatchesAll", func(t *testing.T) {
		var e *Expression
		assert.True(t, e.Matches(model.Metadata{"a": 1}))
	})
}
