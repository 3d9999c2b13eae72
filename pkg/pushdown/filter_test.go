package pushdown

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// scalarFuncExpr stands in for a query engine's scalar-function-call node,
// an Expr implementation outside this package's recognized set, so it must
// always classify as residual regardless of shape.
type scalarFuncExpr struct{}

func (scalarFuncExpr) isExpr() {}

func TestClassifyFiltersSeparatesPushableFromResidual(t *testing.T) {
	filters := []Expr{
		Comparison{Column: "age", Op: OpGte, Literal: float64(18)},
		IsNull{Column: "deleted_at"},
		Not{Child: IsNotNull{Column: "archived_at"}},
		scalarFuncExpr{},
		Not{Child: scalarFuncExpr{}},
	}
	pushable, residual := ClassifyFilters(filters)
	require.Len(t, pushable, 3)
	require.Len(t, residual, 2)
}

func TestExprToFilterComparison(t *testing.T) {
	raw, ok := ExprToFilter(Comparison{Column: "status", Op: OpEq, Literal: "active"})
	require.True(t, ok)

	var node map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &node))
	require.Equal(t, "eq", node["type"])
	require.Equal(t, "status", node["term"])
	require.Equal(t, "active", node["value"])
}

func TestExprToFilterNot(t *testing.T) {
	raw, ok := ExprToFilter(Not{Child: IsNull{Column: "deleted_at"}})
	require.True(t, ok)
	var node map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &node))
	require.Equal(t, "not", node["type"])
	child := node["child"].(map[string]interface{})
	require.Equal(t, "is_null", child["type"])
}

func TestExprToFilterRejectsResidual(t *testing.T) {
	_, ok := ExprToFilter(scalarFuncExpr{})
	require.False(t, ok)
}

func TestTranslateAllReducesLeftToRight(t *testing.T) {
	raw, ok := TranslateAll([]Expr{
		Comparison{Column: "a", Op: OpEq, Literal: float64(1)},
		Comparison{Column: "b", Op: OpEq, Literal: float64(2)},
		Comparison{Column: "c", Op: OpEq, Literal: float64(3)},
	})
	require.True(t, ok)
	var node map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &node))
	require.Equal(t, "and", node["type"])
	right := node["right"].(map[string]interface{})
	require.Equal(t, "c", right["term"])
	left := node["left"].(map[string]interface{})
	require.Equal(t, "and", left["type"])
}

func TestTranslateAllSingleFilterHasNoEnclosingAnd(t *testing.T) {
	raw, ok := TranslateAll([]Expr{Comparison{Column: "a", Op: OpEq, Literal: float64(1)}})
	require.True(t, ok)
	var node map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &node))
	require.Equal(t, "eq", node["type"])
}

func TestTranslateAllEmptyReturnsFalse(t *testing.T) {
	_, ok := TranslateAll(nil)
	require.False(t, ok)
}

func TestPartitionColumnsFiltersByColumnSet(t *testing.T) {
	cols := map[string]bool{"region": true}
	filters := []Expr{
		Comparison{Column: "region", Op: OpEq, Literal: "us"},
		Comparison{Column: "age", Op: OpGte, Literal: float64(18)},
	}
	out := PartitionColumns(filters, cols)
	require.Len(t, out, 1)
	require.Equal(t, "region", out[0].(Comparison).Column)
}
