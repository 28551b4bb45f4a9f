package facts_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/facts"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/values"
)

func buildFactIdx(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindFact, Fact: &ast.Fact{ID: "age", Type: values.Int(nil, nil)}},
		{Kind: ast.KindFact, Fact: &ast.Fact{
			ID: "tier", Type: values.Enum([]string{"gold", "silver"}),
			Default: &ast.Literal{Raw: "silver"},
		}},
	})
	require.NoError(t, err)
	return idx
}

func TestAssembleUsesDefault(t *testing.T) {
	idx := buildFactIdx(t)
	s, err := facts.Assemble(idx, map[string]interface{}{"age": float64(42)})
	require.NoError(t, err)
	require.Equal(t, int64(42), s["age"].I)
	require.Equal(t, "silver", s["tier"].S)
}

func TestAssembleMissingFactNoDefault(t *testing.T) {
	idx, err := index.Build([]*ast.Construct{
		{Kind: ast.KindFact, Fact: &ast.Fact{ID: "age", Type: values.Int(nil, nil)}},
	})
	require.NoError(t, err)
	_, err = facts.Assemble(idx, map[string]interface{}{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "age")
}

func TestAssembleTypeMismatch(t *testing.T) {
	idx := buildFactIdx(t)
	_, err := facts.Assemble(idx, map[string]interface{}{"age": "not a number", "tier": "gold"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "age")
}
