package interchange_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/ast"
	"github.com/tenor-lang/tenor/internal/index"
	"github.com/tenor-lang/tenor/internal/interchange"
)

func sampleIndex(t *testing.T) *index.Index {
	t.Helper()
	cs := []*ast.Construct{
		{Kind: ast.KindPersona, Persona: &ast.Persona{ID: "reviewer"}},
		{Kind: ast.KindEntity, Entity: &ast.Entity{
			ID: "Order", States: []string{"draft", "submitted"}, Initial: "draft",
			Transitions: []ast.Transition{{From: "draft", To: "submitted"}},
		}},
	}
	idx, err := index.Build(cs)
	require.NoError(t, err)
	return idx
}

func TestEmitIsDeterministic(t *testing.T) {
	idx := sampleIndex(t)
	b1, etag1, err := interchange.Emit(idx, "fixed-id")
	require.NoError(t, err)
	b2, etag2, err := interchange.Emit(idx, "fixed-id")
	require.NoError(t, err)
	require.Equal(t, etag1, etag2)
	if diff := cmp.Diff(string(b1), string(b2)); diff != "" {
		t.Fatalf("canonical bundle bytes differ between identical emits:\n%s", diff)
	}
}

func TestEmitTopLevelShape(t *testing.T) {
	idx := sampleIndex(t)
	b, etag, err := interchange.Emit(idx, "b-1")
	require.NoError(t, err)
	require.Len(t, etag, 64)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Equal(t, "b-1", doc["id"])
	require.Equal(t, "Bundle", doc["kind"])
	require.Equal(t, "1.0", doc["tenor"])
	constructs, ok := doc["constructs"].([]interface{})
	require.True(t, ok)
	require.Len(t, constructs, 2)
}

func TestEmitEntityTransitions(t *testing.T) {
	idx := sampleIndex(t)
	b, _, err := interchange.Emit(idx, "b-1")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &doc))
	constructs := doc["constructs"].([]interface{})
	var entity map[string]interface{}
	for _, c := range constructs {
		m := c.(map[string]interface{})
		if m["kind"] == "Entity" {
			entity = m
		}
	}
	require.NotNil(t, entity)
	require.Equal(t, "draft", entity["initial"])
}
