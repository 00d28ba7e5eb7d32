package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/pgnav/internal/models"
)

func TestBuild_FillsMissingSchemas(t *testing.T) {
	tree := Build([]string{"public", "reporting"}, RawObjects{})

	require.Equal(t, 2, tree.Len())
	for _, name := range []string{"public", "reporting"} {
		node, ok := tree.Nodes[name]
		require.True(t, ok, "schema %s missing", name)
		require.Len(t, node.Groups, 5)
		for _, kind := range models.ObjectKinds {
			group, ok := node.Groups[kind]
			assert.True(t, ok, "%s.%s group missing", name, kind)
			assert.NotNil(t, group)
			assert.Empty(t, group)
		}
	}
	assert.Empty(t, tree.Autocomplete)
}

func TestBuild_IdsAndAutocomplete(t *testing.T) {
	raw := RawObjects{
		"public": {
			models.KindTable:    {{Name: "users"}, {Name: "accounts"}},
			models.KindView:     {{Name: "active_users"}},
			models.KindFunction: {{Name: "add", ID: "16401"}, {Name: "add", ID: "16402"}},
			models.KindSequence: {{Name: "users_id_seq"}},
		},
		"sales": {
			models.KindMaterializedView: {{Name: "monthly"}},
		},
	}

	tree := Build([]string{"public", "sales"}, raw)

	users := tree.Nodes["public"].Groups[models.KindTable][0]
	assert.Equal(t, "public.users", users.ID)

	funcs := tree.Nodes["public"].Groups[models.KindFunction]
	require.Len(t, funcs, 2)
	assert.Equal(t, "16401", funcs[0].ID)
	assert.Equal(t, "16402", funcs[1].ID)

	assert.Equal(t, "sales.monthly", tree.Nodes["sales"].Groups[models.KindMaterializedView][0].ID)

	var labels []string
	for _, item := range tree.Autocomplete {
		assert.NotEqual(t, models.KindSequence, item.Kind)
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"accounts", "active_users", "add", "add", "monthly", "users"}, labels)
}

func TestBuild_Expansion(t *testing.T) {
	tree := Build([]string{"audit", "public"}, nil)
	assert.True(t, tree.Nodes["public"].Expanded)
	assert.True(t, tree.Nodes["public"].Open[models.KindTable])
	assert.False(t, tree.Nodes["audit"].Expanded)
	assert.Equal(t, []string{"public", "audit"}, tree.Schemas())

	single := Build([]string{"warehouse"}, nil)
	assert.True(t, single.Nodes["warehouse"].Expanded)
	assert.False(t, single.Nodes["warehouse"].Open[models.KindTable])
}

func TestBuild_KeepsSchemasOnlyInObjects(t *testing.T) {
	raw := RawObjects{"staging": {models.KindTable: {{Name: "load"}}}}
	tree := Build([]string{"public"}, raw)

	assert.Equal(t, []string{"public", "staging"}, tree.Schemas())
	ref, ok := tree.Find("staging.load")
	require.True(t, ok)
	assert.Equal(t, models.ObjectRef{Schema: "staging", Name: "load", Kind: models.KindTable, ID: "staging.load"}, ref)
}

func TestRawObjects_UnmarshalMixedShapes(t *testing.T) {
	payload := `{
		"public": {
			"table": ["users", {"name": "orders", "oid": 16390}],
			"function": [{"name": "add", "id": "public.add(integer, integer)"}],
			"foreign_table": ["ignored"]
		}
	}`

	var raw RawObjects
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	tables := raw["public"][models.KindTable]
	require.Len(t, tables, 2)
	assert.Equal(t, RawObject{Name: "users"}, tables[0])
	assert.Equal(t, RawObject{Name: "orders", ID: "16390"}, tables[1])

	tree := Build([]string{"public"}, raw)
	fn := tree.Nodes["public"].Groups[models.KindFunction][0]
	assert.Equal(t, "public.add(integer, integer)", fn.ID)
}

func TestFindByName(t *testing.T) {
	raw := RawObjects{
		"public": {models.KindTable: {{Name: "users"}}},
		"app":    {models.KindView: {{Name: "users"}}},
	}
	tree := Build([]string{"public", "app"}, raw)

	ref, ok := tree.FindByName("", "users")
	require.True(t, ok)
	assert.Equal(t, "public", ref.Schema)

	ref, ok = tree.FindByName("app", "users")
	require.True(t, ok)
	assert.Equal(t, models.KindView, ref.Kind)

	_, ok = tree.FindByName("", "missing")
	assert.False(t, ok)
}
