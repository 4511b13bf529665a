package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
)

func TestParseRelationType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected RelationType
		wantErr  bool
	}{
		{name: "parent", input: "parent", expected: RelationParent},
		{name: "structural type", input: "inheritance", expected: RelationInheritance},
		{name: "case and whitespace insensitive", input: "  Synonym ", expected: RelationSynonym},
		{name: "unknown type", input: "sibling", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := ParseRelationType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rt)
		})
	}
}

func TestHierarchyRules_Edge(t *testing.T) {
	rules := DefaultHierarchyRules()

	t.Run("parent points at the parent", func(t *testing.T) {
		child, parent, ok := rules.Edge(&Relationship{SourceTermID: "a", TargetTermID: "b", Type: RelationParent})
		require.True(t, ok)
		assert.Equal(t, "a", child)
		assert.Equal(t, "b", parent)
	})

	t.Run("child points at the child", func(t *testing.T) {
		child, parent, ok := rules.Edge(&Relationship{SourceTermID: "a", TargetTermID: "b", Type: RelationChild})
		require.True(t, ok)
		assert.Equal(t, "b", child)
		assert.Equal(t, "a", parent)
	})

	t.Run("non-hierarchical type", func(t *testing.T) {
		_, _, ok := rules.Edge(&Relationship{SourceTermID: "a", TargetTermID: "b", Type: RelationRelated})
		assert.False(t, ok)
		assert.False(t, rules.IsHierarchical(RelationAggregation))
	})
}

func TestParseHierarchyRules(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		rules, err := ParseHierarchyRules(map[string]string{
			"aggregation": "target_is_child",
			"parent":      "target_is_parent",
		})
		require.NoError(t, err)
		assert.Equal(t, []RelationType{RelationAggregation, RelationParent}, rules.Types())
	})

	t.Run("invalid orientation", func(t *testing.T) {
		_, err := ParseHierarchyRules(map[string]string{"parent": "upwards"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parent")
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := ParseHierarchyRules(map[string]string{"owns": "target_is_parent"})
		require.Error(t, err)
	})
}

func TestParseTermStatus(t *testing.T) {
	status, err := ParseTermStatus("archived")
	require.NoError(t, err)
	assert.Equal(t, TermStatusDeprecated, status)

	status, err = ParseTermStatus("")
	require.NoError(t, err)
	assert.Equal(t, TermStatusDraft, status)

	_, err = ParseTermStatus("published")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestRelationship_Other(t *testing.T) {
	rel := Relationship{SourceTermID: "a", TargetTermID: "b"}
	assert.Equal(t, "b", rel.Other("a"))
	assert.Equal(t, "a", rel.Other("b"))
	assert.True(t, rel.Touches("b"))
	assert.False(t, rel.Touches("c"))
}

func TestHierarchyNode_Size(t *testing.T) {
	var empty *HierarchyNode
	assert.Equal(t, 0, empty.Size())

	root := &HierarchyNode{TermID: "a", Children: []*HierarchyNode{
		{TermID: "b", Children: []*HierarchyNode{{TermID: "c"}}},
		{TermID: "d"},
	}}
	assert.Equal(t, 4, root.Size())
}
