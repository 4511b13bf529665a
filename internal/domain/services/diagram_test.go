package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/mocks"
)

func edgeIDs(d *entities.Diagram) []string {
	ids := make([]string, len(d.Edges))
	for i := range d.Edges {
		ids[i] = d.Edges[i].ID
	}
	return ids
}

func nodeIDs(d *entities.Diagram) []string {
	ids := make([]string, len(d.Nodes))
	for i := range d.Nodes {
		ids[i] = d.Nodes[i].ID
	}
	return ids
}

func TestDiagramProjector_ForScope(t *testing.T) {
	store := mocks.NewRelationshipStore(
		seedRel("r1", "A", "B", entities.RelationRelated),
		seedRel("r2", "B", "C", entities.RelationParent),
	)
	catalog := mocks.NewTermCatalog().WithTerms("A", "B", "C")
	p := NewDiagramProjector(store, catalog, nil)

	d, err := p.ForScope(context.Background(), []string{"A", "B"})

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, nodeIDs(d))
	require.Len(t, d.Edges, 1)
	assert.Equal(t, "A", d.Edges[0].Source)
	assert.Equal(t, "B", d.Edges[0].Target)
	assert.Equal(t, entities.RelationRelated, d.Edges[0].Type)
	for _, e := range d.Edges {
		assert.NotEqual(t, "C", e.Source)
		assert.NotEqual(t, "C", e.Target)
	}
}

func TestDiagramProjector_ForScope_Details(t *testing.T) {
	store := mocks.NewRelationshipStore(
		seedRel("r3", "C", "A", entities.RelationSynonym),
		seedRel("r1", "A", "B", entities.RelationRelated),
		seedRel("r2", "B", "D", entities.RelationParent),
	)
	catalog := mocks.NewTermCatalog(entities.Term{
		ID:        "A",
		Name:      "Aggregate",
		Status:    entities.TermStatusActive,
		Essential: true,
	}).WithTerms("B", "C", "D")
	p := NewDiagramProjector(store, catalog, nil)

	d, err := p.ForScope(context.Background(), []string{"C", "A", "missing", "B", "A"})

	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, nodeIDs(d))
	assert.Equal(t, "Aggregate", d.Nodes[1].Name)
	assert.True(t, d.Nodes[1].Essential)
	assert.Equal(t, []string{"r1", "r3"}, edgeIDs(d))
}

func TestDiagramProjector_ForScope_Empty(t *testing.T) {
	p := NewDiagramProjector(mocks.NewRelationshipStore(), mocks.NewTermCatalog(), nil)

	d, err := p.ForScope(context.Background(), nil)

	require.NoError(t, err)
	assert.NotNil(t, d.Nodes)
	assert.NotNil(t, d.Edges)
	assert.Empty(t, d.Nodes)
}

func TestDiagramProjector_ForScope_Errors(t *testing.T) {
	t.Run("store", func(t *testing.T) {
		store := mocks.NewRelationshipStore()
		store.Err = errors.New("store down")
		p := NewDiagramProjector(store, mocks.NewTermCatalog().WithTerms("A"), nil)

		_, err := p.ForScope(context.Background(), []string{"A"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "store down")
	})

	t.Run("terms", func(t *testing.T) {
		catalog := mocks.NewTermCatalog().WithTerms("A")
		catalog.Err = errors.New("catalog down")
		p := NewDiagramProjector(mocks.NewRelationshipStore(), catalog, nil)

		_, err := p.ForScope(context.Background(), []string{"A"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog down")
	})
}

func TestDiagramProjector_ForContext(t *testing.T) {
	store := mocks.NewRelationshipStore(
		seedRel("r1", "order", "customer", entities.RelationAssociation),
		seedRel("r2", "order", "invoice", entities.RelationAssociation),
	)
	catalog := mocks.NewTermCatalog(
		entities.Term{ID: "order", Name: "Order", ContextID: "sales"},
		entities.Term{ID: "customer", Name: "Customer", ContextID: "sales"},
		entities.Term{ID: "invoice", Name: "Invoice", ContextID: "billing"},
	)
	p := NewDiagramProjector(store, catalog, nil)

	d, err := p.ForContext(context.Background(), "sales")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"order", "customer"}, nodeIDs(d))
	assert.Equal(t, []string{"r1"}, edgeIDs(d))
}
