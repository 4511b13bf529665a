package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/mocks"
	"github.com/ersonp/termgraph/internal/domain/services"
)

func newTestRelationshipHandler(rels ...entities.Relationship) (*RelationshipHandler, *mocks.RelationshipStore) {
	store := mocks.NewRelationshipStore(rels...)
	catalog := mocks.NewTermCatalog().WithTerms("A", "B", "C")
	svc := services.NewRelationshipService(store, catalog, entities.DefaultHierarchyRules())
	return NewRelationshipHandler(svc), store
}

func rel(id, source, target string, relType entities.RelationType) entities.Relationship {
	return entities.Relationship{ID: id, SourceTermID: source, TargetTermID: target, Type: relType}
}

func TestRelationshipHandler_HandleCreate(t *testing.T) {
	h, store := newTestRelationshipHandler()

	created, err := h.HandleCreate(context.Background(), CreateRelationshipRequest{
		Source:      "A",
		Target:      "B",
		Type:        "Parent",
		Description: "A specializes B",
	})

	require.NoError(t, err)
	assert.Equal(t, entities.RelationParent, created.Type)
	assert.Equal(t, 1, store.InsertCallCount)
}

func TestRelationshipHandler_HandleCreate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRelationshipRequest
		message string
	}{
		{"missing source", CreateRelationshipRequest{Target: "B", Type: "related"}, "source is required"},
		{"missing type", CreateRelationshipRequest{Source: "A", Target: "B"}, "type is required"},
		{"unknown type", CreateRelationshipRequest{Source: "A", Target: "B", Type: "sibling"}, "not a relation type"},
		{
			"description too long",
			CreateRelationshipRequest{Source: "A", Target: "B", Type: "related", Description: strings.Repeat("x", MaxDescriptionLength+1)},
			"description must be at most 2000 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTestRelationshipHandler()

			_, err := h.HandleCreate(context.Background(), tt.req)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, 0, store.InsertCallCount)
		})
	}
}

func TestRelationshipHandler_HandleCreate_SelfLoopLeftToService(t *testing.T) {
	h, _ := newTestRelationshipHandler()

	_, err := h.HandleCreate(context.Background(), CreateRelationshipRequest{Source: "Z", Target: "Z", Type: "related"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.HandleCreate(context.Background(), CreateRelationshipRequest{Source: "A", Target: "A", Type: "related"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestRelationshipHandler_HandleUpdate(t *testing.T) {
	h, _ := newTestRelationshipHandler(rel("r1", "A", "B", entities.RelationRelated))
	ctx := context.Background()

	newType := "synonym"
	updated, err := h.HandleUpdate(ctx, "r1", UpdateRelationshipRequest{Type: &newType})
	require.NoError(t, err)
	assert.Equal(t, entities.RelationSynonym, updated.Type)

	_, err = h.HandleUpdate(ctx, "r1", UpdateRelationshipRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	bad := "cousin"
	_, err = h.HandleUpdate(ctx, "r1", UpdateRelationshipRequest{Type: &bad})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestRelationshipHandler_HandleUnlink(t *testing.T) {
	h, store := newTestRelationshipHandler(
		rel("r1", "A", "B", entities.RelationRelated),
		rel("r2", "A", "B", entities.RelationParent),
		rel("r3", "B", "C", entities.RelationParent),
	)
	ctx := context.Background()

	_, err := h.HandleUnlink(ctx, "A", "B", false)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	n, err := h.HandleUnlink(ctx, "A", "B", true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = h.HandleUnlink(ctx, "B", "C", false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRelationshipHandler_HandleList(t *testing.T) {
	h, _ := newTestRelationshipHandler(
		rel("r1", "A", "B", entities.RelationParent),
		rel("r2", "C", "A", entities.RelationRelated),
		rel("r3", "A", "C", entities.RelationSynonym),
	)
	ctx := context.Background()

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all", ListOptions{}, []string{"r1", "r2", "r3"}},
		{"by type", ListOptions{Type: "related"}, []string{"r2"}},
		{"outgoing", ListOptions{Direction: "outgoing"}, []string{"r1", "r3"}},
		{"incoming synonym", ListOptions{Type: "synonym", Direction: "incoming"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleList(ctx, "A", tt.opts)
			require.NoError(t, err)

			ids := make([]string, 0, len(result.Relationships))
			for _, v := range result.Relationships {
				ids = append(ids, v.Relationship.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err := h.HandleList(ctx, "A", ListOptions{Direction: "sideways"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestRelationshipHandler_HandleRelatedAndHierarchy(t *testing.T) {
	h, _ := newTestRelationshipHandler(
		rel("r1", "A", "B", entities.RelationParent),
		rel("r2", "C", "B", entities.RelationParent),
	)
	ctx := context.Background()

	related, err := h.HandleRelated(ctx, "B", "parent")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, related)

	hierarchy, err := h.HandleHierarchy(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 3, hierarchy.Root.Size())

	count, err := h.HandleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Contains(t, h.HierarchicalTypes(), entities.RelationParent)
}
