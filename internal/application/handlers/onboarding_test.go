package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/mocks"
	"github.com/ersonp/termgraph/internal/domain/services"
)

func newTestOnboardingHandler(t *testing.T) (*OnboardingHandler, *mocks.LearningProgress) {
	t.Helper()
	store := mocks.NewRelationshipStore(
		rel("r1", "aggregate", "entity", entities.RelationParent),
		rel("r2", "entity", "value-object", entities.RelationParent),
		rel("r3", "repository", "aggregate", entities.RelationDependency),
	)
	catalog := mocks.NewTermCatalog(
		entities.Term{ID: "aggregate", Name: "Aggregate", Essential: true},
		entities.Term{ID: "entity", Name: "Entity", Essential: true},
		entities.Term{ID: "value-object", Name: "Value Object", Essential: true},
		entities.Term{ID: "repository", Name: "Repository"},
	)
	progress := mocks.NewLearningProgress()
	resolver := services.NewDependencyResolver(store, entities.DefaultHierarchyRules(), nil, nil)
	return NewOnboardingHandler(resolver, catalog, progress), progress
}

func TestOnboardingHandler_HandleLearningPath(t *testing.T) {
	h, progress := newTestOnboardingHandler(t)
	ctx := context.Background()
	require.NoError(t, progress.MarkLearned(ctx, "alice", "value-object"))

	result, err := h.HandleLearningPath(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, "alice", result.UserID)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Learned)
	require.Len(t, result.Entries, 3)
	assert.Equal(t, "value-object", result.Entries[0].TermID)
	assert.Equal(t, "entity", result.Entries[1].TermID)
	assert.Equal(t, "aggregate", result.Entries[2].TermID)
}

func TestOnboardingHandler_HandleRecommendations(t *testing.T) {
	h, progress := newTestOnboardingHandler(t)
	ctx := context.Background()

	next, err := h.HandleRecommendations(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "value-object", next[0].TermID)

	require.NoError(t, progress.MarkLearned(ctx, "bob", "value-object"))
	next, err = h.HandleRecommendations(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "entity", next[0].TermID)
}

func TestOnboardingHandler_HandleCanLearn(t *testing.T) {
	h, progress := newTestOnboardingHandler(t)
	ctx := context.Background()
	require.NoError(t, progress.MarkLearned(ctx, "carol", "aggregate"))

	ok, err := h.HandleCanLearn(ctx, "carol", "repository")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.HandleCanLearn(ctx, "carol", "entity")
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := h.HandleMissingDependencies(ctx, "carol", "entity")
	require.NoError(t, err)
	assert.Equal(t, []string{"value-object"}, missing)

	_, err = h.HandleCanLearn(ctx, "carol", "unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.HandleCanLearn(ctx, " ", "entity")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}
