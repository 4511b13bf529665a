package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/mocks"
	"github.com/ersonp/termgraph/internal/domain/services"
)

func newTestImportHandler() (*ImportHandler, *mocks.TermCatalog, *mocks.RelationshipStore) {
	catalog := mocks.NewTermCatalog()
	store := mocks.NewRelationshipStore()
	relSvc := services.NewRelationshipService(store, catalog, entities.DefaultHierarchyRules())
	termSvc := services.NewTermService(catalog, relSvc, mocks.NewLearningProgress(), nil)
	return NewImportHandler(services.NewImportService(termSvc, relSvc, catalog, nil)), catalog, store
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportHandler_Handle_JSONFile(t *testing.T) {
	h, catalog, store := newTestImportHandler()
	path := writeTempFile(t, "glossary.json", `{
		"terms": [{"name": "Aggregate"}, {"name": "Order", "essential": true}],
		"relationships": [{"source": "order", "type": "parent", "target": "aggregate"}]
	}`)

	result, err := h.Handle(context.Background(), path, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, result.TermsImported)
	assert.Equal(t, 1, result.RelationshipsImported)
	assert.Empty(t, result.Errors)
	assert.True(t, catalog.Terms["order"].Essential)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestImportHandler_Handle_CSVFiles(t *testing.T) {
	h, _, _ := newTestImportHandler()
	ctx := context.Background()

	terms := writeTempFile(t, "terms.csv", "id,name,context\norder,Order,sales\ninvoice,Invoice,billing\n")
	rels := writeTempFile(t, "relationships.csv", "source,type,target\ninvoice,dependency,order\n")

	result, err := h.Handle(ctx, terms, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TermsImported)

	result, err = h.Handle(ctx, rels, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RelationshipsImported)

	// Importing again skips what is already there.
	result, err = h.Handle(ctx, rels, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RelationshipsSkipped)
}

func TestImportHandler_Handle_ExplicitFormat(t *testing.T) {
	h, _, _ := newTestImportHandler()
	path := writeTempFile(t, "glossary.txt", `{"terms": [{"id": "order"}]}`)

	_, err := h.Handle(context.Background(), path, ImportOptions{Format: "auto"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	result, err := h.Handle(context.Background(), path, ImportOptions{Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TermsImported)
}

func TestImportHandler_Handle_Errors(t *testing.T) {
	h, _, _ := newTestImportHandler()
	ctx := context.Background()

	_, err := h.Handle(ctx, filepath.Join(t.TempDir(), "missing.json"), ImportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening file")

	bad := writeTempFile(t, "bad.json", "not json")
	_, err = h.Handle(ctx, bad, ImportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing file")

	_, err = h.Handle(ctx, bad, ImportOptions{OnConflict: "merge"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestImportHandler_Handle_Empty(t *testing.T) {
	h, _, _ := newTestImportHandler()
	path := writeTempFile(t, "empty.json", `{}`)

	result, err := h.Handle(context.Background(), path, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, services.ImportResult{}, *result)
}
