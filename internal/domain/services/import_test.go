package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/mocks"
	"github.com/ersonp/termgraph/internal/infrastructure/parsers"
)

type importFixture struct {
	svc     *ImportService
	catalog *mocks.TermCatalog
	store   *mocks.RelationshipStore
}

func newImportFixture(terms ...entities.Term) *importFixture {
	catalog := mocks.NewTermCatalog(terms...)
	store := mocks.NewRelationshipStore()
	relSvc := NewRelationshipService(store, catalog, entities.DefaultHierarchyRules())
	termSvc := NewTermService(catalog, relSvc, mocks.NewLearningProgress(), nil)
	return &importFixture{
		svc:     NewImportService(termSvc, relSvc, catalog, nil),
		catalog: catalog,
		store:   store,
	}
}

func TestImportService_Import(t *testing.T) {
	f := newImportFixture()
	g := &parsers.Glossary{
		Terms: []parsers.RawTerm{
			{Name: "Aggregate", Essential: true, LineNum: 1},
			{ID: "order", Name: "Order", Context: "sales", Status: "active", LineNum: 2},
			{ID: "invoice", LineNum: 3},
		},
		Relationships: []parsers.RawRelationship{
			{Source: "order", Type: "parent", Target: "aggregate", LineNum: 1},
			{Source: "invoice", Type: "dependency", Target: "order", Description: "bills", LineNum: 2},
		},
	}

	result, err := f.svc.Import(context.Background(), g, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TermsImported)
	assert.Equal(t, 2, result.RelationshipsImported)
	assert.Empty(t, result.Errors)

	require.Contains(t, f.catalog.Terms, "aggregate")
	assert.True(t, f.catalog.Terms["aggregate"].Essential)
	assert.Equal(t, "invoice", f.catalog.Terms["invoice"].Name)
	assert.Equal(t, entities.TermStatusActive, f.catalog.Terms["order"].Status)

	count, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImportService_Import_RelationshipRejections(t *testing.T) {
	f := newImportFixture()
	f.catalog.WithTerms("a", "b", "c")
	g := &parsers.Glossary{
		Relationships: []parsers.RawRelationship{
			{Source: "a", Type: "parent", Target: "b", LineNum: 2},
			{Source: "b", Type: "parent", Target: "c", LineNum: 3},
			{Source: "c", Type: "parent", Target: "a", LineNum: 4},      // closes a cycle
			{Source: "a", Type: "parent", Target: "b", LineNum: 5},      // duplicate
			{Source: "a", Type: "synonym", Target: "ghost", LineNum: 6}, // unknown term
			{Source: "a", Type: "friend", Target: "b", LineNum: 7},      // bad type
			{Source: "a", Type: "related", Target: "a", LineNum: 8},     // self-loop
			{Source: "a", Type: "", Target: "b", LineNum: 9},
		},
	}

	result, err := f.svc.Import(context.Background(), g, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, result.RelationshipsImported)
	assert.Equal(t, 1, result.RelationshipsSkipped)

	lines := make([]int, 0, len(result.Errors))
	for _, e := range result.Errors {
		assert.Equal(t, "relationship", e.Record)
		lines = append(lines, e.Line)
	}
	assert.ElementsMatch(t, []int{4, 6, 7, 8, 9}, lines)
}

func TestImportService_Import_TermValidation(t *testing.T) {
	f := newImportFixture()
	g := &parsers.Glossary{
		Terms: []parsers.RawTerm{
			{ID: "order", LineNum: 2},
			{Name: "Order", LineNum: 3},
			{Name: "!!!", LineNum: 4},
			{ID: "invoice", Status: "retired", LineNum: 5},
		},
	}

	result, err := f.svc.Import(context.Background(), g, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.TermsImported)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, "term line 3: duplicate term \"order\" (first defined on line 2)", result.Errors[0].Error())
	assert.Equal(t, "name", result.Errors[1].Field)
	assert.Equal(t, "status", result.Errors[2].Field)
}

func TestImportService_Import_Conflicts(t *testing.T) {
	existing := entities.Term{ID: "order", Name: "Order", Definition: "old", Status: entities.TermStatusActive, CreatedAt: testNow}
	g := &parsers.Glossary{
		Terms: []parsers.RawTerm{{ID: "order", Name: "Order", Definition: "new", LineNum: 1}},
	}

	t.Run("skip", func(t *testing.T) {
		f := newImportFixture(existing)

		result, err := f.svc.Import(context.Background(), g, ImportOptions{OnConflict: ConflictSkip})

		require.NoError(t, err)
		assert.Equal(t, 0, result.TermsImported)
		assert.Equal(t, 1, result.TermsSkipped)
		assert.Equal(t, "old", f.catalog.Terms["order"].Definition)
	})

	t.Run("overwrite", func(t *testing.T) {
		f := newImportFixture(existing)

		result, err := f.svc.Import(context.Background(), g, ImportOptions{OnConflict: ConflictOverwrite})

		require.NoError(t, err)
		assert.Equal(t, 1, result.TermsImported)
		assert.Equal(t, "new", f.catalog.Terms["order"].Definition)
		assert.Equal(t, testNow, f.catalog.Terms["order"].CreatedAt)
	})
}

func TestImportService_Import_DryRun(t *testing.T) {
	f := newImportFixture(entities.Term{ID: "aggregate", Name: "Aggregate"})
	g := &parsers.Glossary{
		Terms: []parsers.RawTerm{
			{ID: "aggregate", LineNum: 1},
			{ID: "order", LineNum: 2},
		},
		Relationships: []parsers.RawRelationship{
			{Source: "order", Type: "parent", Target: "aggregate", LineNum: 1},
			{Source: "order", Type: "synonym", Target: "ghost", LineNum: 2},
		},
	}

	result, err := f.svc.Import(context.Background(), g, ImportOptions{DryRun: true})

	require.NoError(t, err)
	assert.Equal(t, 1, result.TermsImported)
	assert.Equal(t, 1, result.TermsSkipped)
	assert.Equal(t, 1, result.RelationshipsImported)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "ghost", result.Errors[0].Value)

	assert.NotContains(t, f.catalog.Terms, "order")
	count, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestImportService_Import_StoreError(t *testing.T) {
	f := newImportFixture()
	f.catalog.Err = errors.New("disk full")

	_, err := f.svc.Import(context.Background(), &parsers.Glossary{
		Terms: []parsers.RawTerm{{ID: "order", LineNum: 1}},
	}, ImportOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestParseConflictStrategy(t *testing.T) {
	s, err := ParseConflictStrategy("")
	require.NoError(t, err)
	assert.Equal(t, ConflictSkip, s)

	s, err = ParseConflictStrategy("overwrite")
	require.NoError(t, err)
	assert.Equal(t, ConflictOverwrite, s)

	_, err = ParseConflictStrategy("merge")
	require.Error(t, err)
}
