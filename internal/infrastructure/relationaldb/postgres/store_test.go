package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/infrastructure/config"
)

var (
	sharedDSN     string
	sharedDSNOnce sync.Once
	sharedDSNErr  error
)

// testDSN starts one PostgreSQL container for the package and returns its DSN.
func testDSN(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedDSNOnce.Do(func() {
		sharedDSN, sharedDSNErr = startPostgres()
	})
	if sharedDSNErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedDSNErr)
	}
	return sharedDSN
}

func startPostgres() (string, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "termgraph",
			"POSTGRES_USER":     "termgraph",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}

	return fmt.Sprintf("postgres://termgraph:test_password@%s:%s/termgraph?sslmode=disable", host, port.Port()), nil
}

// setupTestStore returns a store on a fresh schema named after the test.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	schema := "t_" + strings.ToLower(strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	store, err := NewStore(ctx, config.PostgresConfig{DSN: testDSN(t), MaxConns: 4}, schema, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.DropSchema(context.Background())
		store.Close()
	})

	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestNewStore_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewStore(ctx, config.PostgresConfig{}, "termgraph_default", nil)
	require.Error(t, err)

	_, err = NewStore(ctx, config.PostgresConfig{DSN: "postgres://localhost/x"}, "", nil)
	require.Error(t, err)
}

func TestStore_Relationships(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	insert := func(id, src, tgt string, rt entities.RelationType, offset time.Duration) error {
		return store.Insert(ctx, &entities.Relationship{
			ID: id, SourceTermID: src, TargetTermID: tgt, Type: rt,
			CreatedAt: base.Add(offset), UpdatedAt: base.Add(offset),
		})
	}

	require.NoError(t, insert("r2", "a", "c", entities.RelationSynonym, 2*time.Second))
	require.NoError(t, insert("r1", "a", "b", entities.RelationParent, time.Second))
	require.NoError(t, insert("r3", "b", "d", entities.RelationParent, 3*time.Second))

	t.Run("duplicate triple conflicts", func(t *testing.T) {
		err := insert("dup", "a", "b", entities.RelationParent, 4*time.Second)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("ordered by creation", func(t *testing.T) {
		rels, err := store.FindByEndpoint(ctx, "a", entities.DirectionBoth)
		require.NoError(t, err)
		require.Len(t, rels, 2)
		assert.Equal(t, "r1", rels[0].ID)
		assert.Equal(t, "r2", rels[1].ID)
	})

	t.Run("among", func(t *testing.T) {
		rels, err := store.FindAmong(ctx, []string{"a", "b"})
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, "r1", rels[0].ID)
	})

	t.Run("update and delete", func(t *testing.T) {
		rel, err := store.FindByID(ctx, "r2")
		require.NoError(t, err)
		rel.Description = "same meaning"
		require.NoError(t, store.Update(ctx, rel))

		n, err := store.DeleteByPair(ctx, "a", "c")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = store.FindByID(ctx, "r2")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		n, err = store.DeleteByEndpoint(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestStore_TermsAndProgress(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTerm(ctx, &entities.Term{ID: "order", Name: "Order", ContextID: "sales", Status: entities.TermStatusActive, Essential: true, CreatedAt: time.Now()}))
	require.NoError(t, store.SaveTerm(ctx, &entities.Term{ID: "invoice", Name: "Invoice", ContextID: "billing", Status: entities.TermStatusDraft, CreatedAt: time.Now()}))

	essential, err := store.ListEssential(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"order"}, essential)

	summaries, err := store.FindTerms(ctx, []string{"invoice", "ghost", "order"})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "invoice", summaries[0].ID)

	require.NoError(t, store.MarkLearned(ctx, "alice", "order"))
	require.NoError(t, store.MarkLearned(ctx, "alice", "order"))
	assert.ErrorIs(t, store.MarkLearned(ctx, "alice", "ghost"), apperrors.ErrNotFound)

	learned, err := store.LearnedTermIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"order": true}, learned)

	require.NoError(t, store.DeleteTerm(ctx, "order"))
	learned, err = store.LearnedTermIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, learned)
}

func TestStore_AuditLog(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogAction(ctx, entities.AuditRelationshipCreated, "r1", map[string]any{"type": "parent"}))
	require.NoError(t, store.LogAction(ctx, entities.AuditRelationshipDeleted, "r1", nil))

	entries, err := store.FindAuditLog(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "parent", entries[0].Details["type"])
	assert.Equal(t, entities.AuditRelationshipDeleted, entries[1].Action)
}

func TestStore_LockHierarchy(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	unlock, err := store.LockHierarchy(ctx)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := store.LockHierarchy(ctx)
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(200 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second lock never acquired")
	}
}
