package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/termgraph/internal/domain/entities"
)

func TestSanitizeGlossaryName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple lowercase",
			input:    "payments",
			expected: "payments",
		},
		{
			name:     "uppercase converted",
			input:    "Payments",
			expected: "payments",
		},
		{
			name:     "spaces to underscores",
			input:    "core banking",
			expected: "core_banking",
		},
		{
			name:     "hyphens to underscores",
			input:    "core-banking",
			expected: "core_banking",
		},
		{
			name:     "special characters removed",
			input:    "core@banking!",
			expected: "corebanking",
		},
		{
			name:     "consecutive underscores collapsed",
			input:    "core--banking",
			expected: "core_banking",
		},
		{
			name:     "leading trailing underscores trimmed",
			input:    "-core-banking-",
			expected: "core_banking",
		},
		{
			name:     "empty string returns default",
			input:    "",
			expected: "default",
		},
		{
			name:     "only special chars returns default",
			input:    "!!!",
			expected: "default",
		},
		{
			name:     "complex mixed input",
			input:    "Order Management (v2)",
			expected: "order_management_v2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeGlossaryName(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSchemaNameForGlossary(t *testing.T) {
	assert.Equal(t, "termgraph_core_banking", SchemaNameForGlossary("Core Banking"))
	assert.Equal(t, "termgraph_default", SchemaNameForGlossary(""))
}

func TestPaths(t *testing.T) {
	base := "/home/user/project"

	assert.Equal(t, "/home/user/project/.termgraph", ConfigDir(base))
	assert.Equal(t, "/home/user/project/.termgraph/config.yaml", ConfigFilePath(base))
	assert.Equal(t, "/home/user/project/.termgraph/glossaries.yaml", GlossariesFilePath(base))
	assert.Equal(t, "/home/user/project/.termgraph/glossaries/ddd/termgraph.db", SQLitePathForGlossary(base, "DDD"))
	assert.Equal(t, "/home/user/project/.termgraph/glossaries/ddd/relationships.badger", BadgerPathForGlossary(base, "ddd"))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	require.NoError(t, cfg.Validate())

	rules, err := cfg.HierarchyRules()
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultHierarchyRules(), rules)
}

func TestLoad(t *testing.T) {
	t.Run("missing config", func(t *testing.T) {
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "termgraph init")
	})

	t.Run("default file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, WriteDefault(dir))

		cfg, err := Load(dir)
		require.NoError(t, err)

		assert.Equal(t, BackendSQLite, cfg.Store.Backend)
		rules, err := cfg.HierarchyRules()
		require.NoError(t, err)
		assert.Equal(t, entities.DefaultHierarchyRules(), rules)
	})

	t.Run("custom hierarchy", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, `
store:
  backend: badger
relations:
  hierarchical:
    aggregation: target_is_child
    inheritance: target_is_parent
logging:
  level: debug
`)

		cfg, err := Load(dir)
		require.NoError(t, err)

		assert.Equal(t, BackendBadger, cfg.Store.Backend)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
		rules, err := cfg.HierarchyRules()
		require.NoError(t, err)
		assert.Equal(t, entities.HierarchyRules{
			entities.RelationAggregation: entities.TargetIsChild,
			entities.RelationInheritance: entities.TargetIsParent,
		}, rules)
	})

	t.Run("environment overrides", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "store:\n  backend: sqlite\n")
		t.Setenv("TERMGRAPH_STORE_BACKEND", "postgres")
		t.Setenv("TERMGRAPH_POSTGRES_DSN", "postgres://localhost/termgraph")
		t.Setenv("TERMGRAPH_LOG_FORMAT", "json")

		cfg, err := Load(dir)
		require.NoError(t, err)

		assert.Equal(t, BackendPostgres, cfg.Store.Backend)
		assert.Equal(t, "postgres://localhost/termgraph", cfg.Postgres.DSN)
		assert.Equal(t, int32(4), cfg.Postgres.MaxConns)
		assert.Equal(t, "json", cfg.Logging.Format)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name    string
			yaml    string
			message string
		}{
			{"unknown backend", "store:\n  backend: mongo\n", "invalid store.backend"},
			{"postgres without dsn", "store:\n  backend: postgres\n", "postgres.dsn is required"},
			{"bad orientation", "relations:\n  hierarchical:\n    parent: upward\n", "invalid relations.hierarchical"},
			{"bad relation type", "relations:\n  hierarchical:\n    sibling: target_is_parent\n", "invalid relations.hierarchical"},
			{"malformed yaml", "store: [", "parsing config file"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				dir := t.TempDir()
				writeConfig(t, dir, tt.yaml)

				_, err := Load(dir)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.message)
			})
		}
	})
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))

	err := WriteDefault(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Store.Backend = BackendBadger
	cfg.Badger.SyncWrites = true
	cfg.Relations.Hierarchical = map[string]string{"parent": "target_is_parent"}

	require.NoError(t, Write(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigDir, DefaultConfigFile), []byte(content), 0644))
}
