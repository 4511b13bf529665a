// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/ersonp/termgraph/internal/domain/entities"
)

const (
	// DefaultConfigDir is the directory name for termgraph configuration.
	DefaultConfigDir = ".termgraph"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultGlossariesFile is the default glossaries file name.
	DefaultGlossariesFile = "glossaries.yaml"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static infrastructure configuration (read-only after init).
// Environment variables override YAML values.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Postgres  PostgresConfig  `yaml:"postgres,omitempty"`
	Badger    BadgerConfig    `yaml:"badger,omitempty"`
	Relations RelationsConfig `yaml:"relations,omitempty"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
}

// StoreConfig selects the relationship store.
type StoreConfig struct {
	// Backend is one of sqlite, postgres or badger. Terms, progress and the
	// audit log always live in SQLite unless the backend is postgres.
	Backend string `yaml:"backend" env:"TERMGRAPH_STORE_BACKEND"`
}

// SQLiteConfig holds configuration for the SQLite relational database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	// For per-glossary databases, this is computed using SQLitePathForGlossary.
	Path string
}

// PostgresConfig holds configuration for the PostgreSQL store.
type PostgresConfig struct {
	DSN      string `yaml:"dsn,omitempty" env:"TERMGRAPH_POSTGRES_DSN"`
	MaxConns int32  `yaml:"max_conns,omitempty" env:"TERMGRAPH_POSTGRES_MAX_CONNS"`
}

// BadgerConfig holds configuration for the Badger relationship store.
type BadgerConfig struct {
	SyncWrites bool `yaml:"sync_writes,omitempty" env:"TERMGRAPH_BADGER_SYNC_WRITES"`
}

// RelationsConfig configures relationship semantics.
type RelationsConfig struct {
	// Hierarchical maps relation types to their orientation
	// (target_is_parent or target_is_child). Empty means the built-in rules.
	Hierarchical map[string]string `yaml:"hierarchical,omitempty"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"TERMGRAPH_LOG_LEVEL"`
	Format string `yaml:"format" env:"TERMGRAPH_LOG_FORMAT"`
}

// MetricsConfig configures the metrics dump.
type MetricsConfig struct {
	// Textfile, if set, receives the Prometheus metrics after each command.
	Textfile string `yaml:"textfile,omitempty" env:"TERMGRAPH_METRICS_TEXTFILE"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from the .termgraph directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'termgraph init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("reading environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendBadger:
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when store.backend is postgres (or set TERMGRAPH_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("invalid store.backend %q (valid: %s, %s, %s)",
			c.Store.Backend, BackendSQLite, BackendPostgres, BackendBadger)
	}

	if _, err := c.HierarchyRules(); err != nil {
		return fmt.Errorf("invalid relations.hierarchical: %w", err)
	}
	return nil
}

// HierarchyRules returns the configured hierarchical relation types.
func (c *Config) HierarchyRules() (entities.HierarchyRules, error) {
	if len(c.Relations.Hierarchical) == 0 {
		return entities.DefaultHierarchyRules(), nil
	}
	return entities.ParseHierarchyRules(c.Relations.Hierarchical)
}

// ConfigDir returns the path to the .termgraph config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// GlossariesFilePath returns the path to the glossaries file.
func GlossariesFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultGlossariesFile)
}

// Exists checks if a termgraph config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}

// SanitizeGlossaryName converts a glossary name to a safe directory and
// schema suffix.
func SanitizeGlossaryName(name string) string {
	// Convert to lowercase
	name = strings.ToLower(name)

	// Replace spaces and hyphens with underscores
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	// Remove any characters that aren't alphanumeric or underscore
	name = reNonAlphanumeric.ReplaceAllString(name, "")

	// Remove consecutive underscores
	name = reMultipleUnderscores.ReplaceAllString(name, "_")

	// Trim leading/trailing underscores
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}

// SchemaNameForGlossary returns the PostgreSQL schema for a glossary.
func SchemaNameForGlossary(glossaryName string) string {
	return "termgraph_" + SanitizeGlossaryName(glossaryName)
}

// GlossaryDir returns the directory path for a given glossary.
func GlossaryDir(basePath, glossaryName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "glossaries", SanitizeGlossaryName(glossaryName))
}

// SQLitePathForGlossary returns the SQLite database path for a glossary.
func SQLitePathForGlossary(basePath, glossaryName string) string {
	return filepath.Join(GlossaryDir(basePath, glossaryName), "termgraph.db")
}

// BadgerPathForGlossary returns the Badger directory for a glossary.
func BadgerPathForGlossary(basePath, glossaryName string) string {
	return filepath.Join(GlossaryDir(basePath, glossaryName), "relationships.badger")
}
