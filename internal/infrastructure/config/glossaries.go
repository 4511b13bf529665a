package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
)

// GlossariesConfig is the content of glossaries.yaml. Each glossary owns an
// isolated set of terms and relationships.
type GlossariesConfig struct {
	Glossaries map[string]GlossaryEntry `yaml:"glossaries,omitempty"`
}

// GlossaryEntry is one glossary as stored on disk. An empty Schema means the
// default schema derived from the name.
type GlossaryEntry struct {
	Schema      string `yaml:"schema,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Glossary is a configured glossary with its defaults resolved.
type Glossary struct {
	Name        string
	Schema      string // PostgreSQL schema, used when store.backend is postgres
	Description string
}

// LoadGlossaries reads glossaries.yaml. A missing file yields an empty config.
func LoadGlossaries(basePath string) (*GlossariesConfig, error) {
	cfg := &GlossariesConfig{}

	data, err := os.ReadFile(GlossariesFilePath(basePath))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading glossaries file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing glossaries file: %w", err)
		}
	}

	if cfg.Glossaries == nil {
		cfg.Glossaries = make(map[string]GlossaryEntry)
	}
	return cfg, nil
}

// Save writes glossaries.yaml, creating the config directory if needed.
func (g *GlossariesConfig) Save(basePath string) error {
	if err := os.MkdirAll(ConfigDir(basePath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshaling glossaries config: %w", err)
	}

	if err := os.WriteFile(GlossariesFilePath(basePath), data, 0600); err != nil {
		return fmt.Errorf("writing glossaries file: %w", err)
	}
	return nil
}

// Add registers or replaces a glossary.
func (g *GlossariesConfig) Add(name string, entry GlossaryEntry) {
	if g.Glossaries == nil {
		g.Glossaries = make(map[string]GlossaryEntry)
	}
	g.Glossaries[name] = entry
}

// Remove drops a glossary. Unknown names are ignored.
func (g *GlossariesConfig) Remove(name string) {
	delete(g.Glossaries, name)
}

// Exists reports whether a glossary is configured.
func (g *GlossariesConfig) Exists(name string) bool {
	_, ok := g.Glossaries[name]
	return ok
}

// Get resolves a glossary by name. Unknown names fail with ErrNotFound and
// list a few of the configured glossaries.
func (g *GlossariesConfig) Get(name string) (Glossary, error) {
	entry, ok := g.Glossaries[name]
	if ok {
		return resolveGlossary(name, entry), nil
	}

	if len(g.Glossaries) == 0 {
		return Glossary{}, fmt.Errorf("no glossaries configured (run 'termgraph glossaries create <name>'): %w",
			apperrors.ErrNotFound)
	}

	names := g.Names()
	if len(names) > 5 {
		names = append(names[:5], "...")
	}
	return Glossary{}, fmt.Errorf("glossary %q not found (available: %s): %w",
		name, strings.Join(names, ", "), apperrors.ErrNotFound)
}

// List returns every configured glossary sorted by name.
func (g *GlossariesConfig) List() []Glossary {
	names := g.Names()
	list := make([]Glossary, len(names))
	for i, name := range names {
		list[i] = resolveGlossary(name, g.Glossaries[name])
	}
	return list
}

// Names returns the glossary names in sorted order.
func (g *GlossariesConfig) Names() []string {
	names := make([]string, 0, len(g.Glossaries))
	for name := range g.Glossaries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolveGlossary(name string, entry GlossaryEntry) Glossary {
	schema := entry.Schema
	if schema == "" {
		schema = SchemaNameForGlossary(name)
	}
	return Glossary{Name: name, Schema: schema, Description: entry.Description}
}

// GlossariesExists checks if a glossaries file exists in the given path.
func GlossariesExists(basePath string) bool {
	_, err := os.Stat(GlossariesFilePath(basePath))
	return err == nil
}
