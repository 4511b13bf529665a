package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
)

func TestLoadGlossaries_MissingFile(t *testing.T) {
	cfg, err := LoadGlossaries(t.TempDir())

	require.NoError(t, err)
	assert.NotNil(t, cfg.Glossaries)
	assert.Empty(t, cfg.Glossaries)
}

func TestGlossariesConfig_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := &GlossariesConfig{}
	cfg.Add("payments", GlossaryEntry{Schema: "termgraph_payments", Description: "Payments domain"})
	cfg.Add("ddd", GlossaryEntry{Description: "Tactical patterns"})

	require.NoError(t, cfg.Save(dir))
	assert.True(t, GlossariesExists(dir))

	info, err := os.Stat(GlossariesFilePath(dir))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadGlossaries(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"ddd", "payments"}, loaded.Names())

	payments, err := loaded.Get("payments")
	require.NoError(t, err)
	assert.Equal(t, Glossary{Name: "payments", Schema: "termgraph_payments", Description: "Payments domain"}, payments)

	ddd, err := loaded.Get("ddd")
	require.NoError(t, err)
	assert.Equal(t, "termgraph_ddd", ddd.Schema)

	assert.Equal(t, []Glossary{ddd, payments}, loaded.List())

	loaded.Remove("ddd")
	assert.False(t, loaded.Exists("ddd"))
	assert.True(t, loaded.Exists("payments"))
}

func TestGlossariesConfig_Get(t *testing.T) {
	t.Run("none configured", func(t *testing.T) {
		cfg := &GlossariesConfig{}

		_, err := cfg.Get("any")

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Contains(t, err.Error(), "no glossaries configured")
	})

	t.Run("lists available names", func(t *testing.T) {
		cfg := &GlossariesConfig{}
		for _, name := range []string{"g", "f", "e", "d", "c", "b", "a"} {
			cfg.Add(name, GlossaryEntry{})
		}

		_, err := cfg.Get("missing")

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Contains(t, err.Error(), `glossary "missing" not found (available: a, b, c, d, e, ...)`)
	})
}

func TestGlossariesConfig_RemoveOnEmpty(t *testing.T) {
	cfg := &GlossariesConfig{}

	cfg.Remove("nothing")

	assert.False(t, cfg.Exists("nothing"))
}
