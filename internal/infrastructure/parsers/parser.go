// Package parsers provides parsers for importing glossaries from various formats.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawTerm represents a term parsed from an external source before validation.
type RawTerm struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Context    string `json:"context,omitempty"`
	Definition string `json:"definition,omitempty"`
	Status     string `json:"status,omitempty"`
	Essential  bool   `json:"essential,omitempty"`
	LineNum    int    `json:"-"` // Line number in source file (set by parser)
}

// RawRelationship represents a relationship parsed from an external source
// before validation.
type RawRelationship struct {
	Source      string `json:"source"`
	Type        string `json:"type"`
	Target      string `json:"target"`
	Description string `json:"description,omitempty"`
	LineNum     int    `json:"-"`
}

// Glossary is the parsed content of an import file.
type Glossary struct {
	Terms         []RawTerm         `json:"terms"`
	Relationships []RawRelationship `json:"relationships"`
}

// Len returns the number of parsed records.
func (g *Glossary) Len() int {
	return len(g.Terms) + len(g.Relationships)
}

// Parser defines the interface for parsing glossaries from various formats.
type Parser interface {
	Parse(r io.Reader) (*Glossary, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONParser{}
	case ".csv":
		return &CSVParser{}
	default:
		return nil
	}
}
