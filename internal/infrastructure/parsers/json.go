package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses a glossary from a JSON object with "terms" and
// "relationships" arrays.
type JSONParser struct{}

// Parse reads JSON from the reader and returns the parsed glossary.
func (p *JSONParser) Parse(r io.Reader) (*Glossary, error) {
	var g Glossary

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&g); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if g.Terms == nil {
		g.Terms = []RawTerm{}
	}
	if g.Relationships == nil {
		g.Relationships = []RawRelationship{}
	}

	// Set line numbers (array index + 1, 1-indexed)
	for i := range g.Terms {
		g.Terms[i].LineNum = i + 1
	}
	for i := range g.Relationships {
		g.Relationships[i].LineNum = i + 1
	}

	return &g, nil
}
