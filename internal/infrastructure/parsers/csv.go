package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVParser parses either terms or relationships from CSV, depending on the
// header row.
//
// Term columns: id, name, context, definition, status, essential (id or name
// required). Relationship columns: source, type, target, description.
type CSVParser struct{}

type csvKind int

const (
	csvTerms csvKind = iota
	csvRelationships
)

// Parse reads CSV from the reader and returns the parsed glossary.
func (p *CSVParser) Parse(r io.Reader) (*Glossary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	colIndex, kind, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex, kind)
}

// readHeader reads the CSV header row and decides what the file holds.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, csvKind, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	_, hasSource := colIndex["source"]
	_, hasTarget := colIndex["target"]
	if hasSource || hasTarget {
		for _, col := range []string{"source", "type", "target"} {
			if _, ok := colIndex[col]; !ok {
				return nil, 0, fmt.Errorf("missing required column: %s", col)
			}
		}
		return colIndex, csvRelationships, nil
	}

	_, hasID := colIndex["id"]
	_, hasName := colIndex["name"]
	if !hasID && !hasName {
		return nil, 0, errors.New("unrecognized CSV header: need id or name (terms) or source, type, target (relationships)")
	}
	return colIndex, csvTerms, nil
}

// readRecords reads all data rows.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int, kind csvKind) (*Glossary, error) {
	g := &Glossary{
		Terms:         []RawTerm{},
		Relationships: []RawRelationship{},
	}
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		if kind == csvRelationships {
			g.Relationships = append(g.Relationships, RawRelationship{
				Source:      getColumn(record, colIndex, "source"),
				Type:        getColumn(record, colIndex, "type"),
				Target:      getColumn(record, colIndex, "target"),
				Description: getColumn(record, colIndex, "description"),
				LineNum:     lineNum,
			})
			continue
		}

		term, err := p.parseTerm(record, colIndex, lineNum)
		if err != nil {
			return nil, err
		}
		g.Terms = append(g.Terms, term)
	}

	return g, nil
}

// parseTerm converts a CSV record to a RawTerm.
func (p *CSVParser) parseTerm(record []string, colIndex map[string]int, lineNum int) (RawTerm, error) {
	term := RawTerm{
		ID:         getColumn(record, colIndex, "id"),
		Name:       getColumn(record, colIndex, "name"),
		Context:    getColumn(record, colIndex, "context"),
		Definition: getColumn(record, colIndex, "definition"),
		Status:     getColumn(record, colIndex, "status"),
		LineNum:    lineNum,
	}

	essential := getColumn(record, colIndex, "essential")
	if essential != "" {
		v, err := strconv.ParseBool(essential)
		if err != nil {
			return RawTerm{}, fmt.Errorf("line %d: invalid essential value %q: %w", lineNum, essential, err)
		}
		term.Essential = v
	}

	return term, nil
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
