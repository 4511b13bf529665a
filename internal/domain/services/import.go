package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/ports"
	"github.com/ersonp/termgraph/internal/infrastructure/parsers"
)

// ConflictStrategy defines how to handle existing terms during import.
type ConflictStrategy string

const (
	// ConflictSkip skips terms that already exist (by ID).
	ConflictSkip ConflictStrategy = "skip"
	// ConflictOverwrite overwrites existing terms with new data.
	ConflictOverwrite ConflictStrategy = "overwrite"
)

// ParseConflictStrategy validates a conflict strategy. Empty means skip.
func ParseConflictStrategy(s string) (ConflictStrategy, error) {
	switch ConflictStrategy(s) {
	case "", ConflictSkip:
		return ConflictSkip, nil
	case ConflictOverwrite:
		return ConflictOverwrite, nil
	default:
		return "", fmt.Errorf("invalid conflict strategy %q (valid: skip, overwrite): %w", s, apperrors.ErrInvalidArgument)
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun     bool             // Validate without saving
	OnConflict ConflictStrategy // How to handle existing terms
}

// ImportError represents an error for a single record during import.
type ImportError struct {
	Record  string // "term" or "relationship"
	Line    int    // Line number (1-indexed, 0 if unknown)
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s line %d: %s", e.Record, e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	TermsImported         int
	TermsSkipped          int
	RelationshipsImported int
	RelationshipsSkipped  int
	Errors                []ImportError
}

// ImportService loads terms and relationships from parsed glossary files.
// Relationships go through RelationshipService so every graph invariant
// holds for imported edges too.
type ImportService struct {
	terms         *TermService
	relationships *RelationshipService
	oracle        ports.TermOracle
	logger        *zap.Logger
}

// NewImportService creates a new import service.
func NewImportService(
	terms *TermService,
	relationships *RelationshipService,
	oracle ports.TermOracle,
	logger *zap.Logger,
) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		terms:         terms,
		relationships: relationships,
		oracle:        oracle,
		logger:        logger.Named("import-service"),
	}
}

// Import validates and imports a parsed glossary. Terms are saved before
// relationships, and relationships are created in file order.
func (s *ImportService) Import(ctx context.Context, g *parsers.Glossary, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	validTerms, termErrors := validateTerms(g.Terms)
	result.Errors = append(result.Errors, termErrors...)

	validRels, relErrors := validateRelationships(g.Relationships)
	result.Errors = append(result.Errors, relErrors...)

	existing, err := s.existingTerms(ctx, validTerms, validRels)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		s.dryRun(result, validTerms, validRels, existing, opts.OnConflict)
		return result, nil
	}

	if err := s.saveTerms(ctx, result, validTerms, existing, opts.OnConflict); err != nil {
		return nil, fmt.Errorf("saving terms: %w", err)
	}
	if err := s.createRelationships(ctx, result, validRels); err != nil {
		return nil, fmt.Errorf("creating relationships: %w", err)
	}

	s.logger.Info("Imported glossary",
		zap.Int("terms_imported", result.TermsImported),
		zap.Int("terms_skipped", result.TermsSkipped),
		zap.Int("relationships_imported", result.RelationshipsImported),
		zap.Int("relationships_skipped", result.RelationshipsSkipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// validateTerms normalizes raw terms and returns the valid ones with any
// errors. The ID defaults to a slug of the name and the name to the ID.
func validateTerms(raw []parsers.RawTerm) ([]parsers.RawTerm, []ImportError) {
	valid := make([]parsers.RawTerm, 0, len(raw))
	seen := make(map[string]int, len(raw))
	var errs []ImportError

	for i := range raw {
		term := raw[i]
		if term.LineNum == 0 {
			term.LineNum = i + 1
		}
		term.ID = strings.TrimSpace(term.ID)
		term.Name = strings.TrimSpace(term.Name)

		if term.ID == "" {
			term.ID = Slugify(term.Name)
		}
		if term.ID == "" {
			errs = append(errs, ImportError{Record: "term", Line: term.LineNum, Field: "name", Value: raw[i].Name,
				Message: "missing required field: id or name"})
			continue
		}
		if term.Name == "" {
			term.Name = term.ID
		}

		if _, err := entities.ParseTermStatus(term.Status); err != nil {
			errs = append(errs, ImportError{Record: "term", Line: term.LineNum, Field: "status", Value: term.Status,
				Message: fmt.Sprintf("invalid status %q (valid: draft, active, deprecated)", term.Status)})
			continue
		}

		if first, dup := seen[term.ID]; dup {
			errs = append(errs, ImportError{Record: "term", Line: term.LineNum, Field: "id", Value: term.ID,
				Message: fmt.Sprintf("duplicate term %q (first defined on line %d)", term.ID, first)})
			continue
		}
		seen[term.ID] = term.LineNum

		valid = append(valid, term)
	}

	return valid, errs
}

// validateRelationships checks the fields of raw relationships that can be
// checked without the store.
func validateRelationships(raw []parsers.RawRelationship) ([]parsers.RawRelationship, []ImportError) {
	valid := make([]parsers.RawRelationship, 0, len(raw))
	var errs []ImportError

	for i := range raw {
		rel := raw[i]
		if rel.LineNum == 0 {
			rel.LineNum = i + 1
		}
		if ie := validateRawRelationship(&rel); ie != nil {
			errs = append(errs, *ie)
			continue
		}
		valid = append(valid, rel)
	}

	return valid, errs
}

func validateRawRelationship(rel *parsers.RawRelationship) *ImportError {
	for _, f := range []struct{ name, value string }{
		{"source", rel.Source},
		{"type", rel.Type},
		{"target", rel.Target},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &ImportError{Record: "relationship", Line: rel.LineNum, Field: f.name,
				Message: "missing required field: " + f.name}
		}
	}

	rt, err := entities.ParseRelationType(rel.Type)
	if err != nil {
		return &ImportError{Record: "relationship", Line: rel.LineNum, Field: "type", Value: rel.Type,
			Message: fmt.Sprintf("invalid type %q", rel.Type)}
	}
	rel.Type = string(rt)

	if rel.Source == rel.Target {
		return &ImportError{Record: "relationship", Line: rel.LineNum, Field: "target", Value: rel.Target,
			Message: "cannot relate a term to itself"}
	}
	return nil
}

// existingTerms looks up, in one batch, which referenced terms are already
// in the glossary.
func (s *ImportService) existingTerms(ctx context.Context, terms []parsers.RawTerm, rels []parsers.RawRelationship) (map[string]bool, error) {
	ids := make([]string, 0, len(terms)+2*len(rels))
	for i := range terms {
		ids = append(ids, terms[i].ID)
	}
	for i := range rels {
		ids = append(ids, rels[i].Source, rels[i].Target)
	}
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	found, err := s.oracle.FindTerms(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("checking existing terms: %w", err)
	}

	existing := make(map[string]bool, len(found))
	for i := range found {
		existing[found[i].ID] = true
	}
	return existing, nil
}

func (s *ImportService) dryRun(
	result *ImportResult,
	terms []parsers.RawTerm,
	rels []parsers.RawRelationship,
	existing map[string]bool,
	onConflict ConflictStrategy,
) {
	known := make(map[string]bool, len(existing)+len(terms))
	for id := range existing {
		known[id] = true
	}
	for i := range terms {
		if existing[terms[i].ID] && onConflict != ConflictOverwrite {
			result.TermsSkipped++
		} else {
			result.TermsImported++
		}
		known[terms[i].ID] = true
	}

	for i := range rels {
		missing := ""
		switch {
		case !known[rels[i].Source]:
			missing = rels[i].Source
		case !known[rels[i].Target]:
			missing = rels[i].Target
		}
		if missing != "" {
			result.Errors = append(result.Errors, ImportError{Record: "relationship", Line: rels[i].LineNum,
				Field: "term", Value: missing, Message: fmt.Sprintf("term not found: %s", missing)})
			continue
		}
		result.RelationshipsImported++
	}
}

func (s *ImportService) saveTerms(
	ctx context.Context,
	result *ImportResult,
	terms []parsers.RawTerm,
	existing map[string]bool,
	onConflict ConflictStrategy,
) error {
	for i := range terms {
		raw := &terms[i]
		if existing[raw.ID] && onConflict != ConflictOverwrite {
			result.TermsSkipped++
			continue
		}

		_, err := s.terms.Save(ctx, SaveTermInput{
			ID:         raw.ID,
			Name:       raw.Name,
			ContextID:  raw.Context,
			Definition: raw.Definition,
			Status:     raw.Status,
			Essential:  raw.Essential,
		})
		if errors.Is(err, apperrors.ErrInvalidArgument) {
			result.Errors = append(result.Errors, ImportError{Record: "term", Line: raw.LineNum, Value: raw.ID, Message: err.Error()})
			continue
		}
		if err != nil {
			return err
		}
		result.TermsImported++
	}
	return nil
}

func (s *ImportService) createRelationships(ctx context.Context, result *ImportResult, rels []parsers.RawRelationship) error {
	for i := range rels {
		raw := &rels[i]
		_, err := s.relationships.Create(ctx, CreateRelationshipInput{
			SourceTermID: raw.Source,
			TargetTermID: raw.Target,
			Type:         entities.RelationType(raw.Type),
			Description:  raw.Description,
			RequestedBy:  "import",
		})
		switch {
		case err == nil:
			result.RelationshipsImported++
		case errors.Is(err, apperrors.ErrConflict):
			result.RelationshipsSkipped++
		case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrInvalidArgument):
			result.Errors = append(result.Errors, ImportError{Record: "relationship", Line: raw.LineNum,
				Value: raw.Source + " -> " + raw.Target, Message: err.Error()})
		default:
			return err
		}
	}
	return nil
}
