package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/ports"
)

// SaveTermInput holds the fields of a term to create or update.
type SaveTermInput struct {
	ID         string
	Name       string
	ContextID  string
	Definition string
	Status     string
	Essential  bool
}

// TermService manages glossary terms and learner progress.
type TermService struct {
	catalog       ports.TermCatalog
	relationships *RelationshipService
	progress      ports.LearningProgress
	logger        *zap.Logger
	now           func() time.Time
}

// NewTermService creates a new TermService.
func NewTermService(
	catalog ports.TermCatalog,
	relationships *RelationshipService,
	progress ports.LearningProgress,
	logger *zap.Logger,
) *TermService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermService{
		catalog:       catalog,
		relationships: relationships,
		progress:      progress,
		logger:        logger.Named("term-service"),
		now:           time.Now,
	}
}

// Save creates a term or updates an existing one. The ID defaults to a slug
// of the name.
func (s *TermService) Save(ctx context.Context, in SaveTermInput) (*entities.Term, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("term name is required: %w", apperrors.ErrInvalidArgument)
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = Slugify(name)
	}
	if id == "" {
		return nil, fmt.Errorf("cannot derive an id from %q: %w", name, apperrors.ErrInvalidArgument)
	}

	status, err := entities.ParseTermStatus(in.Status)
	if err != nil {
		return nil, err
	}

	term := &entities.Term{
		ID:         id,
		Name:       name,
		ContextID:  in.ContextID,
		Definition: in.Definition,
		Status:     status,
		Essential:  in.Essential,
		CreatedAt:  s.now(),
	}

	existing, err := s.catalog.FindTermByID(ctx, id)
	switch {
	case err == nil:
		term.CreatedAt = existing.CreatedAt
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return nil, fmt.Errorf("finding term: %w", err)
	}

	if err := s.catalog.SaveTerm(ctx, term); err != nil {
		return nil, fmt.Errorf("saving term: %w", err)
	}

	s.logger.Info("Saved term", zap.String("term_id", term.ID), zap.Bool("essential", term.Essential))
	return term, nil
}

// Get returns a term by ID.
func (s *TermService) Get(ctx context.Context, id string) (*entities.Term, error) {
	return s.catalog.FindTermByID(ctx, id)
}

// List returns the terms of a bounded context, or all terms when contextID
// is empty.
func (s *TermService) List(ctx context.Context, contextID string) ([]entities.Term, error) {
	return s.catalog.ListTerms(ctx, contextID)
}

// Delete removes a term and its relationships.
func (s *TermService) Delete(ctx context.Context, id string) error {
	if _, err := s.catalog.FindTermByID(ctx, id); err != nil {
		return fmt.Errorf("finding term: %w", err)
	}

	// First delete all relationships involving this term
	if _, err := s.relationships.DeleteForTerm(ctx, id); err != nil {
		return fmt.Errorf("deleting term relationships: %w", err)
	}

	// Then delete the term
	if err := s.catalog.DeleteTerm(ctx, id); err != nil {
		return fmt.Errorf("deleting term: %w", err)
	}

	s.logger.Info("Deleted term", zap.String("term_id", id))
	return nil
}

// MarkLearned records that a user learned a term.
func (s *TermService) MarkLearned(ctx context.Context, userID, termID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user is required: %w", apperrors.ErrInvalidArgument)
	}
	if _, err := s.catalog.FindTermByID(ctx, termID); err != nil {
		return fmt.Errorf("finding term: %w", err)
	}
	if err := s.progress.MarkLearned(ctx, userID, termID); err != nil {
		return fmt.Errorf("marking term learned: %w", err)
	}
	return nil
}

// Learned returns the set of terms a user has learned.
func (s *TermService) Learned(ctx context.Context, userID string) (map[string]bool, error) {
	learned, err := s.progress.LearnedTermIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading learned terms: %w", err)
	}
	return learned, nil
}

// Slugify lower-cases a name and joins its words with hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
