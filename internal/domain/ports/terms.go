package ports

import (
	"context"

	"github.com/ersonp/termgraph/internal/domain/entities"
)

// TermOracle answers the questions the graph engine asks about terms.
type TermOracle interface {
	// Exists reports whether the term exists.
	Exists(ctx context.Context, termID string) (bool, error)

	// IsEssential reports whether the term is flagged as required for onboarding.
	IsEssential(ctx context.Context, termID string) (bool, error)

	// FindTerms returns display attributes for the given IDs. Unknown IDs are skipped.
	FindTerms(ctx context.Context, ids []string) ([]entities.TermSummary, error)

	// ListEssential returns the IDs of all essential terms in a stable order.
	ListEssential(ctx context.Context) ([]string, error)

	// ListByContext returns the IDs of all terms in a bounded context.
	ListByContext(ctx context.Context, contextID string) ([]string, error)
}

// TermCatalog is the term store backing the CLI. It extends TermOracle
// with the mutations the engine itself never performs.
type TermCatalog interface {
	TermOracle

	// SaveTerm saves or updates a term.
	SaveTerm(ctx context.Context, term *entities.Term) error

	// FindTermByID finds a term by ID. Returns apperrors.ErrNotFound if absent.
	FindTermByID(ctx context.Context, id string) (*entities.Term, error)

	// ListTerms lists terms, optionally restricted to a bounded context.
	ListTerms(ctx context.Context, contextID string) ([]entities.Term, error)

	// DeleteTerm deletes a term. Returns apperrors.ErrNotFound if absent.
	DeleteTerm(ctx context.Context, id string) error
}

// LearningProgress tracks which terms each user has learned.
type LearningProgress interface {
	// LearnedTermIDs returns the set of terms the user has learned.
	LearnedTermIDs(ctx context.Context, userID string) (map[string]bool, error)

	// MarkLearned records that the user learned the term. Idempotent.
	MarkLearned(ctx context.Context, userID, termID string) error
}
