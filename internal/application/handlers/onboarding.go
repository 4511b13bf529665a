package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/ports"
	"github.com/ersonp/termgraph/internal/domain/services"
)

// DefaultRecommendationLimit is used when a caller passes no limit.
const DefaultRecommendationLimit = 5

// OnboardingHandler derives learning paths for users from the essential
// terms and their recorded progress.
type OnboardingHandler struct {
	resolver *services.DependencyResolver
	terms    ports.TermOracle
	progress ports.LearningProgress
}

// NewOnboardingHandler creates a new OnboardingHandler.
func NewOnboardingHandler(
	resolver *services.DependencyResolver,
	terms ports.TermOracle,
	progress ports.LearningProgress,
) *OnboardingHandler {
	return &OnboardingHandler{
		resolver: resolver,
		terms:    terms,
		progress: progress,
	}
}

// LearningPathResult contains a user's learning path.
type LearningPathResult struct {
	UserID  string                       `json:"user_id"`
	Entries []entities.LearningPathEntry `json:"entries"`
	Learned int                          `json:"learned"`
	Total   int                          `json:"total"`
}

// HandleLearningPath returns the learning path over all essential terms.
func (h *OnboardingHandler) HandleLearningPath(ctx context.Context, userID string) (*LearningPathResult, error) {
	path, _, err := h.learningPath(ctx, userID)
	if err != nil {
		return nil, err
	}

	learned := 0
	for i := range path {
		if path[i].IsLearned {
			learned++
		}
	}

	return &LearningPathResult{
		UserID:  userID,
		Entries: path,
		Learned: learned,
		Total:   len(path),
	}, nil
}

// HandleRecommendations returns the next terms the user can learn.
// A limit of zero uses DefaultRecommendationLimit; a negative limit returns
// every candidate.
func (h *OnboardingHandler) HandleRecommendations(ctx context.Context, userID string, limit int) ([]entities.LearningPathEntry, error) {
	path, learned, err := h.learningPath(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultRecommendationLimit
	}
	return h.resolver.NextRecommended(path, learned, limit), nil
}

// HandleCanLearn reports whether the user has learned every dependency of
// the term.
func (h *OnboardingHandler) HandleCanLearn(ctx context.Context, userID, termID string) (bool, error) {
	exists, err := h.terms.Exists(ctx, termID)
	if err != nil {
		return false, fmt.Errorf("checking term exists: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("term not found: %s: %w", termID, apperrors.ErrNotFound)
	}

	learned, err := h.learned(ctx, userID)
	if err != nil {
		return false, err
	}
	return h.resolver.CanLearn(ctx, termID, learned)
}

// HandleMissingDependencies returns the direct dependencies of the term the
// user has not learned yet.
func (h *OnboardingHandler) HandleMissingDependencies(ctx context.Context, userID, termID string) ([]string, error) {
	learned, err := h.learned(ctx, userID)
	if err != nil {
		return nil, err
	}
	deps, err := h.resolver.DirectDependencies(ctx, termID)
	if err != nil {
		return nil, err
	}
	missing := make([]string, 0, len(deps))
	for _, dep := range deps {
		if !learned[dep] {
			missing = append(missing, dep)
		}
	}
	return missing, nil
}

func (h *OnboardingHandler) learningPath(ctx context.Context, userID string) ([]entities.LearningPathEntry, map[string]bool, error) {
	learned, err := h.learned(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	essential, err := h.terms.ListEssential(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing essential terms: %w", err)
	}

	path, err := h.resolver.LearningPath(ctx, essential, learned)
	if err != nil {
		return nil, nil, fmt.Errorf("computing learning path: %w", err)
	}
	return path, learned, nil
}

func (h *OnboardingHandler) learned(ctx context.Context, userID string) (map[string]bool, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user is required: %w", apperrors.ErrInvalidArgument)
	}
	learned, err := h.progress.LearnedTermIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading learned terms: %w", err)
	}
	return learned, nil
}
