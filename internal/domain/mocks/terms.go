package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

// TermCatalog is an in-memory implementation of ports.TermCatalog.
type TermCatalog struct {
	mu    sync.Mutex
	Terms map[string]*entities.Term
	Err   error
}

// NewTermCatalog creates a new mock TermCatalog seeded with terms.
func NewTermCatalog(terms ...entities.Term) *TermCatalog {
	m := &TermCatalog{Terms: make(map[string]*entities.Term, len(terms))}
	for i := range terms {
		t := terms[i]
		m.Terms[t.ID] = &t
	}
	return m
}

// WithTerms adds bare active terms for the given IDs.
func (m *TermCatalog) WithTerms(ids ...string) *TermCatalog {
	for _, id := range ids {
		m.Terms[id] = &entities.Term{ID: id, Name: id, Status: entities.TermStatusActive}
	}
	return m
}

// Exists reports whether the term exists.
func (m *TermCatalog) Exists(_ context.Context, termID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.Terms[termID]
	return ok, nil
}

// IsEssential reports whether the term is essential.
func (m *TermCatalog) IsEssential(_ context.Context, termID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	t, ok := m.Terms[termID]
	return ok && t.Essential, nil
}

// FindTerms returns display attributes for the given IDs.
func (m *TermCatalog) FindTerms(_ context.Context, ids []string) ([]entities.TermSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]entities.TermSummary, 0, len(ids))
	for _, id := range ids {
		if t, ok := m.Terms[id]; ok {
			result = append(result, t.Summary())
		}
	}
	return result, nil
}

// ListEssential returns the essential term IDs sorted by ID.
func (m *TermCatalog) ListEssential(_ context.Context) ([]string, error) {
	return m.ids(func(t *entities.Term) bool { return t.Essential })
}

// ListByContext returns the term IDs of a bounded context sorted by ID.
func (m *TermCatalog) ListByContext(_ context.Context, contextID string) ([]string, error) {
	return m.ids(func(t *entities.Term) bool { return t.ContextID == contextID })
}

// SaveTerm saves or updates a term.
func (m *TermCatalog) SaveTerm(_ context.Context, term *entities.Term) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	t := *term
	m.Terms[t.ID] = &t
	return nil
}

// FindTermByID finds a term by ID.
func (m *TermCatalog) FindTermByID(_ context.Context, id string) (*entities.Term, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.Terms[id]
	if !ok {
		return nil, fmt.Errorf("term %s: %w", id, apperrors.ErrNotFound)
	}
	found := *t
	return &found, nil
}

// ListTerms lists terms sorted by ID, optionally restricted to a context.
func (m *TermCatalog) ListTerms(_ context.Context, contextID string) ([]entities.Term, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]entities.Term, 0, len(m.Terms))
	for _, t := range m.Terms {
		if contextID == "" || t.ContextID == contextID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// DeleteTerm deletes a term.
func (m *TermCatalog) DeleteTerm(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Terms[id]; !ok {
		return fmt.Errorf("term %s: %w", id, apperrors.ErrNotFound)
	}
	delete(m.Terms, id)
	return nil
}

func (m *TermCatalog) ids(keep func(*entities.Term) bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []string
	for id, t := range m.Terms {
		if keep(t) {
			result = append(result, id)
		}
	}
	// Sort for deterministic test results
	sort.Strings(result)
	return result, nil
}

// LearningProgress is an in-memory implementation of ports.LearningProgress.
type LearningProgress struct {
	mu      sync.Mutex
	Learned map[string]map[string]bool
	Err     error
}

// NewLearningProgress creates a new mock LearningProgress.
func NewLearningProgress() *LearningProgress {
	return &LearningProgress{Learned: make(map[string]map[string]bool)}
}

// LearnedTermIDs returns the set of terms the user has learned.
func (m *LearningProgress) LearnedTermIDs(_ context.Context, userID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	result := make(map[string]bool, len(m.Learned[userID]))
	for id := range m.Learned[userID] {
		result[id] = true
	}
	return result, nil
}

// MarkLearned records that the user learned the term.
func (m *LearningProgress) MarkLearned(_ context.Context, userID, termID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.Learned[userID] == nil {
		m.Learned[userID] = make(map[string]bool)
	}
	m.Learned[userID][termID] = true
	return nil
}
