package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

// RelationshipStore is an in-memory implementation of ports.RelationshipStore.
// Relationships are kept in insertion order.
type RelationshipStore struct {
	mu   sync.Mutex
	rels []entities.Relationship

	// Err is returned by every method when set.
	Err error
	// InsertErr is returned by Insert only, after the uniqueness check passes.
	InsertErr error

	// Call tracking
	InsertCallCount     int
	FindByTypeCallCount int
}

// NewRelationshipStore creates a new mock RelationshipStore.
func NewRelationshipStore(rels ...entities.Relationship) *RelationshipStore {
	return &RelationshipStore{rels: append([]entities.Relationship(nil), rels...)}
}

// Insert stores a new relationship.
func (m *RelationshipStore) Insert(_ context.Context, rel *entities.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCallCount++
	if m.Err != nil {
		return m.Err
	}
	for i := range m.rels {
		if m.rels[i].ID == rel.ID || sameTriple(&m.rels[i], rel) {
			return fmt.Errorf("relationship %s -[%s]-> %s: %w",
				rel.SourceTermID, rel.Type, rel.TargetTermID, apperrors.ErrConflict)
		}
	}
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.rels = append(m.rels, *rel)
	return nil
}

// FindByID finds a relationship by ID.
func (m *RelationshipStore) FindByID(_ context.Context, id string) (*entities.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.rels {
		if m.rels[i].ID == id {
			rel := m.rels[i]
			return &rel, nil
		}
	}
	return nil, fmt.Errorf("relationship %s: %w", id, apperrors.ErrNotFound)
}

// FindByEndpoint finds relationships touching a term in the given direction.
func (m *RelationshipStore) FindByEndpoint(_ context.Context, termID string, dir entities.Direction) ([]entities.Relationship, error) {
	return m.filter(func(rel *entities.Relationship) bool {
		switch dir {
		case entities.DirectionOutgoing:
			return rel.SourceTermID == termID
		case entities.DirectionIncoming:
			return rel.TargetTermID == termID
		default:
			return rel.Touches(termID)
		}
	})
}

// FindByType finds all relationships of a given type.
func (m *RelationshipStore) FindByType(_ context.Context, relType entities.RelationType) ([]entities.Relationship, error) {
	m.mu.Lock()
	m.FindByTypeCallCount++
	m.mu.Unlock()
	return m.filter(func(rel *entities.Relationship) bool { return rel.Type == relType })
}

// FindAmong finds relationships with both endpoints in termIDs.
func (m *RelationshipStore) FindAmong(_ context.Context, termIDs []string) ([]entities.Relationship, error) {
	scope := make(map[string]bool, len(termIDs))
	for _, id := range termIDs {
		scope[id] = true
	}
	return m.filter(func(rel *entities.Relationship) bool {
		return scope[rel.SourceTermID] && scope[rel.TargetTermID]
	})
}

// Update persists the mutable fields of a relationship.
func (m *RelationshipStore) Update(_ context.Context, rel *entities.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	idx := -1
	for i := range m.rels {
		if m.rels[i].ID == rel.ID {
			idx = i
			continue
		}
		if sameTriple(&m.rels[i], rel) {
			return fmt.Errorf("relationship %s -[%s]-> %s: %w",
				rel.SourceTermID, rel.Type, rel.TargetTermID, apperrors.ErrConflict)
		}
	}
	if idx < 0 {
		return fmt.Errorf("relationship %s: %w", rel.ID, apperrors.ErrNotFound)
	}
	m.rels[idx].Type = rel.Type
	m.rels[idx].Description = rel.Description
	m.rels[idx].UpdatedAt = rel.UpdatedAt
	return nil
}

// Delete deletes a relationship by ID.
func (m *RelationshipStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.rels {
		if m.rels[i].ID == id {
			m.rels = append(m.rels[:i], m.rels[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("relationship %s: %w", id, apperrors.ErrNotFound)
}

// DeleteByEndpoint deletes every relationship touching the term.
func (m *RelationshipStore) DeleteByEndpoint(_ context.Context, termID string) (int, error) {
	return m.deleteWhere(func(rel *entities.Relationship) bool { return rel.Touches(termID) })
}

// DeleteByPair deletes every relationship from source to target.
func (m *RelationshipStore) DeleteByPair(_ context.Context, sourceTermID, targetTermID string) (int, error) {
	return m.deleteWhere(func(rel *entities.Relationship) bool {
		return rel.SourceTermID == sourceTermID && rel.TargetTermID == targetTermID
	})
}

// Count returns the total number of relationships.
func (m *RelationshipStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.rels), nil
}

func (m *RelationshipStore) filter(keep func(*entities.Relationship) bool) ([]entities.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	result := make([]entities.Relationship, 0, len(m.rels))
	for i := range m.rels {
		if keep(&m.rels[i]) {
			result = append(result, m.rels[i])
		}
	}
	return result, nil
}

func (m *RelationshipStore) deleteWhere(drop func(*entities.Relationship) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	kept := m.rels[:0]
	removed := 0
	for i := range m.rels {
		if drop(&m.rels[i]) {
			removed++
			continue
		}
		kept = append(kept, m.rels[i])
	}
	m.rels = kept
	return removed, nil
}

func sameTriple(a, b *entities.Relationship) bool {
	return a.SourceTermID == b.SourceTermID && a.TargetTermID == b.TargetTermID && a.Type == b.Type
}

// AuditLog is a mock implementation of ports.AuditLog.
type AuditLog struct {
	mu      sync.Mutex
	Entries []entities.AuditEntry
	Err     error
}

// LogAction logs an action to the audit log.
func (m *AuditLog) LogAction(_ context.Context, action string, relationshipID string, details map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Entries = append(m.Entries, entities.AuditEntry{
		ID:             int64(len(m.Entries) + 1),
		Action:         action,
		RelationshipID: relationshipID,
		Details:        details,
	})
	return nil
}

// FindAuditLog finds audit log entries for a relationship.
func (m *AuditLog) FindAuditLog(_ context.Context, relationshipID string) ([]entities.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.AuditEntry
	for _, e := range m.Entries {
		if e.RelationshipID == relationshipID {
			result = append(result, e)
		}
	}
	return result, nil
}
