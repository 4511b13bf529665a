package ports

import (
	"context"

	"github.com/ersonp/termgraph/internal/domain/entities"
)

// RelationshipStore defines the persistence contract for relationships.
// Implementations enforce uniqueness of (source, target, type) atomically on
// Insert and Update and report violations as apperrors.ErrConflict. All list
// results are ordered by creation time, then ID.
type RelationshipStore interface {
	// Insert stores a new relationship.
	Insert(ctx context.Context, rel *entities.Relationship) error

	// FindByID finds a relationship by ID. Returns apperrors.ErrNotFound if absent.
	FindByID(ctx context.Context, id string) (*entities.Relationship, error)

	// FindByEndpoint finds relationships where the term is the source
	// (outgoing), the target (incoming) or either (both).
	FindByEndpoint(ctx context.Context, termID string, dir entities.Direction) ([]entities.Relationship, error)

	// FindByType finds all relationships of a given type.
	FindByType(ctx context.Context, relType entities.RelationType) ([]entities.Relationship, error)

	// FindAmong finds relationships whose source and target are both in termIDs.
	FindAmong(ctx context.Context, termIDs []string) ([]entities.Relationship, error)

	// Update persists the mutable fields (type, description, updated_at).
	Update(ctx context.Context, rel *entities.Relationship) error

	// Delete deletes a relationship by ID. Returns apperrors.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// DeleteByEndpoint deletes every relationship touching the term.
	DeleteByEndpoint(ctx context.Context, termID string) (int, error)

	// DeleteByPair deletes every relationship from source to target.
	DeleteByPair(ctx context.Context, sourceTermID, targetTermID string) (int, error)

	// Count returns the total number of relationships.
	Count(ctx context.Context) (int, error)
}

// HierarchyLocker is implemented by stores that can serialize hierarchical
// mutations across processes. The returned function releases the lock.
type HierarchyLocker interface {
	LockHierarchy(ctx context.Context) (func(), error)
}

// AuditLog records relationship mutations.
type AuditLog interface {
	// LogAction logs an action to the audit log.
	LogAction(ctx context.Context, action string, relationshipID string, details map[string]any) error

	// FindAuditLog finds audit log entries for a relationship.
	FindAuditLog(ctx context.Context, relationshipID string) ([]entities.AuditEntry, error)
}
