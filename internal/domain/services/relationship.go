package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/ports"
)

// CreateRelationshipInput holds the fields of a new relationship.
type CreateRelationshipInput struct {
	SourceTermID string
	TargetTermID string
	Type         entities.RelationType
	Description  string
	RequestedBy  string
}

// UpdateRelationshipInput holds the optional fields of a relationship update.
// Nil fields are left unchanged.
type UpdateRelationshipInput struct {
	Type        *entities.RelationType
	Description *string
}

// RelationshipService owns relationship invariants: no self-loops, no
// duplicate typed edges and no cycles among hierarchical edges.
type RelationshipService struct {
	store   ports.RelationshipStore
	terms   ports.TermOracle
	rules   entities.HierarchyRules
	audit   ports.AuditLog
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time

	// writeMu serializes mutations that can change the hierarchical subgraph.
	writeMu sync.Mutex
}

// RelationshipOption configures a RelationshipService.
type RelationshipOption func(*RelationshipService)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) RelationshipOption {
	return func(s *RelationshipService) {
		if logger != nil {
			s.logger = logger.Named("relationship-service")
		}
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) RelationshipOption {
	return func(s *RelationshipService) { s.metrics = m }
}

// WithAuditLog records every mutation in the given audit log.
func WithAuditLog(audit ports.AuditLog) RelationshipOption {
	return func(s *RelationshipService) { s.audit = audit }
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) RelationshipOption {
	return func(s *RelationshipService) { s.now = now }
}

// NewRelationshipService creates a new RelationshipService.
func NewRelationshipService(
	store ports.RelationshipStore,
	terms ports.TermOracle,
	rules entities.HierarchyRules,
	opts ...RelationshipOption,
) *RelationshipService {
	s := &RelationshipService{
		store:  store,
		terms:  terms,
		rules:  rules,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the hierarchy rules the service enforces.
func (s *RelationshipService) Rules() entities.HierarchyRules {
	return s.rules
}

// Create creates a new relationship between two terms.
// Preconditions are checked in order and the first failure wins: both terms
// exist, the terms differ, the typed edge is new, and a hierarchical edge
// does not close a cycle.
func (s *RelationshipService) Create(ctx context.Context, in CreateRelationshipInput) (*entities.Relationship, error) {
	rel, err := s.create(ctx, in)
	s.metrics.mutation("create", err)
	return rel, err
}

func (s *RelationshipService) create(ctx context.Context, in CreateRelationshipInput) (*entities.Relationship, error) {
	if _, err := entities.ParseRelationType(string(in.Type)); err != nil {
		return nil, err
	}

	if err := s.requireTerms(ctx, in.SourceTermID, in.TargetTermID); err != nil {
		return nil, err
	}

	if in.SourceTermID == in.TargetTermID {
		return nil, fmt.Errorf("cannot relate a term to itself: %w", apperrors.ErrInvalidArgument)
	}

	hierarchical := s.rules.IsHierarchical(in.Type)
	if hierarchical {
		unlock, err := s.lockHierarchy(ctx)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	existing, err := s.findTriple(ctx, in.SourceTermID, in.TargetTermID, in.Type, "")
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("relationship already exists between these terms (id: %s): %w",
			existing.ID, apperrors.ErrConflict)
	}

	if hierarchical {
		if err := s.checkCycle(ctx, in.SourceTermID, in.TargetTermID, in.Type, ""); err != nil {
			return nil, err
		}
	}

	now := s.now()
	rel := &entities.Relationship{
		ID:           newRelationshipID(),
		SourceTermID: in.SourceTermID,
		TargetTermID: in.TargetTermID,
		Type:         in.Type,
		Description:  in.Description,
		CreatedBy:    in.RequestedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The store's uniqueness constraint is authoritative; the pre-check above
	// only avoids the round trip in the common case.
	if err := s.store.Insert(ctx, rel); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("relationship already exists between these terms: %w", err)
		}
		s.logger.Error("Failed to save relationship", zap.Error(err))
		return nil, fmt.Errorf("saving relationship: %w", err)
	}

	s.logger.Info("Created relationship",
		zap.String("relationship_id", rel.ID),
		zap.String("source", rel.SourceTermID),
		zap.String("target", rel.TargetTermID),
		zap.String("type", string(rel.Type)))

	s.recordAudit(ctx, entities.AuditRelationshipCreated, rel.ID, map[string]any{
		"source": rel.SourceTermID,
		"target": rel.TargetTermID,
		"type":   string(rel.Type),
		"by":     rel.CreatedBy,
	})

	return rel, nil
}

// Update changes the type and/or description of a relationship. Endpoints
// are immutable. A type change involving a hierarchical type re-validates
// acyclicity with the relationship's current edge removed.
func (s *RelationshipService) Update(ctx context.Context, id string, in UpdateRelationshipInput) (*entities.Relationship, error) {
	rel, err := s.update(ctx, id, in)
	s.metrics.mutation("update", err)
	return rel, err
}

func (s *RelationshipService) update(ctx context.Context, id string, in UpdateRelationshipInput) (*entities.Relationship, error) {
	if in.Type != nil {
		if _, err := entities.ParseRelationType(string(*in.Type)); err != nil {
			return nil, err
		}
	}

	// The store writes back the whole record, type included, so even a
	// description-only update must not interleave with a type change.
	unlock, err := s.lockHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rel, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding relationship: %w", err)
	}

	if in.Type != nil && *in.Type != rel.Type {
		newType := *in.Type

		existing, err := s.findTriple(ctx, rel.SourceTermID, rel.TargetTermID, newType, rel.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("relationship already exists between these terms (id: %s): %w",
				existing.ID, apperrors.ErrConflict)
		}

		// Dropping out of the hierarchy cannot create a cycle, so only the
		// new type needs checking.
		if s.rules.IsHierarchical(newType) {
			if err := s.checkCycle(ctx, rel.SourceTermID, rel.TargetTermID, newType, rel.ID); err != nil {
				return nil, err
			}
		}
		rel.Type = newType
	}

	if in.Description != nil {
		rel.Description = *in.Description
	}
	rel.UpdatedAt = s.now()

	if err := s.store.Update(ctx, rel); err != nil {
		return nil, fmt.Errorf("updating relationship: %w", err)
	}

	s.logger.Info("Updated relationship",
		zap.String("relationship_id", rel.ID),
		zap.String("type", string(rel.Type)))

	s.recordAudit(ctx, entities.AuditRelationshipUpdated, rel.ID, map[string]any{
		"type":        string(rel.Type),
		"description": rel.Description,
	})

	return rel, nil
}

// Delete removes a relationship by ID.
func (s *RelationshipService) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	s.metrics.mutation("delete", err)
	if err != nil {
		return fmt.Errorf("deleting relationship: %w", err)
	}

	s.logger.Info("Deleted relationship", zap.String("relationship_id", id))
	s.recordAudit(ctx, entities.AuditRelationshipDeleted, id, nil)
	return nil
}

// DeleteBetween removes the single relationship from source to target,
// whatever its type. It fails with ErrInvalidArgument when several typed
// relationships connect the pair; callers then delete by ID.
func (s *RelationshipService) DeleteBetween(ctx context.Context, sourceTermID, targetTermID string) error {
	err := s.deleteBetween(ctx, sourceTermID, targetTermID)
	s.metrics.mutation("delete_between", err)
	return err
}

func (s *RelationshipService) deleteBetween(ctx context.Context, sourceTermID, targetTermID string) error {
	matches, err := s.findPair(ctx, sourceTermID, targetTermID)
	if err != nil {
		return err
	}

	switch len(matches) {
	case 0:
		return fmt.Errorf("no relationship from %s to %s: %w", sourceTermID, targetTermID, apperrors.ErrNotFound)
	case 1:
	default:
		types := make([]string, len(matches))
		for i := range matches {
			types[i] = string(matches[i].Type)
		}
		return fmt.Errorf("%d relationships from %s to %s (%s), delete by id instead: %w",
			len(matches), sourceTermID, targetTermID, strings.Join(types, ", "), apperrors.ErrInvalidArgument)
	}

	id := matches[0].ID
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting relationship: %w", err)
	}

	s.logger.Info("Deleted relationship between terms",
		zap.String("relationship_id", id),
		zap.String("source", sourceTermID),
		zap.String("target", targetTermID))
	s.recordAudit(ctx, entities.AuditRelationshipDeleted, id, map[string]any{
		"source": sourceTermID,
		"target": targetTermID,
	})
	return nil
}

// DeleteAllBetween removes every typed relationship from source to target
// and returns how many were removed.
func (s *RelationshipService) DeleteAllBetween(ctx context.Context, sourceTermID, targetTermID string) (int, error) {
	n, err := s.store.DeleteByPair(ctx, sourceTermID, targetTermID)
	s.metrics.mutation("delete_between", err)
	if err != nil {
		return 0, fmt.Errorf("deleting relationships between terms: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("no relationship from %s to %s: %w", sourceTermID, targetTermID, apperrors.ErrNotFound)
	}
	s.logger.Info("Deleted relationships between terms",
		zap.String("source", sourceTermID),
		zap.String("target", targetTermID),
		zap.Int("count", n))
	s.recordAudit(ctx, entities.AuditRelationshipDeleted, "", map[string]any{
		"source": sourceTermID,
		"target": targetTermID,
		"count":  n,
	})
	return n, nil
}

// DeleteForTerm removes every relationship touching the term. Used when the
// term itself is removed.
func (s *RelationshipService) DeleteForTerm(ctx context.Context, termID string) (int, error) {
	n, err := s.store.DeleteByEndpoint(ctx, termID)
	s.metrics.mutation("delete_for_term", err)
	if err != nil {
		return 0, fmt.Errorf("deleting term relationships: %w", err)
	}

	if n > 0 {
		s.logger.Info("Deleted term relationships",
			zap.String("term_id", termID),
			zap.Int("count", n))
		s.recordAudit(ctx, entities.AuditTermRelationsPurged, "", map[string]any{
			"term":  termID,
			"count": n,
		})
	}
	return n, nil
}

// Get returns a relationship by ID.
func (s *RelationshipService) Get(ctx context.Context, id string) (*entities.Relationship, error) {
	return s.store.FindByID(ctx, id)
}

// Count returns the total number of relationships.
func (s *RelationshipService) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// FindForTerm returns every relationship touching the term, annotated with
// its direction relative to the term and the other endpoint's summary.
func (s *RelationshipService) FindForTerm(ctx context.Context, termID string) ([]entities.RelationshipView, error) {
	rels, err := s.store.FindByEndpoint(ctx, termID, entities.DirectionBoth)
	if err != nil {
		return nil, fmt.Errorf("finding relationships: %w", err)
	}
	if len(rels) == 0 {
		return []entities.RelationshipView{}, nil
	}

	// Collect unique related term IDs to fetch in one call
	seen := make(map[string]bool, len(rels))
	ids := make([]string, 0, len(rels))
	for i := range rels {
		other := rels[i].Other(termID)
		if !seen[other] {
			seen[other] = true
			ids = append(ids, other)
		}
	}

	summaries, err := s.terms.FindTerms(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching related terms: %w", err)
	}
	byID := make(map[string]*entities.TermSummary, len(summaries))
	for i := range summaries {
		byID[summaries[i].ID] = &summaries[i]
	}

	views := make([]entities.RelationshipView, 0, len(rels))
	for i := range rels {
		dir := entities.DirectionIncoming
		if rels[i].SourceTermID == termID {
			dir = entities.DirectionOutgoing
		}
		views = append(views, entities.RelationshipView{
			Relationship: rels[i],
			Direction:    dir,
			RelatedTerm:  byID[rels[i].Other(termID)],
		})
	}
	return views, nil
}

// FindRelatedTermsByType returns the other endpoint of every relationship of
// the given type touching the term, in relationship order without repeats.
func (s *RelationshipService) FindRelatedTermsByType(ctx context.Context, termID string, relType entities.RelationType) ([]string, error) {
	rels, err := s.store.FindByEndpoint(ctx, termID, entities.DirectionBoth)
	if err != nil {
		return nil, fmt.Errorf("finding relationships: %w", err)
	}

	seen := make(map[string]bool)
	related := make([]string, 0, len(rels))
	for i := range rels {
		if rels[i].Type != relType {
			continue
		}
		other := rels[i].Other(termID)
		if !seen[other] {
			seen[other] = true
			related = append(related, other)
		}
	}
	return related, nil
}

// BuildHierarchy returns the hierarchy tree below rootID. Terms reached a
// second time are omitted, which also breaks cycles found in stored data.
// With an empty rootID it returns the raw hierarchical relationships.
func (s *RelationshipService) BuildHierarchy(ctx context.Context, rootID string) (*entities.Hierarchy, error) {
	start := time.Now()
	defer s.metrics.observeTraversal("hierarchy", start)

	if rootID == "" {
		rels, err := loadHierarchical(ctx, s.store, s.rules, "")
		if err != nil {
			return nil, err
		}
		return &entities.Hierarchy{Edges: rels}, nil
	}

	if err := s.requireTerms(ctx, rootID); err != nil {
		return nil, err
	}

	rels, err := loadHierarchical(ctx, s.store, s.rules, "")
	if err != nil {
		return nil, err
	}

	root, backEdges := newHierarchyGraph(s.rules, rels).tree(rootID)
	if backEdges > 0 {
		s.metrics.cycleAbsorbed("hierarchy")
		s.logger.Debug("Cycle in hierarchy data, back edges omitted",
			zap.String("root", rootID),
			zap.Int("back_edges", backEdges))
	}
	return &entities.Hierarchy{Root: root}, nil
}

// requireTerms fails with ErrNotFound on the first term that does not exist.
func (s *RelationshipService) requireTerms(ctx context.Context, termIDs ...string) error {
	for _, id := range termIDs {
		exists, err := s.terms.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("checking term exists: %w", err)
		}
		if !exists {
			return fmt.Errorf("term not found: %s: %w", id, apperrors.ErrNotFound)
		}
	}
	return nil
}

// findPair returns the relationships from source to target.
func (s *RelationshipService) findPair(ctx context.Context, sourceTermID, targetTermID string) ([]entities.Relationship, error) {
	outgoing, err := s.store.FindByEndpoint(ctx, sourceTermID, entities.DirectionOutgoing)
	if err != nil {
		return nil, fmt.Errorf("checking existing relationships: %w", err)
	}
	matches := make([]entities.Relationship, 0, 1)
	for i := range outgoing {
		if outgoing[i].TargetTermID == targetTermID {
			matches = append(matches, outgoing[i])
		}
	}
	return matches, nil
}

// findTriple returns the relationship with the given endpoints and type, or
// nil. The relationship with excludeID is ignored.
func (s *RelationshipService) findTriple(
	ctx context.Context,
	sourceTermID, targetTermID string,
	relType entities.RelationType,
	excludeID string,
) (*entities.Relationship, error) {
	matches, err := s.findPair(ctx, sourceTermID, targetTermID)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		if matches[i].Type == relType && matches[i].ID != excludeID {
			return &matches[i], nil
		}
	}
	return nil, nil
}

// checkCycle fails with ErrInvalidArgument when adding the hierarchical edge
// would close a cycle: the new child must not already be reachable from the
// new parent along child->parent edges.
func (s *RelationshipService) checkCycle(
	ctx context.Context,
	sourceTermID, targetTermID string,
	relType entities.RelationType,
	excludeID string,
) error {
	child, parent, ok := s.rules.EdgeFor(sourceTermID, targetTermID, relType)
	if !ok {
		return nil
	}

	start := time.Now()
	defer s.metrics.observeTraversal("cycle_check", start)

	rels, err := loadHierarchical(ctx, s.store, s.rules, excludeID)
	if err != nil {
		return err
	}

	if newHierarchyGraph(s.rules, rels).reachesUpward(parent, child) {
		s.logger.Debug("Rejected cycle-forming relationship",
			zap.String("source", sourceTermID),
			zap.String("target", targetTermID),
			zap.String("type", string(relType)))
		return fmt.Errorf("relationship %s -[%s]-> %s would create a circular dependency: %w",
			sourceTermID, relType, targetTermID, apperrors.ErrInvalidArgument)
	}
	return nil
}

// lockHierarchy takes the process-wide write lock and, when the store
// supports it, the store-level hierarchy lock.
func (s *RelationshipService) lockHierarchy(ctx context.Context) (func(), error) {
	s.writeMu.Lock()

	locker, ok := s.store.(ports.HierarchyLocker)
	if !ok {
		return s.writeMu.Unlock, nil
	}

	release, err := locker.LockHierarchy(ctx)
	if err != nil {
		s.writeMu.Unlock()
		return nil, fmt.Errorf("locking hierarchy: %w", err)
	}
	return func() {
		release()
		s.writeMu.Unlock()
	}, nil
}

// recordAudit writes an audit entry. The mutation has already been committed,
// so a failure is logged rather than returned.
func (s *RelationshipService) recordAudit(ctx context.Context, action, relationshipID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogAction(ctx, action, relationshipID, details); err != nil {
		s.logger.Warn("Failed to write audit entry",
			zap.String("action", action),
			zap.String("relationship_id", relationshipID),
			zap.Error(err))
	}
}

// isRejection reports whether err is a validation outcome rather than a
// failure of a collaborator.
func isRejection(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrConflict) ||
		errors.Is(err, apperrors.ErrInvalidArgument)
}

// newRelationshipID returns a time-ordered UUID so that stores ordering by
// key also return relationships in creation order.
func newRelationshipID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
