package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/services"
)

// RelationshipHandler handles relationship operations.
type RelationshipHandler struct {
	service *services.RelationshipService
}

// NewRelationshipHandler creates a new RelationshipHandler.
func NewRelationshipHandler(service *services.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{
		service: service,
	}
}

// CreateRelationshipRequest is the input of HandleCreate.
type CreateRelationshipRequest struct {
	Source      string `json:"source" validate:"required,max=200"`
	Target      string `json:"target" validate:"required,max=200"`
	Type        string `json:"type" validate:"required,relationtype"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	RequestedBy string `json:"requested_by,omitempty" validate:"max=200"`
}

// UpdateRelationshipRequest is the input of HandleUpdate. Nil fields are
// left unchanged.
type UpdateRelationshipRequest struct {
	Type        *string `json:"type,omitempty" validate:"omitempty,relationtype"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// ListOptions configures relationship listing behavior.
type ListOptions struct {
	Type      string // Filter by relationship type (empty = all)
	Direction string // outgoing, incoming or both (empty = both)
}

// ListResult contains the result of listing relationships.
type ListResult struct {
	TermID        string                      `json:"term_id"`
	Relationships []entities.RelationshipView `json:"relationships"`
}

// HandleCreate creates a new relationship between two terms.
func (h *RelationshipHandler) HandleCreate(ctx context.Context, req CreateRelationshipRequest) (*entities.Relationship, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	rt, err := entities.ParseRelationType(req.Type)
	if err != nil {
		return nil, err
	}

	return h.service.Create(ctx, services.CreateRelationshipInput{
		SourceTermID: req.Source,
		TargetTermID: req.Target,
		Type:         rt,
		Description:  req.Description,
		RequestedBy:  req.RequestedBy,
	})
}

// HandleUpdate changes the type and/or description of a relationship.
func (h *RelationshipHandler) HandleUpdate(ctx context.Context, id string, req UpdateRelationshipRequest) (*entities.Relationship, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Type == nil && req.Description == nil {
		return nil, fmt.Errorf("nothing to update: %w", apperrors.ErrInvalidArgument)
	}

	in := services.UpdateRelationshipInput{Description: req.Description}
	if req.Type != nil {
		rt, err := entities.ParseRelationType(*req.Type)
		if err != nil {
			return nil, err
		}
		in.Type = &rt
	}

	return h.service.Update(ctx, id, in)
}

// HandleDelete removes a relationship by ID.
func (h *RelationshipHandler) HandleDelete(ctx context.Context, id string) error {
	return h.service.Delete(ctx, id)
}

// HandleUnlink removes the relationship from source to target. With all set,
// every typed relationship between the pair is removed. It returns the
// number of relationships removed.
func (h *RelationshipHandler) HandleUnlink(ctx context.Context, source, target string, all bool) (int, error) {
	if all {
		return h.service.DeleteAllBetween(ctx, source, target)
	}
	if err := h.service.DeleteBetween(ctx, source, target); err != nil {
		return 0, err
	}
	return 1, nil
}

// HandleList returns relationships for a term with optional filtering.
func (h *RelationshipHandler) HandleList(ctx context.Context, termID string, opts ListOptions) (*ListResult, error) {
	var relType entities.RelationType
	if opts.Type != "" {
		rt, err := entities.ParseRelationType(opts.Type)
		if err != nil {
			return nil, err
		}
		relType = rt
	}

	dir, err := parseDirection(opts.Direction)
	if err != nil {
		return nil, err
	}

	views, err := h.service.FindForTerm(ctx, termID)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}

	filtered := make([]entities.RelationshipView, 0, len(views))
	for i := range views {
		if relType != "" && views[i].Relationship.Type != relType {
			continue
		}
		if dir != entities.DirectionBoth && views[i].Direction != dir {
			continue
		}
		filtered = append(filtered, views[i])
	}

	return &ListResult{
		TermID:        termID,
		Relationships: filtered,
	}, nil
}

// HandleRelated returns the terms related to termID by the given type.
func (h *RelationshipHandler) HandleRelated(ctx context.Context, termID, relType string) ([]string, error) {
	rt, err := entities.ParseRelationType(relType)
	if err != nil {
		return nil, err
	}
	return h.service.FindRelatedTermsByType(ctx, termID, rt)
}

// HandleHierarchy returns the hierarchy below rootID, or every hierarchical
// relationship when rootID is empty.
func (h *RelationshipHandler) HandleHierarchy(ctx context.Context, rootID string) (*entities.Hierarchy, error) {
	return h.service.BuildHierarchy(ctx, rootID)
}

// HandleCount returns the total number of relationships.
func (h *RelationshipHandler) HandleCount(ctx context.Context) (int, error) {
	return h.service.Count(ctx)
}

// HierarchicalTypes returns the relation types that form the hierarchy.
func (h *RelationshipHandler) HierarchicalTypes() []entities.RelationType {
	return h.service.Rules().Types()
}

func parseDirection(s string) (entities.Direction, error) {
	switch entities.Direction(s) {
	case "", entities.DirectionBoth:
		return entities.DirectionBoth, nil
	case entities.DirectionOutgoing, entities.DirectionIncoming:
		return entities.Direction(s), nil
	default:
		return "", fmt.Errorf("invalid direction %q (valid: outgoing, incoming, both): %w", s, apperrors.ErrInvalidArgument)
	}
}
