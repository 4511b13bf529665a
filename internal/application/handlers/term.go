package handlers

import (
	"context"

	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/services"
)

// TermHandler handles term operations at the application layer.
type TermHandler struct {
	termService *services.TermService
}

// NewTermHandler creates a new TermHandler.
func NewTermHandler(termService *services.TermService) *TermHandler {
	return &TermHandler{
		termService: termService,
	}
}

// SaveTermRequest is the input of HandleSave.
type SaveTermRequest struct {
	ID         string `json:"id,omitempty" validate:"max=200"`
	Name       string `json:"name" validate:"required,max=200"`
	ContextID  string `json:"context_id,omitempty" validate:"max=200"`
	Definition string `json:"definition,omitempty" validate:"max=2000"`
	Status     string `json:"status,omitempty" validate:"omitempty,oneof=draft active deprecated archived"`
	Essential  bool   `json:"essential"`
}

// TermListResult contains the result of listing terms.
type TermListResult struct {
	Terms []entities.Term `json:"terms"`
	Total int             `json:"total"`
}

// HandleSave creates or updates a term.
func (h *TermHandler) HandleSave(ctx context.Context, req SaveTermRequest) (*entities.Term, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return h.termService.Save(ctx, services.SaveTermInput{
		ID:         req.ID,
		Name:       req.Name,
		ContextID:  req.ContextID,
		Definition: req.Definition,
		Status:     req.Status,
		Essential:  req.Essential,
	})
}

// HandleGet returns a term by ID.
func (h *TermHandler) HandleGet(ctx context.Context, id string) (*entities.Term, error) {
	return h.termService.Get(ctx, id)
}

// HandleList returns the terms of a bounded context, or all terms.
func (h *TermHandler) HandleList(ctx context.Context, contextID string) (*TermListResult, error) {
	terms, err := h.termService.List(ctx, contextID)
	if err != nil {
		return nil, err
	}
	return &TermListResult{
		Terms: terms,
		Total: len(terms),
	}, nil
}

// HandleDelete removes a term and its relationships.
func (h *TermHandler) HandleDelete(ctx context.Context, id string) error {
	return h.termService.Delete(ctx, id)
}

// HandleMarkLearned records that a user learned a term.
func (h *TermHandler) HandleMarkLearned(ctx context.Context, userID, termID string) error {
	return h.termService.MarkLearned(ctx, userID, termID)
}
