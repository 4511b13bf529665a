package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/services"
)

// DiagramHandler projects terms into diagrams and renders them.
type DiagramHandler struct {
	projector *services.DiagramProjector
}

// NewDiagramHandler creates a new DiagramHandler.
func NewDiagramHandler(projector *services.DiagramProjector) *DiagramHandler {
	return &DiagramHandler{
		projector: projector,
	}
}

// DiagramRequest selects the diagram scope: either explicit terms or a
// bounded context.
type DiagramRequest struct {
	TermIDs   []string `json:"term_ids,omitempty" validate:"required_without=ContextID,dive,required,max=200"`
	ContextID string   `json:"context_id,omitempty" validate:"required_without=TermIDs,max=200"`
}

// HandleDiagram returns the diagram for the requested scope.
func (h *DiagramHandler) HandleDiagram(ctx context.Context, req DiagramRequest) (*entities.Diagram, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if len(req.TermIDs) > 0 && req.ContextID != "" {
		return nil, fmt.Errorf("give either terms or a context, not both: %w", apperrors.ErrInvalidArgument)
	}

	if req.ContextID != "" {
		return h.projector.ForContext(ctx, req.ContextID)
	}
	return h.projector.ForScope(ctx, req.TermIDs)
}

// HandleExport renders a diagram in the given format.
func (h *DiagramHandler) HandleExport(w io.Writer, d *entities.Diagram, format string) error {
	return Render(w, d, format)
}
