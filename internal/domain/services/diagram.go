package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/ports"
)

// DiagramProjector flattens a set of terms and the relationships among them
// into a node/edge view.
type DiagramProjector struct {
	store  ports.RelationshipStore
	terms  ports.TermOracle
	logger *zap.Logger
}

// NewDiagramProjector creates a new DiagramProjector.
func NewDiagramProjector(store ports.RelationshipStore, terms ports.TermOracle, logger *zap.Logger) *DiagramProjector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagramProjector{
		store:  store,
		terms:  terms,
		logger: logger.Named("diagram-projector"),
	}
}

// ForScope returns the diagram of the given terms. Edges with an endpoint
// outside the scope are dropped. Unknown term IDs produce no node.
func (p *DiagramProjector) ForScope(ctx context.Context, termIDs []string) (*entities.Diagram, error) {
	scope := make(map[string]bool, len(termIDs))
	ids := make([]string, 0, len(termIDs))
	for _, id := range termIDs {
		if !scope[id] {
			scope[id] = true
			ids = append(ids, id)
		}
	}

	diagram := &entities.Diagram{
		Nodes: []entities.DiagramNode{},
		Edges: []entities.DiagramEdge{},
	}
	if len(ids) == 0 {
		return diagram, nil
	}

	var (
		summaries []entities.TermSummary
		rels      []entities.Relationship
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summaries, err = p.terms.FindTerms(gctx, ids)
		if err != nil {
			return fmt.Errorf("fetching diagram terms: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rels, err = p.store.FindAmong(gctx, ids)
		if err != nil {
			return fmt.Errorf("fetching diagram relationships: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]entities.TermSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			continue
		}
		diagram.Nodes = append(diagram.Nodes, entities.DiagramNode{
			ID:        s.ID,
			Name:      s.Name,
			Status:    s.Status,
			Essential: s.Essential,
		})
	}

	sortByCreation(rels)
	for i := range rels {
		if !scope[rels[i].SourceTermID] || !scope[rels[i].TargetTermID] {
			continue
		}
		diagram.Edges = append(diagram.Edges, entities.DiagramEdge{
			ID:          rels[i].ID,
			Source:      rels[i].SourceTermID,
			Target:      rels[i].TargetTermID,
			Type:        rels[i].Type,
			Description: rels[i].Description,
		})
	}

	p.logger.Debug("Projected diagram",
		zap.Int("nodes", len(diagram.Nodes)),
		zap.Int("edges", len(diagram.Edges)))
	return diagram, nil
}

// ForContext returns the diagram of every term in a bounded context.
func (p *DiagramProjector) ForContext(ctx context.Context, contextID string) (*entities.Diagram, error) {
	ids, err := p.terms.ListByContext(ctx, contextID)
	if err != nil {
		return nil, fmt.Errorf("listing context terms: %w", err)
	}
	return p.ForScope(ctx, ids)
}
