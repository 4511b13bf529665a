package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/mocks"
	"github.com/ersonp/termgraph/internal/domain/services"
)

func newTestDiagramHandler() *DiagramHandler {
	store := mocks.NewRelationshipStore(
		rel("r1", "order", "customer", entities.RelationAssociation),
		rel("r2", "order", "order-line", entities.RelationAggregation),
		rel("r3", "order", "invoice", entities.RelationAssociation),
	)
	catalog := mocks.NewTermCatalog(
		entities.Term{ID: "order", Name: "Order", ContextID: "sales", Status: entities.TermStatusActive, Essential: true},
		entities.Term{ID: "customer", Name: "Customer", ContextID: "sales", Status: entities.TermStatusActive},
		entities.Term{ID: "order-line", Name: `Order "Line"`, ContextID: "sales", Status: entities.TermStatusDraft},
		entities.Term{ID: "invoice", Name: "Invoice", ContextID: "billing"},
	)
	return NewDiagramHandler(services.NewDiagramProjector(store, catalog, nil))
}

func testDiagram() *entities.Diagram {
	return &entities.Diagram{
		Nodes: []entities.DiagramNode{
			{ID: "order", Name: "Order", Status: entities.TermStatusActive, Essential: true},
			{ID: "customer", Name: "Customer|Client", Status: entities.TermStatusActive},
		},
		Edges: []entities.DiagramEdge{
			{ID: "r1", Source: "order", Target: "customer", Type: entities.RelationAssociation, Description: "placed by"},
		},
	}
}

func TestDiagramHandler_HandleDiagram(t *testing.T) {
	h := newTestDiagramHandler()
	ctx := context.Background()

	t.Run("by terms", func(t *testing.T) {
		d, err := h.HandleDiagram(ctx, DiagramRequest{TermIDs: []string{"order", "customer"}})
		require.NoError(t, err)
		assert.Len(t, d.Nodes, 2)
		require.Len(t, d.Edges, 1)
		assert.Equal(t, "r1", d.Edges[0].ID)
	})

	t.Run("by context", func(t *testing.T) {
		d, err := h.HandleDiagram(ctx, DiagramRequest{ContextID: "sales"})
		require.NoError(t, err)
		assert.Len(t, d.Nodes, 3)
		assert.Len(t, d.Edges, 2)
	})

	t.Run("no scope", func(t *testing.T) {
		_, err := h.HandleDiagram(ctx, DiagramRequest{})
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	})

	t.Run("both scopes", func(t *testing.T) {
		_, err := h.HandleDiagram(ctx, DiagramRequest{TermIDs: []string{"order"}, ContextID: "sales"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	})
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Render(&buf, testDiagram(), FormatJSON))

	var decoded entities.Diagram
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *testDiagram(), decoded)
}

func TestRender_Markdown(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Render(&buf, testDiagram(), FormatMarkdown))

	out := buf.String()
	assert.Contains(t, out, "# Term Diagram")
	assert.Contains(t, out, "## Terms (2)")
	assert.Contains(t, out, "| order | Order | active | yes |")
	assert.Contains(t, out, `| customer | Customer\|Client | active | no |`)
	assert.Contains(t, out, "- **Order** association **Customer|Client**: placed by")
	assert.Contains(t, out, "```mermaid\nflowchart LR\n")
}

func TestRender_MarkdownEmpty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Render(&buf, &entities.Diagram{}, FormatMarkdown))

	assert.Contains(t, buf.String(), "_No terms._")
	assert.Contains(t, buf.String(), "_No relationships._")
}

func TestRender_Mermaid(t *testing.T) {
	var buf bytes.Buffer
	d := testDiagram()
	d.Nodes[1].Name = `The "Customer"`
	d.Edges = append(d.Edges, entities.DiagramEdge{ID: "r9", Source: "order", Target: "outside", Type: entities.RelationRelated})

	require.NoError(t, Render(&buf, d, FormatMermaid))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"flowchart LR",
		`    t0["Order"]`,
		"    class t0 essential",
		`    t1["The #quot;Customer#quot;"]`,
		"    t0 -->|association| t1",
		"    classDef essential stroke-width:3px",
	}, lines)
}

func TestRender_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer

	err := Render(&buf, testDiagram(), "csv")

	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Empty(t, buf.String())
}
