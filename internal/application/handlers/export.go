package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

// Export formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatMermaid  = "mermaid"
)

// ExportFormats lists the formats Render accepts.
var ExportFormats = []string{FormatJSON, FormatMarkdown, FormatMermaid}

// Render writes the diagram to w in the given format.
func Render(w io.Writer, d *entities.Diagram, format string) error {
	switch format {
	case FormatJSON:
		return formatJSON(w, d)
	case FormatMarkdown:
		return formatMarkdown(w, d)
	case FormatMermaid:
		return formatMermaid(w, d)
	default:
		return fmt.Errorf("unknown format %q (valid: %s): %w",
			format, strings.Join(ExportFormats, ", "), apperrors.ErrInvalidArgument)
	}
}

func formatJSON(w io.Writer, d *entities.Diagram) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(d)
}

func formatMarkdown(w io.Writer, d *entities.Diagram) error {
	bw := bufio.NewWriter(w)
	names := nodeNames(d)

	fmt.Fprintln(bw, "# Term Diagram")
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "## Terms (%d)\n\n", len(d.Nodes))
	if len(d.Nodes) == 0 {
		fmt.Fprintln(bw, "_No terms._")
	} else {
		fmt.Fprintln(bw, "| ID | Name | Status | Essential |")
		fmt.Fprintln(bw, "|----|------|--------|-----------|")
		for _, n := range d.Nodes {
			essential := "no"
			if n.Essential {
				essential = "yes"
			}
			fmt.Fprintf(bw, "| %s | %s | %s | %s |\n",
				escapeCell(n.ID), escapeCell(n.Name), n.Status, essential)
		}
	}

	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "## Relationships (%d)\n\n", len(d.Edges))
	if len(d.Edges) == 0 {
		fmt.Fprintln(bw, "_No relationships._")
	}
	for _, e := range d.Edges {
		fmt.Fprintf(bw, "- **%s** %s **%s**", names[e.Source], e.Type, names[e.Target])
		if e.Description != "" {
			fmt.Fprintf(bw, ": %s", e.Description)
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "## Diagram")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "```mermaid")
	writeMermaid(bw, d)
	fmt.Fprintln(bw, "```")

	return bw.Flush()
}

func formatMermaid(w io.Writer, d *entities.Diagram) error {
	bw := bufio.NewWriter(w)
	writeMermaid(bw, d)
	return bw.Flush()
}

// writeMermaid writes a flowchart. Node identifiers are positional because
// term IDs may contain characters Mermaid does not accept.
func writeMermaid(w io.Writer, d *entities.Diagram) {
	fmt.Fprintln(w, "flowchart LR")

	ids := make(map[string]string, len(d.Nodes))
	for i, n := range d.Nodes {
		id := fmt.Sprintf("t%d", i)
		ids[n.ID] = id
		label := n.Name
		if label == "" {
			label = n.ID
		}
		fmt.Fprintf(w, "    %s[\"%s\"]\n", id, escapeMermaid(label))
		if n.Essential {
			fmt.Fprintf(w, "    class %s essential\n", id)
		}
	}

	for _, e := range d.Edges {
		src, ok := ids[e.Source]
		if !ok {
			continue
		}
		tgt, ok := ids[e.Target]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "    %s -->|%s| %s\n", src, e.Type, tgt)
	}

	fmt.Fprintln(w, "    classDef essential stroke-width:3px")
}

func nodeNames(d *entities.Diagram) map[string]string {
	names := make(map[string]string, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.Name != "" {
			names[n.ID] = n.Name
		} else {
			names[n.ID] = n.ID
		}
	}
	return names
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
