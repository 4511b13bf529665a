package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
)

// TermStatus is the lifecycle state of a glossary term.
type TermStatus string

const (
	TermStatusDraft      TermStatus = "draft"
	TermStatusActive     TermStatus = "active"
	TermStatusDeprecated TermStatus = "deprecated"
)

// ParseTermStatus validates a status string. "archived" is accepted as an
// alias of deprecated.
func ParseTermStatus(s string) (TermStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "draft":
		return TermStatusDraft, nil
	case "active":
		return TermStatusActive, nil
	case "deprecated", "archived":
		return TermStatusDeprecated, nil
	default:
		return "", fmt.Errorf("invalid term status %q: %w", s, apperrors.ErrInvalidArgument)
	}
}

// Term is a glossary entry. The graph engine only references terms by ID
// and never mutates them.
type Term struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ContextID  string     `json:"context_id,omitempty"`
	Definition string     `json:"definition,omitempty"`
	Status     TermStatus `json:"status"`
	Essential  bool       `json:"essential"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Summary returns the display attributes of the term.
func (t *Term) Summary() TermSummary {
	return TermSummary{
		ID:        t.ID,
		Name:      t.Name,
		Status:    t.Status,
		Essential: t.Essential,
	}
}

// TermSummary holds the display attributes used to enrich graph views.
type TermSummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    TermStatus `json:"status"`
	Essential bool       `json:"essential"`
}
