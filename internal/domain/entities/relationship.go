package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
)

// RelationType defines the kind of relationship between terms.
type RelationType string

// Symmetric and hierarchical relationship types.
const (
	RelationSynonym RelationType = "synonym"
	RelationAntonym RelationType = "antonym"
	RelationRelated RelationType = "related"
	RelationParent  RelationType = "parent"
	RelationChild   RelationType = "child"
)

// Structural relationship types.
const (
	RelationAggregation RelationType = "aggregation"
	RelationAssociation RelationType = "association"
	RelationDependency  RelationType = "dependency"
	RelationInheritance RelationType = "inheritance"
)

// AllRelationTypes lists every valid relationship type in display order.
var AllRelationTypes = []RelationType{
	RelationSynonym, RelationAntonym, RelationRelated, RelationParent, RelationChild,
	RelationAggregation, RelationAssociation, RelationDependency, RelationInheritance,
}

// ParseRelationType validates and converts a string to RelationType.
func ParseRelationType(s string) (RelationType, error) {
	candidate := RelationType(strings.ToLower(strings.TrimSpace(s)))
	for _, rt := range AllRelationTypes {
		if rt == candidate {
			return rt, nil
		}
	}
	return "", fmt.Errorf("invalid relationship type %q (valid: %s): %w",
		s, strings.Join(RelationTypeNames(), ", "), apperrors.ErrInvalidArgument)
}

// RelationTypeNames returns the string form of every relationship type.
func RelationTypeNames() []string {
	names := make([]string, len(AllRelationTypes))
	for i, rt := range AllRelationTypes {
		names[i] = string(rt)
	}
	return names
}

// Relationship represents a directed, typed connection between two terms.
type Relationship struct {
	ID           string       `json:"id"`
	SourceTermID string       `json:"source_term_id"`
	TargetTermID string       `json:"target_term_id"`
	Type         RelationType `json:"type"`
	Description  string       `json:"description,omitempty"`
	CreatedBy    string       `json:"created_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Touches reports whether the term is either endpoint of the relationship.
func (r *Relationship) Touches(termID string) bool {
	return r.SourceTermID == termID || r.TargetTermID == termID
}

// Other returns the endpoint that is not termID.
func (r *Relationship) Other(termID string) string {
	if r.SourceTermID == termID {
		return r.TargetTermID
	}
	return r.SourceTermID
}

// Direction describes which endpoint of a relationship a term occupies.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// RelationshipView is a relationship seen from one of its endpoints.
type RelationshipView struct {
	Relationship Relationship `json:"relationship"`
	Direction    Direction    `json:"direction"`
	RelatedTerm  *TermSummary `json:"related_term,omitempty"`
}
