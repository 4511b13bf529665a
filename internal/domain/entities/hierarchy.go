package entities

import (
	"fmt"
	"sort"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
)

// Orientation tells which endpoint of a hierarchical relationship is the parent.
type Orientation string

const (
	// TargetIsParent means "source --type--> target" reads "target is the
	// parent of source", so the source depends on the target.
	TargetIsParent Orientation = "target_is_parent"
	// TargetIsChild means "source --type--> target" reads "target is the
	// child of source", so the target depends on the source.
	TargetIsChild Orientation = "target_is_child"
)

// ParseOrientation validates an orientation name.
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(s) {
	case TargetIsParent, TargetIsChild:
		return Orientation(s), nil
	default:
		return "", fmt.Errorf("invalid orientation %q (valid: %s, %s): %w",
			s, TargetIsParent, TargetIsChild, apperrors.ErrInvalidArgument)
	}
}

// HierarchyRules maps each hierarchical relationship type to its orientation.
// Types absent from the map are not hierarchical.
type HierarchyRules map[RelationType]Orientation

// DefaultHierarchyRules returns the built-in hierarchical types.
func DefaultHierarchyRules() HierarchyRules {
	return HierarchyRules{
		RelationParent:      TargetIsParent,
		RelationChild:       TargetIsChild,
		RelationInheritance: TargetIsParent,
		RelationDependency:  TargetIsParent,
	}
}

// ParseHierarchyRules converts a type->orientation string map into rules.
func ParseHierarchyRules(raw map[string]string) (HierarchyRules, error) {
	rules := make(HierarchyRules, len(raw))
	for typeName, orientationName := range raw {
		rt, err := ParseRelationType(typeName)
		if err != nil {
			return nil, err
		}
		o, err := ParseOrientation(orientationName)
		if err != nil {
			return nil, fmt.Errorf("relation type %s: %w", rt, err)
		}
		rules[rt] = o
	}
	return rules, nil
}

// IsHierarchical reports whether the relationship type is subject to
// acyclicity checks and takes part in hierarchy views.
func (h HierarchyRules) IsHierarchical(rt RelationType) bool {
	_, ok := h[rt]
	return ok
}

// Types returns the hierarchical types in a stable order.
func (h HierarchyRules) Types() []RelationType {
	types := make([]RelationType, 0, len(h))
	for rt := range h {
		types = append(types, rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Edge normalizes a hierarchical relationship into a child->parent pair.
// ok is false when the relationship type is not hierarchical.
func (h HierarchyRules) Edge(rel *Relationship) (child, parent string, ok bool) {
	return h.EdgeFor(rel.SourceTermID, rel.TargetTermID, rel.Type)
}

// EdgeFor normalizes a would-be relationship into a child->parent pair.
func (h HierarchyRules) EdgeFor(source, target string, rt RelationType) (child, parent string, ok bool) {
	switch h[rt] {
	case TargetIsParent:
		return source, target, true
	case TargetIsChild:
		return target, source, true
	default:
		return "", "", false
	}
}

// HierarchyNode is one term in a derived hierarchy tree.
type HierarchyNode struct {
	TermID   string           `json:"term_id"`
	Children []*HierarchyNode `json:"children"`
}

// Size returns the number of nodes in the subtree rooted at n.
func (n *HierarchyNode) Size() int {
	if n == nil {
		return 0
	}
	size := 1
	for _, c := range n.Children {
		size += c.Size()
	}
	return size
}

// Hierarchy is the result of a hierarchy query: a tree when a root was
// requested, otherwise the raw hierarchical edges.
type Hierarchy struct {
	Root  *HierarchyNode `json:"root,omitempty"`
	Edges []Relationship `json:"edges,omitempty"`
}
