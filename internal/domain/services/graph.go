package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/ports"
)

// hierarchyGraph is an in-memory adjacency view of the hierarchical edges,
// normalized to child->parent pairs. It is built per call and never shared.
type hierarchyGraph struct {
	parents  map[string][]string
	children map[string][]string
	seen     map[[2]string]bool
}

func newHierarchyGraph(rules entities.HierarchyRules, rels []entities.Relationship) *hierarchyGraph {
	g := &hierarchyGraph{
		parents:  make(map[string][]string),
		children: make(map[string][]string),
		seen:     make(map[[2]string]bool, len(rels)),
	}
	for i := range rels {
		if child, parent, ok := rules.Edge(&rels[i]); ok {
			g.addEdge(child, parent)
		}
	}
	return g
}

func (g *hierarchyGraph) addEdge(child, parent string) {
	key := [2]string{child, parent}
	if g.seen[key] {
		return
	}
	g.seen[key] = true
	g.parents[child] = append(g.parents[child], parent)
	g.children[parent] = append(g.children[parent], child)
}

// reachesUpward reports whether target is reachable from start by following
// child->parent edges. The visited set guarantees termination on cyclic data.
func (g *hierarchyGraph) reachesUpward(start, target string) bool {
	if start == target {
		return true
	}
	visited := make(map[string]bool)
	stack := []string{start}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[current] {
			continue
		}
		visited[current] = true

		for _, p := range g.parents[current] {
			if p == target {
				return true
			}
			if !visited[p] {
				stack = append(stack, p)
			}
		}
	}
	return false
}

// tree builds the hierarchy below rootID in depth-first order. A term that
// was already placed is left out; backEdges counts the omissions that were
// caused by a cycle rather than by a shared child.
func (g *hierarchyGraph) tree(rootID string) (root *entities.HierarchyNode, backEdges int) {
	type frame struct {
		node *entities.HierarchyNode
		next int
	}

	root = &entities.HierarchyNode{TermID: rootID, Children: []*entities.HierarchyNode{}}
	visited := map[string]bool{rootID: true}
	onPath := map[string]bool{rootID: true}
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		kids := g.children[top.node.TermID]
		if top.next >= len(kids) {
			delete(onPath, top.node.TermID)
			stack = stack[:len(stack)-1]
			continue
		}

		childID := kids[top.next]
		top.next++

		if visited[childID] {
			if onPath[childID] {
				backEdges++
			}
			continue
		}
		visited[childID] = true
		onPath[childID] = true

		child := &entities.HierarchyNode{TermID: childID, Children: []*entities.HierarchyNode{}}
		top.node.Children = append(top.node.Children, child)
		stack = append(stack, frame{node: child})
	}
	return root, backEdges
}

// loadHierarchical fetches every hierarchical relationship, one query per
// hierarchical type, and returns them in creation order. The relationship
// with excludeID (if any) is left out.
func loadHierarchical(
	ctx context.Context,
	store ports.RelationshipStore,
	rules entities.HierarchyRules,
	excludeID string,
) ([]entities.Relationship, error) {
	types := rules.Types()
	batches := make([][]entities.Relationship, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, rt := range types {
		g.Go(func() error {
			rels, err := store.FindByType(gctx, rt)
			if err != nil {
				return fmt.Errorf("loading %s relationships: %w", rt, err)
			}
			batches[i] = rels
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, b := range batches {
		total += len(b)
	}
	result := make([]entities.Relationship, 0, total)
	for _, b := range batches {
		for i := range b {
			if b[i].ID != excludeID {
				result = append(result, b[i])
			}
		}
	}
	sortByCreation(result)
	return result, nil
}

// sortByCreation orders relationships by creation time, then ID.
func sortByCreation(rels []entities.Relationship) {
	sort.SliceStable(rels, func(i, j int) bool {
		if !rels[i].CreatedAt.Equal(rels[j].CreatedAt) {
			return rels[i].CreatedAt.Before(rels[j].CreatedAt)
		}
		return rels[i].ID < rels[j].ID
	})
}
