package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ersonp/termgraph/internal/domain/entities"
	"github.com/ersonp/termgraph/internal/domain/ports"
)

// DependencyMap maps each term of a working set to the terms it depends on
// within that set. Iteration follows the working-set order.
type DependencyMap struct {
	order []string
	deps  map[string][]string
}

// Terms returns the working set in its original order, without repeats.
func (m *DependencyMap) Terms() []string {
	return m.order
}

// Dependencies returns the in-set dependencies of a term in edge order.
func (m *DependencyMap) Dependencies(termID string) []string {
	return m.deps[termID]
}

// Len returns the size of the working set.
func (m *DependencyMap) Len() int {
	return len(m.order)
}

// DependencyResolver derives learning order from the hierarchical edges.
// It never writes to the store.
type DependencyResolver struct {
	store   ports.RelationshipStore
	rules   entities.HierarchyRules
	logger  *zap.Logger
	metrics *Metrics
}

// NewDependencyResolver creates a new DependencyResolver. Logger and metrics
// may be nil.
func NewDependencyResolver(
	store ports.RelationshipStore,
	rules entities.HierarchyRules,
	logger *zap.Logger,
	metrics *Metrics,
) *DependencyResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DependencyResolver{
		store:   store,
		rules:   rules,
		logger:  logger.Named("dependency-resolver"),
		metrics: metrics,
	}
}

// BuildDependencyMap returns, for each essential term, its hierarchical
// parents that are themselves essential. Dependencies outside the working
// set are not tracked.
func (r *DependencyResolver) BuildDependencyMap(ctx context.Context, essentialTermIDs []string) (*DependencyMap, error) {
	m := &DependencyMap{
		order: make([]string, 0, len(essentialTermIDs)),
		deps:  make(map[string][]string, len(essentialTermIDs)),
	}
	for _, id := range essentialTermIDs {
		if _, ok := m.deps[id]; ok {
			continue
		}
		m.order = append(m.order, id)
		m.deps[id] = []string{}
	}
	if len(m.order) == 0 {
		return m, nil
	}

	rels, err := loadHierarchical(ctx, r.store, r.rules, "")
	if err != nil {
		return nil, fmt.Errorf("building dependency map: %w", err)
	}

	seen := make(map[[2]string]bool)
	for i := range rels {
		child, parent, ok := r.rules.Edge(&rels[i])
		if !ok {
			continue
		}
		if _, inSet := m.deps[child]; !inSet {
			continue
		}
		if _, inSet := m.deps[parent]; !inSet {
			continue
		}
		key := [2]string{child, parent}
		if seen[key] {
			continue
		}
		seen[key] = true
		m.deps[child] = append(m.deps[child], parent)
	}
	return m, nil
}

// LearningPath orders the essential terms so that every term comes after its
// in-set dependencies. A dependency edge that leads back into the term
// currently being resolved is skipped; the path is then best effort for the
// terms on that cycle.
func (r *DependencyResolver) LearningPath(
	ctx context.Context,
	essentialTermIDs []string,
	learned map[string]bool,
) ([]entities.LearningPathEntry, error) {
	start := time.Now()
	defer r.metrics.observeTraversal("learning_path", start)

	m, err := r.BuildDependencyMap(ctx, essentialTermIDs)
	if err != nil {
		return nil, err
	}

	path, cycles := m.learningPath(learned)
	if cycles > 0 {
		r.metrics.cycleAbsorbed("learning_path")
		r.logger.Debug("Cycle in dependency data, learning path is best effort",
			zap.Int("skipped_edges", cycles))
	}
	return path, nil
}

// learningPath runs the post-order walk. It returns the path and the number
// of dependency edges skipped because they closed a cycle.
func (m *DependencyMap) learningPath(learned map[string]bool) ([]entities.LearningPathEntry, int) {
	type frame struct {
		termID string
		next   int
	}

	path := make([]entities.LearningPathEntry, 0, len(m.order))
	visited := make(map[string]bool, len(m.order))
	inProgress := make(map[string]bool)
	cycles := 0

	for _, rootID := range m.order {
		if visited[rootID] {
			continue
		}
		inProgress[rootID] = true
		stack := []frame{{termID: rootID}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := m.deps[top.termID]

			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				switch {
				case visited[dep]:
				case inProgress[dep]:
					cycles++
				default:
					inProgress[dep] = true
					stack = append(stack, frame{termID: dep})
				}
				continue
			}

			termID := top.termID
			stack = stack[:len(stack)-1]
			delete(inProgress, termID)
			visited[termID] = true

			path = append(path, entities.LearningPathEntry{
				TermID:       termID,
				Order:        len(path) + 1,
				Dependencies: append([]string{}, deps...),
				IsLearned:    learned[termID],
			})
		}
	}
	return path, cycles
}

// NextRecommended returns the unlearned path entries whose dependencies are
// all learned, in path order. limit <= 0 means no limit.
func (r *DependencyResolver) NextRecommended(
	path []entities.LearningPathEntry,
	learned map[string]bool,
	limit int,
) []entities.LearningPathEntry {
	isLearned := make(map[string]bool, len(path)+len(learned))
	for id, ok := range learned {
		if ok {
			isLearned[id] = true
		}
	}
	for i := range path {
		if path[i].IsLearned {
			isLearned[path[i].TermID] = true
		}
	}

	next := make([]entities.LearningPathEntry, 0)
	for i := range path {
		if limit > 0 && len(next) >= limit {
			break
		}
		if isLearned[path[i].TermID] {
			continue
		}
		ready := true
		for _, dep := range path[i].Dependencies {
			if !isLearned[dep] {
				ready = false
				break
			}
		}
		if ready {
			next = append(next, path[i])
		}
	}
	return next
}

// CanLearn reports whether every direct hierarchical dependency of the term
// is learned. All dependencies count here, not only essential ones.
func (r *DependencyResolver) CanLearn(ctx context.Context, termID string, learned map[string]bool) (bool, error) {
	deps, err := r.DirectDependencies(ctx, termID)
	if err != nil {
		return false, err
	}
	for _, dep := range deps {
		if !learned[dep] {
			return false, nil
		}
	}
	return true, nil
}

// DirectDependencies returns the hierarchical parents of a term in creation
// order.
func (r *DependencyResolver) DirectDependencies(ctx context.Context, termID string) ([]string, error) {
	rels, err := r.store.FindByEndpoint(ctx, termID, entities.DirectionBoth)
	if err != nil {
		return nil, fmt.Errorf("finding term dependencies: %w", err)
	}
	sortByCreation(rels)

	seen := make(map[string]bool)
	deps := make([]string, 0)
	for i := range rels {
		child, parent, ok := r.rules.Edge(&rels[i])
		if !ok || child != termID || seen[parent] {
			continue
		}
		seen[parent] = true
		deps = append(deps, parent)
	}
	return deps, nil
}
