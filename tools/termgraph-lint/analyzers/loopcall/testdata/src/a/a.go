package a

import "context"

type Relationship struct {
	ID string
}

type RelationshipStore interface {
	FindByEndpoint(ctx context.Context, termID string, dir string) ([]Relationship, error)
	FindByType(ctx context.Context, relType string) ([]Relationship, error)
}

type TermCatalog interface {
	FindTermByID(ctx context.Context, id string) (string, error)
	Exists(ctx context.Context, id string) (bool, error)
}

func bad(ctx context.Context, ids []string, store RelationshipStore, terms TermCatalog) {
	for _, id := range ids {
		store.FindByEndpoint(ctx, id, "both") // want "potential N\\+1: FindByEndpoint called inside loop - use FindAmong or FindByType"
		terms.FindTermByID(ctx, id)           // want "potential N\\+1: FindTermByID called inside loop - use FindTerms"
	}
}

func good(ctx context.Context, ids []string, types []string, store RelationshipStore, terms TermCatalog) {
	// Existence checks are not flagged.
	for _, id := range ids {
		terms.Exists(ctx, id)
	}

	// Fan-out in function literals is not flagged.
	for _, rt := range types {
		go func() {
			store.FindByType(ctx, rt)
			store.FindByEndpoint(ctx, rt, "both")
		}()
	}
}
