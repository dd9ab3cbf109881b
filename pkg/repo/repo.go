// Package repo defines the generic Repository interface its one
// implementation, Neo4jRepo, satisfies. pkg/graph instantiates it once,
// as Neo4jRepo[Category, string], to back the category-graph enrichment
// of SPEC_FULL.md §12 (every extracted article's categories become Neo4j
// nodes, the article linked to each).
package repo

import "context"

// Repository is a generic CRUD interface over a single node label.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, id ID) error
}

// ListOpts controls pagination and filtering for List operations.
type ListOpts struct {
	Offset int
	Limit  int
	Filter map[string]any
}
