package graph

import (
	"context"
	"fmt"

	"github.com/gperdrizet/OpenSearch/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Store provides category-graph operations on top of the generic Neo4j
// repository. Grounded on the teacher's engine/graph.GraphStore: same
// session-per-call, MERGE-based upsert pattern, generalized from
// vehicle-component nodes to category nodes.
type Store struct {
	driver     neo4j.DriverWithContext
	categories *repo.Neo4jRepo[Category, string]
}

// New creates a Store.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver, categories: NewCategoryRepo(driver)}
}

// GetCategory fetches a category node by id via the generic repository.
func (s *Store) GetCategory(ctx context.Context, id string) (Category, error) {
	return s.categories.Get(ctx, id)
}

// SaveCategory upserts a category node via the generic repository.
func (s *Store) SaveCategory(ctx context.Context, c Category) error {
	_, err := s.categories.Create(ctx, c)
	return err
}

// LinkArticle records that an article belongs to a category, creating
// both the Article and Category nodes if they don't already exist.
func (s *Store) LinkArticle(ctx context.Context, link ArticleLink) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MERGE (a:Article {title: $title})
	           MERGE (c:Category {id: $catID})
	           MERGE (a)-[:IN_CATEGORY]->(c)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"title": link.ArticleTitle,
		"catID": link.CategoryID,
	})
	if err != nil {
		return fmt.Errorf("graph: link article %q to category %q: %w", link.ArticleTitle, link.CategoryID, err)
	}
	return nil
}

// LinkArticleCategories links one article to every category it belongs
// to, used directly from the Extract transform's output (spec §12).
func (s *Store) LinkArticleCategories(ctx context.Context, title string, categories []string) error {
	for _, cat := range categories {
		if err := s.LinkArticle(ctx, ArticleLink{ArticleTitle: title, CategoryID: cat}); err != nil {
			return err
		}
	}
	return nil
}

// RelatedCategories returns category ids within the given traversal depth
// of the given category, by shared article membership.
func (s *Store) RelatedCategories(ctx context.Context, categoryID string, depth int) ([]string, error) {
	if depth <= 0 {
		depth = 1
	}
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (start:Category {id: $id})<-[:IN_CATEGORY]-(:Article)-[:IN_CATEGORY*1..%d]->(n:Category)
		 WHERE n.id <> $id
		 RETURN DISTINCT n.id AS id`, depth)
	result, err := sess.Run(ctx, cypher, map[string]any{"id": categoryID})
	if err != nil {
		return nil, err
	}
	var ids []string
	for result.Next(ctx) {
		id, _, err := neo4j.GetRecordValue[string](result.Record(), "id")
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
