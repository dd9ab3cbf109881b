// Package graph provides a Neo4j-backed category graph, the supplemental
// enrichment named in SPEC_FULL.md §12: every extracted article's
// categories become nodes, and the article is linked to each one it
// belongs to. Adapted from the teacher's engine/graph Component/Edge
// repository pattern (same Neo4jRepo[T, ID] plumbing from pkg/repo, a
// different node shape).
package graph

import (
	"github.com/gperdrizet/OpenSearch/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Category is a Wikipedia category node.
type Category struct {
	ID   string `json:"id"` // the category name, used as the natural key
	Name string `json:"name"`
}

// ArticleLink records that an article belongs to a category.
type ArticleLink struct {
	ArticleTitle string
	CategoryID   string
}

// NewCategoryRepo creates a Neo4j-backed repository for Category nodes.
func NewCategoryRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[Category, string] {
	return repo.NewNeo4jRepo[Category, string](
		driver,
		"Category",
		categoryToMap,
		categoryFromRecord,
	)
}

func categoryToMap(c Category) map[string]any {
	return map[string]any{"id": c.ID, "name": c.Name}
}

func categoryFromRecord(rec *neo4j.Record) (Category, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Category{}, err
	}
	props := node.Props
	return Category{ID: strProp(props, "id"), Name: strProp(props, "name")}, nil
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
