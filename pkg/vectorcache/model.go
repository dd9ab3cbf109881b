// Package vectorcache provides a Qdrant-backed local nearest-neighbor
// index used by test_semantic_search (SPEC_FULL.md §12): a faster,
// locally-queryable companion to the remote OpenSearch KNN index that the
// bulk-indexer writer targets. Adapted from the teacher's
// engine/semantic.VectorStore: same collection-per-run, points-client
// upsert/search shape, generalized from RAG chat context to chunk search.
package vectorcache

import (
	"fmt"

	"github.com/google/uuid"
)

// Result is a single similarity-search hit.
type Result struct {
	ID    string
	Score float32
	Title string
	Text  string
	Meta  map[string]string
}

// Record is a single vector to store.
type Record struct {
	ID        string
	Embedding []float32
	Title     string
	Text      string
}

// PointID derives a stable Qdrant point UUID from a chunk's title and
// index, exactly as the teacher's engine/ingest.NewStore derives point
// IDs from document identity rather than trusting caller-supplied IDs.
func PointID(title string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s-%d", title, index))).String()
}
