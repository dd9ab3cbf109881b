package transform

import (
	"context"
	"fmt"
	"hash/fnv"
)

// VectorField is the document field name the KNN mapping indexes.
const VectorField = "embedding"

// TextField is the document field name plain-text indexes use.
const TextField = "text"

// BuildRequest turns one Embedding into an Indexing Request Pair: a
// header record and a body record, always kept together as a single
// RequestPair (spec §4.4 item 4). Concurrent pool workers share one
// output queue, so a header and body emitted as two separate queue items
// could be separated by another worker's item landing in between; keeping
// them as one item preserves the "header immediately followed by body"
// contract without requiring cross-worker coordination. The header
// carries a content-derived id rather than a shared counter, so workers
// never need to coordinate to avoid id collisions either (SPEC_FULL.md
// §9, shared mutable state).
type BuildRequest struct {
	Action    string // bulk action verb, typically "index"
	VectorDoc bool   // true for semantic_search's KNN documents, false for plain text
}

func NewBuildRequest(vectorDoc bool) BuildRequest {
	return BuildRequest{Action: "index", VectorDoc: vectorDoc}
}

func (b BuildRequest) Transform(ctx context.Context, in Embedding) ([]RequestPair, error) {
	id := documentID(in.Title, in.Index)
	header := BulkHeader{Action: b.Action, ID: id}
	body := map[string]any{
		"title": in.Title,
	}
	if b.VectorDoc {
		body[VectorField] = in.Vector
	} else {
		body[TextField] = in.Text
	}
	return []RequestPair{{Header: header, Body: body}}, nil
}

func documentID(title string, index int) string {
	h := fnv.New64a()
	h.Write([]byte(title))
	return fmt.Sprintf("%x-%d", h.Sum64(), index)
}
