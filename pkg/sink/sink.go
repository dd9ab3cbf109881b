// Package sink wraps the OpenSearch bulk-ingest API the writer stage
// submits Indexing Request Pairs to (SPEC_FULL.md §4.5, §6.4). Grounded
// on original_source's use of opensearchpy's bulk helper and client-index
// lifecycle (delete-then-create), reimplemented against
// github.com/opensearch-project/opensearch-go/v2, the Go client for the
// same wire protocol the elastic/go-elasticsearch family in the examples
// pack speaks.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// Timeout is the 30-second request deadline value for this sink (spec
// §4.5). No request in this package applies it: EnsureIndex, Bulk, Search
// and SearchKNN run until the caller's context is done.
const Timeout = 30 * time.Second

// bulkRateLimit caps outbound bulk requests so a large LoadText stage
// doesn't overrun the remote sink's ingest capacity. One request per tick
// at this rate, bursting up to the same amount.
const bulkRateLimit = rate.Limit(20)

// ErrTransient marks errors the writer should retry after holding its
// buffer (spec §7, "Transient sink failure").
var ErrTransient = errors.New("sink: transient failure")

// ErrPermanent marks errors the writer must not retry (malformed mapping,
// auth failure).
var ErrPermanent = errors.New("sink: permanent failure")

// IndexSpec describes the mapping a logical index needs (spec §6.4).
type IndexSpec struct {
	Name       string
	VectorDoc  bool // true: KNN mapping; false: plain-text mapping
	VectorDim  int
	EfConstr   int
	HNSWM      int
}

// DefaultIndexSpec fills in the KNN tuning parameters original_source
// used (ef_construction=512, m=16).
func DefaultIndexSpec(name string, vectorDoc bool, dim int) IndexSpec {
	return IndexSpec{Name: name, VectorDoc: vectorDoc, VectorDim: dim, EfConstr: 512, HNSWM: 16}
}

// Client wraps an OpenSearch client with the bulk-submit and
// delete-then-create index lifecycle the writer stage needs.
type Client struct {
	es      *opensearch.Client
	limiter *rate.Limiter
}

// New creates a Client against the given OpenSearch address.
func New(addr string) (*Client, error) {
	es, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{addr},
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("sink: new client: %w", err)
	}
	return &Client{es: es, limiter: rate.NewLimiter(bulkRateLimit, int(bulkRateLimit))}, nil
}

// SearchHit is one match returned by Search or SearchKNN.
type SearchHit struct {
	ID    string
	Score float32
	Title string
	Text  string
}

// EnsureIndex deletes any existing index under this name then creates it
// fresh with the requested mapping (spec §6.4: "delete-then-create",
// matching original_source's idempotent-rebuild semantics for a full
// reindex run).
func (c *Client) EnsureIndex(ctx context.Context, spec IndexSpec) error {
	delReq := opensearchapi.IndicesDeleteRequest{Index: []string{spec.Name}}
	delRes, err := delReq.Do(ctx, c.es)
	if err == nil {
		delRes.Body.Close()
	}

	body, err := json.Marshal(mappingFor(spec))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	createReq := opensearchapi.IndicesCreateRequest{Index: spec.Name, Body: bytes.NewReader(body)}
	res, err := createReq.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("%w: create index %s: %v", ErrTransient, spec.Name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return classifyStatus(res.StatusCode, spec.Name, res.Body)
	}
	return nil
}

func mappingFor(spec IndexSpec) map[string]any {
	if !spec.VectorDoc {
		return map[string]any{
			"mappings": map[string]any{
				"properties": map[string]any{
					"title": map[string]any{"type": "text"},
					"text":  map[string]any{"type": "text"},
				},
			},
		}
	}
	return map[string]any{
		"settings": map[string]any{
			"index": map[string]any{"knn": true},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"title": map[string]any{"type": "text"},
				"embedding": map[string]any{
					"type":      "knn_vector",
					"dimension": spec.VectorDim,
					"method": map[string]any{
						"name":       "hnsw",
						"space_type": "l2",
						"engine":     "nmslib",
						"parameters": map[string]any{
							"ef_construction": spec.EfConstr,
							"m":               spec.HNSWM,
						},
					},
				},
			},
		},
	}
}

// Bulk submits a sequence of newline-delimited-JSON action/body lines to
// the given index (spec §4.5: the writer buffers request pairs and
// submits them as one bulk request).
func (c *Client) Bulk(ctx context.Context, index string, ndjson []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req := opensearchapi.BulkRequest{Index: index, Body: bytes.NewReader(ndjson)}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("%w: bulk request: %v", ErrTransient, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return classifyStatus(res.StatusCode, index, res.Body)
	}
	return nil
}

// classifyStatus maps an HTTP status to ErrTransient or ErrPermanent: 5xx
// and 429 are worth retrying, everything else (bad mapping, auth) is not.
func classifyStatus(status int, index string, body io.Reader) error {
	msg, _ := io.ReadAll(body)
	if status == 429 || status >= 500 {
		return fmt.Errorf("%w: index %s: status %d: %s", ErrTransient, index, status, msg)
	}
	return fmt.Errorf("%w: index %s: status %d: %s", ErrPermanent, index, status, msg)
}

// Search runs a plain-text match query against the text field of a
// keyword-search index, backing the test_keyword_search verb (spec §6.1).
func (c *Client) Search(ctx context.Context, index, query string, topK int) ([]SearchHit, error) {
	body, err := json.Marshal(map[string]any{
		"size":  topK,
		"query": map[string]any{"match": map[string]any{"text": query}},
	})
	if err != nil {
		return nil, err
	}
	req := opensearchapi.SearchRequest{Index: []string{index}, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("%w: search index %s: %v", ErrTransient, index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, classifyStatus(res.StatusCode, index, res.Body)
	}
	return decodeHits(res.Body)
}

// SearchKNN runs a k-nearest-neighbor query against a vector index,
// backing the test_semantic_search verb's remote-sink path (spec §12).
func (c *Client) SearchKNN(ctx context.Context, index string, vector []float32, topK int) ([]SearchHit, error) {
	body, err := json.Marshal(map[string]any{
		"size": topK,
		"query": map[string]any{
			"knn": map[string]any{
				VectorField: map[string]any{"vector": vector, "k": topK},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	req := opensearchapi.SearchRequest{Index: []string{index}, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("%w: knn search index %s: %v", ErrTransient, index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, classifyStatus(res.StatusCode, index, res.Body)
	}
	return decodeHits(res.Body)
}

// VectorField is the mapped field name a KNN index stores vectors under,
// matching the field BuildRequest populates (spec §6.4).
const VectorField = "embedding"

func decodeHits(body io.Reader) ([]SearchHit, error) {
	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float32 `json:"_score"`
				Source struct {
					Title string `json:"title"`
					Text  string `json:"text"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("sink: decode search response: %w", err)
	}
	hits := make([]SearchHit, len(parsed.Hits.Hits))
	for i, h := range parsed.Hits.Hits {
		hits[i] = SearchHit{ID: h.ID, Score: h.Score, Title: h.Source.Title, Text: h.Source.Text}
	}
	return hits, nil
}
