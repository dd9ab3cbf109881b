// Package transform implements the four worker-pool transforms of
// SPEC_FULL.md §4.4: Extract, ParseChunk, Embed, and BuildRequest. Each is
// a pure function of its input record and whatever configuration was
// closed over at construction time (SPEC_FULL.md §9, "process-wide
// configuration").
package transform

// ArticleNamespace is the MediaWiki namespace id for encyclopedia articles
// (namespace 0). Only records in this namespace are candidates for
// extraction.
const ArticleNamespace = 0

// DisambiguationCategory is the category marker that excludes an article
// from extraction.
const DisambiguationCategory = "Disambiguation pages"

// RawArticle is the decoded shape of one CirrusSearch content line, or the
// equivalent triple produced by the MediaWiki XML reader's SAX state
// machine. Category is always empty for the XML path, whose accepting
// state already excludes redirects and non-article namespaces.
type RawArticle struct {
	Title      string   `json:"title"`
	Namespace  int      `json:"namespace"`
	Category   []string `json:"category"`
	SourceText string   `json:"source_text"`
}

// ExtractedText is the cleaned article body produced by Extract (spec §3).
type ExtractedText struct {
	Title      string
	Text       string
	Categories []string
}

// Chunk is a semantically split text fragment bounded by the configured
// tokenizer's chunk limit (spec §3).
type Chunk struct {
	Title string
	Text  string
	Index int
}

// Embedding is a fixed-length float vector representing one Chunk
// (spec §3), carried with the chunk's title, text and index. There is no
// separate dimension field; the dimension is len(Vector).
type Embedding struct {
	Title  string
	Text   string
	Index  int
	Vector []float32
}

// RequestPair is an Indexing Request Pair (spec §3): a header record and
// its body record, always traveling together. The header is
// index-agnostic when it leaves BuildRequest — the bulk-indexer writer
// attaches the stage's logical index name immediately before submission
// (spec §4.5).
type RequestPair struct {
	Header BulkHeader
	Body   map[string]any
}

// BulkHeader is the action/id half of a bulk-ingest entry.
type BulkHeader struct {
	Action string
	Index  string // filled in by the writer, not by BuildRequest
	ID     string
}
