package transform

import (
	"context"

	"github.com/gperdrizet/OpenSearch/engine/chunk"
	"github.com/gperdrizet/OpenSearch/engine/normalize"
)

// ParseChunk re-applies the normalization rewrite table (a no-op the
// second time through for anything Extract already cleaned, since the
// table is idempotent — SPEC_FULL.md §6.3) and splits the result into
// Chunker-bounded fragments (spec §4.4 item 2).
type ParseChunk struct {
	Chunker chunk.Chunker
}

// NewParseChunk builds a ParseChunk stage with the default word tokenizer
// bounded to maxTokens per chunk.
func NewParseChunk(maxTokens int) ParseChunk {
	return ParseChunk{Chunker: chunk.NewDefault(maxTokens)}
}

func (p ParseChunk) Transform(ctx context.Context, in ExtractedText) ([]Chunk, error) {
	cleaned := normalize.Normalize(in.Text)
	parts := p.Chunker.Chunk(cleaned)
	out := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		out = append(out, Chunk{Title: in.Title, Text: part, Index: i})
	}
	return out, nil
}
