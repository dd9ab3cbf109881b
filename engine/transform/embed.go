package transform

import "context"

// Embedder is the pluggable vectorization backend (spec §4.4 item 3,
// §13 Non-goals — the embedding model itself is out of scope). The
// contract is a single deterministic vector per input string.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Embed wraps an Embedder as a pool Transform.
type Embed struct {
	Embedder Embedder
}

func NewEmbed(e Embedder) Embed {
	return Embed{Embedder: e}
}

func (e Embed) Transform(ctx context.Context, in Chunk) ([]Embedding, error) {
	vec, err := e.Embedder.Embed(ctx, in.Text)
	if err != nil {
		return nil, err
	}
	return []Embedding{{Title: in.Title, Text: in.Text, Index: in.Index, Vector: vec}}, nil
}
