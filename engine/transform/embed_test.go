package transform

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func TestEmbedWrapsVector(t *testing.T) {
	e := NewEmbed(stubEmbedder{vec: []float32{1, 2, 3}})
	out, err := e.Transform(context.Background(), Chunk{Title: "T", Text: "hello", Index: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Index != 2 || len(out[0].Vector) != 3 {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestEmbedPropagatesError(t *testing.T) {
	wantErr := errors.New("backend unavailable")
	e := NewEmbed(stubEmbedder{err: wantErr})
	_, err := e.Transform(context.Background(), Chunk{Title: "T", Text: "hello"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}
