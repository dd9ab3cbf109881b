package transform

import (
	"context"
	"testing"
)

func TestBuildRequestEmitsHeaderAndBody(t *testing.T) {
	b := NewBuildRequest(true)
	out, err := b.Transform(context.Background(), Embedding{Title: "Go", Index: 0, Vector: []float32{1, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d pairs, want 1", len(out))
	}
	if out[0].Header.ID == "" {
		t.Fatal("expected non-empty document id")
	}
	if out[0].Header.Index != "" {
		t.Fatal("expected index-agnostic header from BuildRequest")
	}
	if _, ok := out[0].Body[VectorField]; !ok {
		t.Fatalf("expected vector field in body: %+v", out[0].Body)
	}
}

func TestBuildRequestStableIDForSameTitle(t *testing.T) {
	b := NewBuildRequest(false)
	a, _ := b.Transform(context.Background(), Embedding{Title: "Go", Index: 0})
	c, _ := b.Transform(context.Background(), Embedding{Title: "Go", Index: 0})
	if a[0].Header.ID != c[0].Header.ID {
		t.Fatalf("expected deterministic id, got %q and %q", a[0].Header.ID, c[0].Header.ID)
	}
}

func TestBuildRequestDistinctIDsForDistinctChunks(t *testing.T) {
	b := NewBuildRequest(false)
	a, _ := b.Transform(context.Background(), Embedding{Title: "Go", Index: 0})
	c, _ := b.Transform(context.Background(), Embedding{Title: "Go", Index: 1})
	if a[0].Header.ID == c[0].Header.ID {
		t.Fatal("expected distinct ids for distinct chunk indices")
	}
}

func TestBuildRequestPlainTextUsesTextField(t *testing.T) {
	b := NewBuildRequest(false)
	out, _ := b.Transform(context.Background(), Embedding{Title: "Go", Text: "body", Index: 0})
	if _, ok := out[0].Body[TextField]; !ok {
		t.Fatalf("expected text field in body: %+v", out[0].Body)
	}
	if _, ok := out[0].Body[VectorField]; ok {
		t.Fatal("plain-text request should not include a vector field")
	}
}
