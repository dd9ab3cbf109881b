package chunk

import (
	"reflect"
	"testing"
)

// TestSpecFixture reproduces spec §8 scenario 4.
func TestSpecFixture(t *testing.T) {
	c := NewDefault(4)
	got := c.Chunk("one two three four five six")
	want := []string{"one two three four", "five six"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEmptyInput(t *testing.T) {
	c := NewDefault(4)
	if got := c.Chunk(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestExactMultiple(t *testing.T) {
	c := NewDefault(2)
	got := c.Chunk("a b c d")
	want := []string{"a b", "c d"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNoContentLost(t *testing.T) {
	c := NewDefault(3)
	text := "the quick brown fox jumps over the lazy dog"
	chunks := c.Chunk(text)
	var rebuilt string
	for i, ch := range chunks {
		if i > 0 {
			rebuilt += " "
		}
		rebuilt += ch
	}
	if rebuilt != text {
		t.Fatalf("content lost: got %q, want %q", rebuilt, text)
	}
}
