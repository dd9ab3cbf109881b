package transform

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gperdrizet/OpenSearch/engine/etl"
)

func mustLine(t *testing.T, raw RawArticle) []byte {
	t.Helper()
	b, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestWikipediaCirrusExtractorAcceptsArticle(t *testing.T) {
	line := mustLine(t, RawArticle{Title: "Go", Namespace: 0, SourceText: "Go is a language."})
	out, err := WikipediaCirrusExtractor(context.Background(), line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d records, want 1", len(out))
	}
	if out[0].Title != "Go" {
		t.Fatalf("got title %q", out[0].Title)
	}
}

func TestWikipediaCirrusExtractorRejectsNamespace(t *testing.T) {
	line := mustLine(t, RawArticle{Title: "Talk:Go", Namespace: 1, SourceText: "discussion"})
	out, err := WikipediaCirrusExtractor(context.Background(), line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected namespace filter to drop record, got %v", out)
	}
}

func TestWikipediaCirrusExtractorRejectsDisambiguation(t *testing.T) {
	line := mustLine(t, RawArticle{
		Title:      "Mercury",
		Namespace:  0,
		Category:   []string{"Disambiguation pages"},
		SourceText: "Mercury may refer to...",
	})
	out, err := WikipediaCirrusExtractor(context.Background(), line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected disambiguation filter to drop record, got %v", out)
	}
}

func TestWikipediaCirrusExtractorStripsMarkup(t *testing.T) {
	line := mustLine(t, RawArticle{
		Title:      "Go",
		Namespace:  0,
		SourceText: "Go is a '''language''' {{infobox}} with [[concurrency|goroutines]].",
	})
	out, err := WikipediaCirrusExtractor(context.Background(), line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d records, want 1", len(out))
	}
	for _, bad := range []string{"{{", "}}", "[[", "]]", "'''"} {
		if containsSubstr(out[0].Text, bad) {
			t.Fatalf("markup %q survived: %q", bad, out[0].Text)
		}
	}
}

func TestWikipediaCirrusExtractorRejectsMalformedJSON(t *testing.T) {
	_, err := WikipediaCirrusExtractor(context.Background(), []byte("{not json"))
	if !errors.Is(err, etl.ErrMalformedInput) {
		t.Fatalf("got %v, want ErrMalformedInput", err)
	}
}

func TestXMLArticleExtractorRejectsMalformedJSON(t *testing.T) {
	_, err := XMLArticleExtractor(context.Background(), []byte("{not json"))
	if !errors.Is(err, etl.ErrMalformedInput) {
		t.Fatalf("got %v, want ErrMalformedInput", err)
	}
}

func containsSubstr(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
