package reader

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gperdrizet/OpenSearch/engine/etl"
	"github.com/gperdrizet/OpenSearch/engine/transform"
	"github.com/gperdrizet/OpenSearch/pkg/queue"
)

const sampleDump = `<mediawiki>
  <page>
    <title>Go (programming language)</title>
    <ns>0</ns>
    <revision>
      <text>Go is a statically typed language.</text>
    </revision>
  </page>
  <page>
    <title>Talk:Go</title>
    <ns>1</ns>
    <revision>
      <text>discussion</text>
    </revision>
  </page>
  <page>
    <title>Golang</title>
    <ns>0</ns>
    <revision>
      <text>#REDIRECT [[Go (programming language)]]</text>
    </revision>
  </page>
</mediawiki>`

func writeXML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.xml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestPageXMLReaderFiltersNamespaceAndRedirect(t *testing.T) {
	path := writeXML(t, sampleDump)
	q := queue.New[[]byte](10)
	r := PageXMLReader{Path: path}
	stats, err := r.Read(context.Background(), q, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.InputRecords != 1 {
		t.Fatalf("got %d records, want 1", stats.InputRecords)
	}

	item, _ := q.Get(context.Background())
	if item.IsSentinel {
		t.Fatal("expected a content record first")
	}
	var raw transform.RawArticle
	if err := json.Unmarshal(item.Payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw.Title != "Go (programming language)" {
		t.Fatalf("got title %q", raw.Title)
	}
}

func TestPageXMLReaderRejectsMalformedXML(t *testing.T) {
	path := writeXML(t, `<mediawiki><page><title>Broken</ns></mediawiki>`)
	q := queue.New[[]byte](10)
	r := PageXMLReader{Path: path}
	_, err := r.Read(context.Background(), q, 1)
	if !errors.Is(err, etl.ErrMalformedInput) {
		t.Fatalf("got %v, want ErrMalformedInput", err)
	}
}

func TestPageXMLReaderRespectsTargetRecords(t *testing.T) {
	path := writeXML(t, sampleDump)
	q := queue.New[[]byte](10)
	r := PageXMLReader{Path: path, TargetRecords: 1}
	stats, err := r.Read(context.Background(), q, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.InputRecords != 1 {
		t.Fatalf("got %d records, want 1", stats.InputRecords)
	}
}
