package reader

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gperdrizet/OpenSearch/pkg/queue"
)

func writeGzipLines(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.json.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	if _, err := gz.Write(buf.Bytes()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestLinePairReaderEnqueuesOnlyContentLines(t *testing.T) {
	path := writeGzipLines(t, []string{
		`{"index":{"_id":1}}`, `{"title":"A","source_text":"body a"}`,
		`{"index":{"_id":2}}`, `{"title":"B","source_text":"body b"}`,
	})
	q := queue.New[[]byte](10)
	r := LinePairReader{Path: path}
	stats, err := r.Read(context.Background(), q, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.InputRecords != 2 || stats.InputLines != 4 {
		t.Fatalf("got %+v", stats)
	}

	var got int
	for {
		item, ok := q.Get(context.Background())
		if !ok {
			t.Fatal("queue closed unexpectedly")
		}
		if item.IsSentinel {
			break
		}
		got++
	}
	if got != 2 {
		t.Fatalf("got %d content records, want 2", got)
	}
}

func TestLinePairReaderRespectsTargetRecords(t *testing.T) {
	path := writeGzipLines(t, []string{
		`{}`, `{"title":"A"}`,
		`{}`, `{"title":"B"}`,
		`{}`, `{"title":"C"}`,
	})
	q := queue.New[[]byte](10)
	r := LinePairReader{Path: path, TargetRecords: 2}
	stats, err := r.Read(context.Background(), q, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.InputRecords != 2 {
		t.Fatalf("got %d records, want 2", stats.InputRecords)
	}
}

func TestLinePairReaderInjectsOneSentinelPerWorker(t *testing.T) {
	path := writeGzipLines(t, []string{`{}`, `{"title":"A"}`})
	q := queue.New[[]byte](10)
	r := LinePairReader{Path: path}
	if _, err := r.Read(context.Background(), q, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sentinels int
	for {
		item, ok := q.Get(context.Background())
		if !ok {
			break
		}
		if item.IsSentinel {
			sentinels++
		}
		if q.Len() == 0 && sentinels == 3 {
			break
		}
	}
	if sentinels != 3 {
		t.Fatalf("got %d sentinels, want 3", sentinels)
	}
}
