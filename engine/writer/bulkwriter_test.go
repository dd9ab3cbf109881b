package writer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gperdrizet/OpenSearch/engine/transform"
	"github.com/gperdrizet/OpenSearch/pkg/queue"
	"github.com/gperdrizet/OpenSearch/pkg/resilience"
	"github.com/gperdrizet/OpenSearch/pkg/sink"
)

func TestBulkIndexWriterSubmitsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"errors":false}`))
	}))
	defer srv.Close()

	client, err := sink.New(srv.URL)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	q := queue.New[transform.RequestPair](10)
	ctx := context.Background()
	q.PutValue(ctx, transform.RequestPair{Header: transform.BulkHeader{Action: "index", ID: "1"}, Body: map[string]any{"title": "A"}})
	q.PutValue(ctx, transform.RequestPair{Header: transform.BulkHeader{Action: "index", ID: "2"}, Body: map[string]any{"title": "B"}})
	q.PutSentinel(ctx)

	w := BulkIndexWriter{Sink: client, Index: "wiki_text", BatchSize: 10}
	stats, err := w.Write(ctx, q, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.OutputRecords != 2 {
		t.Fatalf("got %d records, want 2", stats.OutputRecords)
	}
	if stats.OutputBatches != 1 {
		t.Fatalf("got %d batches, want 1", stats.OutputBatches)
	}
}

func TestBulkIndexWriterRetriesTransientFailure(t *testing.T) {
	orig := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = orig }()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"errors":false}`))
	}))
	defer srv.Close()

	client, err := sink.New(srv.URL)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	q := queue.New[transform.RequestPair](10)
	ctx := context.Background()
	q.PutValue(ctx, transform.RequestPair{Header: transform.BulkHeader{Action: "index", ID: "1"}, Body: map[string]any{"title": "A"}})
	q.PutSentinel(ctx)

	breaker := resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: 10, Timeout: time.Millisecond, HalfOpenMax: 1})
	w := BulkIndexWriter{Sink: client, Index: "wiki_text", BatchSize: 10, Breaker: breaker}
	stats, err := w.Write(ctx, q, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.OutputRecords != 1 {
		t.Fatalf("got %d records, want 1", stats.OutputRecords)
	}
	if attempts.Load() < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts.Load())
	}
}
