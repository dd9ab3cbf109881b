// Command wikidump is the text-dump processor (SPEC_FULL.md §6.1): a
// single task-verb binary that runs one end-to-end reader/worker-pool/
// writer stage over a raw Wikipedia dump, plus the thin query and sampling
// verbs of §12.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gperdrizet/OpenSearch/engine/etl"
	"github.com/gperdrizet/OpenSearch/engine/reader"
	"github.com/gperdrizet/OpenSearch/engine/status"
	"github.com/gperdrizet/OpenSearch/engine/transform"
	"github.com/gperdrizet/OpenSearch/engine/writer"
	"github.com/gperdrizet/OpenSearch/pkg/embedclient"
	"github.com/gperdrizet/OpenSearch/pkg/graph"
	"github.com/gperdrizet/OpenSearch/pkg/metrics"
	"github.com/gperdrizet/OpenSearch/pkg/queue"
	"github.com/gperdrizet/OpenSearch/pkg/resilience"
	"github.com/gperdrizet/OpenSearch/pkg/sink"
	"github.com/gperdrizet/OpenSearch/pkg/vectorcache"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var met = metrics.New()

var (
	mRecordsTotal  = met.Counter("wikidump_records_total", "Records enqueued by the dump reader")
	mQueueInDepth  = met.Gauge("wikidump_queue_in_depth", "Current depth of the reader-to-worker queue")
	mQueueOutDepth = met.Gauge("wikidump_queue_out_depth", "Current depth of the worker-to-writer queue")
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: wikidump <process_xml_dump|process_cs_dump|test_keyword_search|test_semantic_search|make_sample_data> [flags]")
		os.Exit(2)
	}
	verb := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch verb {
	case "process_xml_dump":
		err = runProcess(ctx, args, true)
	case "process_cs_dump":
		err = runProcess(ctx, args, false)
	case "test_keyword_search":
		err = runKeywordSearch(ctx, args)
	case "test_semantic_search":
		err = runSemanticSearch(ctx, args)
	case "make_sample_data":
		err = runMakeSampleData(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown verb %q\n", verb)
		os.Exit(2)
	}
	if err != nil {
		slog.Default().Error("wikidump: "+verb+" failed", "error", err)
		os.Exit(1)
	}
}

// runProcess wires one end-to-end ExtractText+ParseText+EmbedText+LoadText
// run as a single Stage, the non-split counterpart to cmd/pipeline's
// four-stage Driver (spec §6.1's "process_xml_dump | process_cs_dump").
func runProcess(ctx context.Context, args []string, xml bool) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	dump := fs.String("dump", "", "path to the raw dump file (required)")
	index := fs.String("index", "wiki_text", "target index name")
	parseWorkers := fs.Int("parse_workers", 4, "worker pool size")
	outputWorkers := fs.Int("output_workers", 1, "writer concurrency, currently always 1 writer task")
	upsertBatch := fs.Int("upsert_batch", 1000, "writer batch size")
	output := fs.String("output", "file", "file|opensearch")
	statusMonitor := fs.Bool("status_monitor", false, "print a 1s queue-depth status line")
	outPath := fs.String("out", "output.wisa", "archive path when --output=file")
	openSearchURL := fs.String("opensearch", "http://localhost:9200", "OpenSearch address, when --output=opensearch")
	ollamaURL := fs.String("ollama", "http://localhost:11434", "Ollama base URL")
	ollamaModel := fs.String("model", "nomic-embed-text", "Ollama embedding model")
	maxTokens := fs.Int("max_tokens", 256, "chunker token limit")
	vectorDoc := fs.Bool("vector_doc", true, "index KNN vectors (true) or plain text (false)")
	vectorDim := fs.Int("vector_dim", 768, "embedding dimension, when --vector_doc")
	neo4jURL := fs.String("neo4j", "", "Neo4j bolt URL for category graph enrichment (empty disables)")
	neo4jUser := fs.String("neo4j_user", "neo4j", "Neo4j username")
	neo4jPass := fs.String("neo4j_pass", "", "Neo4j password")
	qdrantAddr := fs.String("qdrant", "", "Qdrant gRPC address for local semantic-search companion index (empty disables)")
	qdrantCollection := fs.String("collection", "wiki", "Qdrant collection name")
	metricsPort := fs.Int("metrics_port", 0, "serve Prometheus metrics on this port, 0 disables")
	_ = fs.Parse(args)

	if *dump == "" {
		return fmt.Errorf("wikidump: --dump is required")
	}
	log := slog.Default()
	_ = outputWorkers

	if *metricsPort != 0 {
		met.ServeAsync(*metricsPort)
	}

	var gstore *graph.Store
	if *neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("wikidump: neo4j connect: %w", err)
		}
		defer driver.Close(ctx)
		gstore = graph.New(driver)
	}

	var vcache *vectorcache.Cache
	if *qdrantAddr != "" {
		c, err := vectorcache.New(*qdrantAddr, *qdrantCollection)
		if err != nil {
			return fmt.Errorf("wikidump: qdrant connect: %w", err)
		}
		defer c.Close()
		if err := c.EnsureCollection(ctx, *vectorDim); err != nil {
			return fmt.Errorf("wikidump: ensure collection: %w", err)
		}
		vcache = c
	}

	embedder := embedclient.New(*ollamaURL, *ollamaModel)
	embed := transform.NewEmbed(embedder)
	parseChunk := transform.NewParseChunk(*maxTokens)

	var extractFn transform.ExtractorFunc
	var rawReader etl.ReaderFunc[[]byte]
	if xml {
		extractFn = transform.XMLArticleExtractor
		rawReader = reader.PageXMLReader{Path: *dump, Logger: log}.Read
	} else {
		extractFn = transform.WikipediaCirrusExtractor
		rawReader = reader.LinePairReader{Path: *dump, Logger: log}.Read
	}

	combined := combineExtractParseEmbed(extractFn, parseChunk, embed, gstore, vcache, log)

	var stageErr error
	switch *output {
	case "file":
		inQ := queue.New[[]byte](0)
		outQ := queue.New[[]byte](0)
		stage := etl.Stage[[]byte, []byte]{
			Name:      "wikidump",
			Reader:    countingReader(rawReader),
			Transform: encodeToBytes(combined),
			Writer:    writer.ArchiveWriter{Path: *outPath, BatchSize: *upsertBatch, Compress: true, Logger: log}.Write,
			Workers:   *parseWorkers,
			InQueue:   inQ,
			OutQueue:  outQ,
		}
		stageErr = runWithOptionalStatus(ctx, *statusMonitor, inQ, outQ, stage.Run)
	case "opensearch":
		sinkClient, err := sink.New(*openSearchURL)
		if err != nil {
			return fmt.Errorf("wikidump: sink connect: %w", err)
		}
		if err := sinkClient.EnsureIndex(ctx, sink.DefaultIndexSpec(*index, *vectorDoc, *vectorDim)); err != nil {
			return fmt.Errorf("wikidump: ensure index: %w", err)
		}
		buildRequest := transform.NewBuildRequest(*vectorDoc)
		inQ := queue.New[[]byte](0)
		outQ := queue.New[transform.RequestPair](0)
		stage := etl.Stage[[]byte, transform.RequestPair]{
			Name:      "wikidump",
			Reader:    countingReader(rawReader),
			Transform: buildRequestOf(combined, buildRequest),
			Writer:    writer.BulkIndexWriter{Sink: sinkClient, Index: *index, BatchSize: *upsertBatch, Breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts), Logger: log}.Write,
			Workers:   *parseWorkers,
			InQueue:   inQ,
			OutQueue:  outQ,
		}
		stageErr = runWithOptionalStatus(ctx, *statusMonitor, inQ, outQ, stage.Run)
	default:
		return fmt.Errorf("wikidump: unknown --output %q", *output)
	}
	return stageErr
}

// runWithOptionalStatus runs a stage and, if enabled, a concurrent status
// monitor (spec §4.8) observing the same queues the stage drains. The
// monitor's own goroutine exits on the canceled context once the stage
// returns.
func runWithOptionalStatus[In, Out any](ctx context.Context, enabled bool, inQ *queue.Queue[In], outQ *queue.Queue[Out], run func(context.Context) (etl.Summary, error)) error {
	gaugeCtx, stopGauges := context.WithCancel(ctx)
	defer stopGauges()
	gaugesDone := make(chan struct{})
	go func() {
		defer close(gaugesDone)
		pollQueueGauges(gaugeCtx, inQ, outQ)
	}()

	if !enabled {
		_, err := run(ctx)
		stopGauges()
		<-gaugesDone
		return err
	}
	monCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = status.Monitor{
			InputQueue:    inQ,
			OutputQueue:   outQ,
			ReaderRecords: &globalRecordCount,
			Reader:        readerDoneSignal{monCtx},
			Out:           os.Stdout,
		}.Run(monCtx)
	}()
	_, err := run(ctx)
	cancel()
	<-done
	stopGauges()
	<-gaugesDone
	return err
}

// pollQueueGauges keeps the wikidump_queue_{in,out}_depth gauges current
// for the lifetime of a stage run, independent of --status_monitor.
func pollQueueGauges[In, Out any](ctx context.Context, inQ *queue.Queue[In], outQ *queue.Queue[Out]) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mQueueInDepth.Set(int64(inQ.Len()))
			mQueueOutDepth.Set(int64(outQ.Len()))
		}
	}
}

// readerDoneSignal satisfies status.ReaderDone by checking the monitor's
// own context, which is canceled the moment the owning stage's Run
// returns — the reader inside Stage.Run has no separately observable
// done state once it's wrapped inside the stage abstraction.
type readerDoneSignal struct{ ctx context.Context }

func (r readerDoneSignal) Done() bool { return r.ctx.Err() != nil }

var globalRecordCount atomicCounter

type atomicCounter struct{ n atomic.Int64 }

func (c *atomicCounter) Count() int { return int(c.n.Load()) }

// countingReader wraps a ReaderFunc to tally records into
// globalRecordCount as they're enqueued, so the status monitor has a live
// count instead of only a final total (spec §4.8).
func countingReader(r etl.ReaderFunc[[]byte]) etl.ReaderFunc[[]byte] {
	return func(ctx context.Context, out *queue.Queue[[]byte], nWorkers int) (etl.ReaderStats, error) {
		counted := queue.New[[]byte](0)
		errCh := make(chan error, 1)
		go func() {
			sentinels := 0
			for sentinels < nWorkers {
				item, ok := counted.Get(ctx)
				if !ok {
					errCh <- ctx.Err()
					return
				}
				if item.IsSentinel {
					sentinels++
					if err := out.PutSentinel(ctx); err != nil {
						errCh <- err
						return
					}
					continue
				}
				globalRecordCount.n.Add(1)
				mRecordsTotal.Inc()
				if err := out.PutValue(ctx, item.Payload); err != nil {
					errCh <- err
					return
				}
			}
			errCh <- nil
		}()
		stats, err := r(ctx, counted, nWorkers)
		if err != nil {
			return stats, err
		}
		return stats, <-errCh
	}
}

func combineExtractParseEmbed(extractFn transform.ExtractorFunc, parseChunk transform.ParseChunk, embed transform.Embed, gstore *graph.Store, vcache *vectorcache.Cache, log *slog.Logger) func(context.Context, []byte) ([]transform.Embedding, error) {
	return func(ctx context.Context, line []byte) ([]transform.Embedding, error) {
		texts, err := extractFn(ctx, line)
		if err != nil {
			return nil, err
		}
		var out []transform.Embedding
		for _, text := range texts {
			if gstore != nil && len(text.Categories) > 0 {
				if err := gstore.LinkArticleCategories(ctx, text.Title, text.Categories); err != nil {
					log.Warn("wikidump: category link failed", "title", text.Title, "error", err)
				}
			}
			chunks, err := parseChunk.Transform(ctx, text)
			if err != nil {
				return nil, err
			}
			for _, c := range chunks {
				embeddings, err := embed.Transform(ctx, c)
				if err != nil {
					return nil, err
				}
				out = append(out, embeddings...)
				if vcache != nil {
					for _, e := range embeddings {
						rec := vectorcache.Record{ID: vectorcache.PointID(e.Title, e.Index), Embedding: e.Vector, Title: e.Title, Text: e.Text}
						if err := vcache.Upsert(ctx, []vectorcache.Record{rec}); err != nil {
							log.Warn("wikidump: vectorcache upsert failed", "title", e.Title, "error", err)
						}
					}
				}
			}
		}
		return out, nil
	}
}

func encodeToBytes(combined func(context.Context, []byte) ([]transform.Embedding, error)) etl.Transform[[]byte, []byte] {
	return func(ctx context.Context, line []byte) ([][]byte, error) {
		embeddings, err := combined(ctx, line)
		if err != nil {
			return nil, err
		}
		out := make([][]byte, 0, len(embeddings))
		for _, e := range embeddings {
			b, err := transform.EncodeEmbedding(e)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return out, nil
	}
}

func buildRequestOf(combined func(context.Context, []byte) ([]transform.Embedding, error), b transform.BuildRequest) etl.Transform[[]byte, transform.RequestPair] {
	return func(ctx context.Context, line []byte) ([]transform.RequestPair, error) {
		embeddings, err := combined(ctx, line)
		if err != nil {
			return nil, err
		}
		var out []transform.RequestPair
		for _, e := range embeddings {
			pairs, err := b.Transform(ctx, e)
			if err != nil {
				return nil, err
			}
			out = append(out, pairs...)
		}
		return out, nil
	}
}

// runKeywordSearch is a thin REPL-less query: one query in, matches out
// (spec §12's "internals are intentionally thin" note).
func runKeywordSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("test_keyword_search", flag.ExitOnError)
	index := fs.String("index", "wiki_text", "index to query")
	query := fs.String("query", "", "search text (required)")
	topK := fs.Int("top_k", 10, "max results")
	openSearchURL := fs.String("opensearch", "http://localhost:9200", "OpenSearch address")
	_ = fs.Parse(args)

	if *query == "" {
		return fmt.Errorf("wikidump: --query is required")
	}
	client, err := sink.New(*openSearchURL)
	if err != nil {
		return err
	}
	hits, err := client.Search(ctx, *index, *query, *topK)
	if err != nil {
		return err
	}
	for _, h := range hits {
		fmt.Printf("%.4f\t%s\t%s\n", h.Score, h.Title, truncate(h.Text, 120))
	}
	return nil
}

func runSemanticSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("test_semantic_search", flag.ExitOnError)
	index := fs.String("index", "wiki_vectors", "index to query, when --output=opensearch")
	query := fs.String("query", "", "search text (required)")
	topK := fs.Int("top_k", 10, "max results")
	output := fs.String("output", "file", "file (local Qdrant companion index) | opensearch")
	qdrantAddr := fs.String("qdrant", "localhost:6334", "Qdrant gRPC address, when --output=file")
	qdrantCollection := fs.String("collection", "wiki", "Qdrant collection name")
	openSearchURL := fs.String("opensearch", "http://localhost:9200", "OpenSearch address, when --output=opensearch")
	ollamaURL := fs.String("ollama", "http://localhost:11434", "Ollama base URL")
	ollamaModel := fs.String("model", "nomic-embed-text", "Ollama embedding model")
	_ = fs.Parse(args)

	if *query == "" {
		return fmt.Errorf("wikidump: --query is required")
	}
	embedder := embedclient.New(*ollamaURL, *ollamaModel)
	vec, err := embedder.Embed(ctx, *query)
	if err != nil {
		return fmt.Errorf("wikidump: embed query: %w", err)
	}

	switch *output {
	case "file":
		cache, err := vectorcache.New(*qdrantAddr, *qdrantCollection)
		if err != nil {
			return err
		}
		defer cache.Close()
		results, err := cache.Search(ctx, vec, *topK)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%.4f\t%s\t%s\n", r.Score, r.Title, truncate(r.Text, 120))
		}
		return nil
	case "opensearch":
		client, err := sink.New(*openSearchURL)
		if err != nil {
			return err
		}
		hits, err := client.SearchKNN(ctx, *index, vec, *topK)
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Printf("%.4f\t%s\t%s\n", h.Score, h.Title, truncate(h.Text, 120))
		}
		return nil
	default:
		return fmt.Errorf("wikidump: unknown --output %q", *output)
	}
}

// runMakeSampleData copies the front of a raw dump into a small fixture
// dump: the first N raw lines of an XML dump, or the first N
// header+content line pairs of a CirrusSearch dump. Grounded on
// original_source/wikisearch/make_sample.py. Go's standard library only
// provides a bzip2 reader, not a writer, so a .xml.bz2 input is sampled
// into a gzip-compressed .xml.gz output instead of a same-format .bz2
// output; every reader in this repository already dispatches on file
// extension, so the sample remains directly usable.
func runMakeSampleData(args []string) error {
	fs := flag.NewFlagSet("make_sample_data", flag.ExitOnError)
	dump := fs.String("dump", "", "path to the raw dump file (required)")
	out := fs.String("output", "", "sample output path (default: derived from --dump)")
	count := fs.Int("count", 10000, "number of raw lines (XML dump) or header+content line pairs (CirrusSearch dump) to sample")
	_ = fs.Parse(args)

	if *dump == "" {
		return fmt.Errorf("wikidump: --dump is required")
	}
	outPath := *out
	if outPath == "" {
		outPath = sampleOutputPath(*dump)
	}
	if strings.Contains(*dump, ".xml") {
		return sampleXMLDump(*dump, outPath, *count)
	}
	return sampleLineDump(*dump, outPath, *count)
}

func sampleOutputPath(dump string) string {
	if strings.HasSuffix(dump, ".xml.bz2") {
		return strings.TrimSuffix(dump, ".xml.bz2") + ".sample.xml.gz"
	}
	if strings.HasSuffix(dump, ".xml.gz") {
		return strings.TrimSuffix(dump, ".xml.gz") + ".sample.xml.gz"
	}
	if strings.HasSuffix(dump, ".json.gz") {
		return strings.TrimSuffix(dump, ".json.gz") + ".sample.json.gz"
	}
	return dump + ".sample"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
