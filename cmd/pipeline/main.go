// Command pipeline is the Pipeline Driver (SPEC_FULL.md §4.7, §6.1): it
// resolves a named data-source descriptor into four sequential ETL stages
// (ExtractText, ParseText, EmbedText, LoadText), each idempotent via a
// summary-file witness, and runs whichever stages haven't completed yet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/gperdrizet/OpenSearch/engine/etl"
	"github.com/gperdrizet/OpenSearch/engine/reader"
	"github.com/gperdrizet/OpenSearch/engine/source"
	"github.com/gperdrizet/OpenSearch/engine/transform"
	"github.com/gperdrizet/OpenSearch/engine/writer"
	"github.com/gperdrizet/OpenSearch/pkg/embedclient"
	"github.com/gperdrizet/OpenSearch/pkg/events"
	"github.com/gperdrizet/OpenSearch/pkg/metrics"
	"github.com/gperdrizet/OpenSearch/pkg/resilience"
	"github.com/gperdrizet/OpenSearch/pkg/sink"

	"github.com/nats-io/nats.go"
)

var met = metrics.New()

var (
	mStageRecords = func(stage string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("wikistream_stage_records_total", "stage", stage), "Records produced by a completed stage")
	}
	mStageSeconds = func(stage string) *metrics.Gauge {
		return met.Gauge(metrics.WithLabels("wikistream_stage_wall_seconds", "stage", stage), "Wall clock time of the most recent run of a stage")
	}
)

func main() {
	var (
		dataSource    = flag.String("data_source", "wikipedia", "data source descriptor name")
		configDir     = flag.String("config_dir", "config/data_sources", "directory holding <data_source>.json descriptors")
		dataDir       = flag.String("data_dir", "data", "directory holding raw dumps and stage archives")
		forceFrom     = flag.String("force_from", "", "re-run from this stage onward: ExtractText|ParseText|EmbedText|LoadText")
		parseWorkers  = flag.Int("parse_workers", 4, "workers for ExtractText/ParseText stages")
		embedWorkers  = flag.Int("embed_workers", 4, "workers for EmbedText stage")
		loadWorkers   = flag.Int("load_workers", 4, "workers for LoadText stage")
		queueCapacity = flag.Int("queue_capacity", 0, "bounded queue capacity per stage (0 = default)")
		maxTokens     = flag.Int("max_tokens", 256, "chunker token limit")
		ollamaURL     = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		ollamaModel   = flag.String("model", "nomic-embed-text", "Ollama embedding model")
		openSearchURL = flag.String("opensearch", "http://localhost:9200", "OpenSearch address")
		natsURL       = flag.String("nats", "", "NATS address for stage lifecycle events (empty disables)")
		metricsPort   = flag.Int("metrics_port", 9095, "Prometheus-text metrics port")
	)
	flag.Parse()

	log := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	met.ServeAsync(*metricsPort)

	descPath := filepath.Join(*configDir, *dataSource+".json")
	desc, err := source.Load(descPath)
	if err != nil {
		log.Error("pipeline: load descriptor", "path", descPath, "error", err)
		os.Exit(1)
	}

	var publisher *events.Publisher
	if *natsURL != "" {
		nc, err := nats.Connect(*natsURL)
		if err != nil {
			log.Error("pipeline: nats connect", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		publisher = events.NewPublisher(nc)
	}

	embedder := embedclient.New(*ollamaURL, *ollamaModel)

	sinkClient, err := sink.New(*openSearchURL)
	if err != nil {
		log.Error("pipeline: sink connect", "error", err)
		os.Exit(1)
	}

	runDir := filepath.Join(*dataDir, desc.TargetIndexName)
	extractArchive := filepath.Join(runDir, "extract.wisa")
	chunkArchive := filepath.Join(runDir, "chunks.wisa")
	embedArchive := filepath.Join(runDir, "embeddings.wisa")

	extractSummary := filepath.Join(runDir, "ExtractText.summary.json")
	parseSummary := filepath.Join(runDir, "ParseText.summary.json")
	embedSummary := filepath.Join(runDir, "EmbedText.summary.json")
	loadSummary := filepath.Join(runDir, "LoadText.summary.json")

	registry := transform.NewRegistry()
	extractFn, err := registry.Lookup(desc.ExtractorFunction)
	if err != nil {
		log.Error("pipeline: resolve extractor", "error", err)
		os.Exit(1)
	}

	rawReader := newRawReader(desc, log)

	extractStage := etl.Stage[[]byte, []byte]{
		Name:          "ExtractText",
		Source:        descriptorToMap(desc),
		Reader:        rawReader,
		Transform:     flattenExtract(extractFn),
		Writer:        writer.ArchiveWriter{Path: extractArchive, BatchSize: desc.OutputBatchSize, Compress: true, Logger: log}.Write,
		Workers:       *parseWorkers,
		QueueCapacity: *queueCapacity,
		SummaryPath:   extractSummary,
	}

	parseChunk := transform.NewParseChunk(*maxTokens)
	parseStage := etl.Stage[[]byte, []byte]{
		Name:          "ParseText",
		Source:        descriptorToMap(desc),
		Reader:        reader.ArchiveReader{Path: extractArchive, Logger: log}.Read,
		Transform:     decodeParseChunkEncode(parseChunk),
		Writer:        writer.ArchiveWriter{Path: chunkArchive, BatchSize: desc.OutputBatchSize, Compress: true, Logger: log}.Write,
		Workers:       *parseWorkers,
		QueueCapacity: *queueCapacity,
		SummaryPath:   parseSummary,
	}

	embedStage := etl.Stage[[]byte, []byte]{
		Name:          "EmbedText",
		Source:        descriptorToMap(desc),
		Reader:        reader.ArchiveReader{Path: chunkArchive, Logger: log}.Read,
		Transform:     decodeEmbedEncode(transform.NewEmbed(embedder)),
		Writer:        writer.ArchiveWriter{Path: embedArchive, BatchSize: desc.OutputBatchSize, Compress: true, Logger: log}.Write,
		Workers:       *embedWorkers,
		QueueCapacity: *queueCapacity,
		SummaryPath:   embedSummary,
	}

	buildRequest := transform.NewBuildRequest(desc.VectorDoc)
	indexSpec := sink.DefaultIndexSpec(desc.TargetIndexName, desc.VectorDoc, desc.VectorDim)
	if err := sinkClient.EnsureIndex(ctx, indexSpec); err != nil {
		log.Error("pipeline: ensure index", "index", desc.TargetIndexName, "error", err)
		os.Exit(1)
	}
	loadStage := etl.Stage[[]byte, transform.RequestPair]{
		Name:          "LoadText",
		Source:        descriptorToMap(desc),
		Reader:        reader.ArchiveReader{Path: embedArchive, Logger: log}.Read,
		Transform:     decodeBuildRequest(buildRequest),
		Writer:        writer.BulkIndexWriter{Sink: sinkClient, Index: desc.TargetIndexName, BatchSize: desc.OutputBatchSize, Breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts), Logger: log}.Write,
		Workers:       *loadWorkers,
		QueueCapacity: *queueCapacity,
		SummaryPath:   loadSummary,
	}

	driver := etl.Driver{Stages: []etl.StageSpec{
		wrapStage("ExtractText", extractSummary, []string{extractArchive}, extractStage.Run, publisher, log),
		wrapStage("ParseText", parseSummary, []string{chunkArchive}, parseStage.Run, publisher, log),
		wrapStage("EmbedText", embedSummary, []string{embedArchive}, embedStage.Run, publisher, log),
		wrapStage("LoadText", loadSummary, nil, loadStage.Run, publisher, log),
	}}

	if *forceFrom != "" {
		log.Info("pipeline: force_from requested", "stage", *forceFrom)
	}

	if err := driver.Execute(ctx, *forceFrom); err != nil {
		log.Error("pipeline: run failed", "error", err)
		os.Exit(1)
	}
	log.Info("pipeline: run complete", "data_source", *dataSource)
}

// wrapStage adds lifecycle-event publishing and per-stage metrics around a
// Stage's Run method, without entangling engine/etl with pkg/events or
// pkg/metrics.
func wrapStage(name, summaryPath string, artefacts []string, run func(context.Context) (etl.Summary, error), pub *events.Publisher, log *slog.Logger) etl.StageSpec {
	return etl.StageSpec{
		Name:        name,
		SummaryPath: summaryPath,
		Artefacts:   artefacts,
		Run: func(ctx context.Context) (etl.Summary, error) {
			publish(ctx, pub, log, events.StageEvent{Stage: name, Status: "started"})
			summary, err := run(ctx)
			if err != nil {
				publish(ctx, pub, log, events.StageEvent{Stage: name, Status: "failed", Detail: err.Error()})
				return summary, err
			}
			mStageRecords(name).Add(int64(summary.OutputRecords))
			mStageSeconds(name).SetFloat(summary.WallTimeSeconds)
			publish(ctx, pub, log, events.StageEvent{Stage: name, Status: "completed"})
			return summary, nil
		},
	}
}

func publish(ctx context.Context, pub *events.Publisher, log *slog.Logger, ev events.StageEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn("pipeline: publish stage event", "stage", ev.Stage, "status", ev.Status, "error", err)
	}
}

func newRawReader(desc source.Descriptor, log *slog.Logger) etl.ReaderFunc[[]byte] {
	if isXMLDump(desc.RawDataFile) {
		return reader.PageXMLReader{Path: desc.RawDataFile, TargetRecords: targetRecords(desc), Logger: log}.Read
	}
	return reader.LinePairReader{Path: desc.RawDataFile, TargetRecords: targetRecords(desc), Logger: log}.Read
}

func isXMLDump(path string) bool {
	base := strings.TrimSuffix(strings.TrimSuffix(path, ".gz"), ".bz2")
	return strings.HasSuffix(base, ".xml")
}

func targetRecords(desc source.Descriptor) int {
	if desc.TargetRecords < 0 {
		return 0
	}
	return int(desc.TargetRecords)
}

func descriptorToMap(desc source.Descriptor) map[string]any {
	return map[string]any{
		"raw_data_file":      desc.RawDataFile,
		"target_index_name":  desc.TargetIndexName,
		"extractor_function": desc.ExtractorFunction,
		"output_batch_size":  desc.OutputBatchSize,
	}
}

func flattenExtract(fn transform.ExtractorFunc) etl.Transform[[]byte, []byte] {
	return func(ctx context.Context, line []byte) ([][]byte, error) {
		texts, err := fn(ctx, line)
		if err != nil {
			return nil, err
		}
		out := make([][]byte, 0, len(texts))
		for _, t := range texts {
			b, err := transform.EncodeExtractedText(t)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return out, nil
	}
}

func decodeParseChunkEncode(pc transform.ParseChunk) etl.Transform[[]byte, []byte] {
	return func(ctx context.Context, line []byte) ([][]byte, error) {
		in, err := transform.DecodeExtractedText(line)
		if err != nil {
			return nil, fmt.Errorf("pipeline: parse stage: %w", err)
		}
		chunks, err := pc.Transform(ctx, in)
		if err != nil {
			return nil, err
		}
		out := make([][]byte, 0, len(chunks))
		for _, c := range chunks {
			b, err := transform.EncodeChunk(c)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return out, nil
	}
}

func decodeEmbedEncode(e transform.Embed) etl.Transform[[]byte, []byte] {
	return func(ctx context.Context, line []byte) ([][]byte, error) {
		in, err := transform.DecodeChunk(line)
		if err != nil {
			return nil, fmt.Errorf("pipeline: embed stage: %w", err)
		}
		embeddings, err := e.Transform(ctx, in)
		if err != nil {
			return nil, err
		}
		out := make([][]byte, 0, len(embeddings))
		for _, emb := range embeddings {
			b, err := transform.EncodeEmbedding(emb)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return out, nil
	}
}

func decodeBuildRequest(b transform.BuildRequest) etl.Transform[[]byte, transform.RequestPair] {
	return func(ctx context.Context, line []byte) ([]transform.RequestPair, error) {
		in, err := transform.DecodeEmbedding(line)
		if err != nil {
			return nil, fmt.Errorf("pipeline: load stage: %w", err)
		}
		return b.Transform(ctx, in)
	}
}
