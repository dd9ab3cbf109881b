package reader

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gperdrizet/OpenSearch/engine/etl"
	"github.com/gperdrizet/OpenSearch/engine/transform"
	"github.com/gperdrizet/OpenSearch/pkg/queue"
)

// redirectPrefix marks a page body as a redirect, which the SAX loop's
// accepting state excludes just like it excludes non-article namespaces
// (spec §4.3).
const redirectPrefix = "#REDIRECT"

// pageAccumulator tracks the fields of the <page> element currently being
// parsed. MediaWiki's dump XML nests title/ns/revision/text in document
// order, so a single forward token scan with no backtracking is enough —
// this is the SAX-style state machine spec §4.3 calls for instead of
// loading the whole page subtree into memory.
type pageAccumulator struct {
	inPage     bool
	inRevision bool
	title      string
	namespace  int
	text       strings.Builder
	capturing  string // which element's character data is being collected
}

func (p *pageAccumulator) reset() {
	*p = pageAccumulator{}
}

// PageXMLReader reads a MediaWiki XML dump (optionally gzip or bzip2
// compressed) and enqueues one RawArticle per accepted <page>.
type PageXMLReader struct {
	Path          string
	TargetRecords int
	Logger        *slog.Logger
}

// Read satisfies engine/etl.ReaderFunc.
func (r PageXMLReader) Read(ctx context.Context, out *queue.Queue[[]byte], nWorkers int) (etl.ReaderStats, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	f, err := os.Open(r.Path)
	if err != nil {
		return etl.ReaderStats{}, err
	}
	defer f.Close()

	src, err := decompressingReader(r.Path, f)
	if err != nil {
		return etl.ReaderStats{}, err
	}

	dec := xml.NewDecoder(bufio.NewReaderSize(src, 1<<20))

	var acc pageAccumulator
	var lineCount, records int

	for {
		if ctx.Err() != nil {
			return etl.ReaderStats{}, ctx.Err()
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return etl.ReaderStats{}, fmt.Errorf("%w: %v", etl.ErrMalformedInput, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			lineCount++
			switch t.Name.Local {
			case "page":
				acc.reset()
				acc.inPage = true
			case "revision":
				acc.inRevision = true
			case "title":
				if acc.inPage {
					acc.capturing = "title"
				}
			case "ns":
				if acc.inPage {
					acc.capturing = "ns"
				}
			case "text":
				if acc.inPage && acc.inRevision {
					acc.capturing = "text"
				}
			}
		case xml.CharData:
			switch acc.capturing {
			case "title":
				acc.title += string(t)
			case "ns":
				if ns, err := strconv.Atoi(strings.TrimSpace(string(t))); err == nil {
					acc.namespace = ns
				}
			case "text":
				acc.text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "title", "ns", "text":
				acc.capturing = ""
			case "revision":
				acc.inRevision = false
			case "page":
				if acceptPage(acc) {
					line, err := json.Marshal(transform.RawArticle{
						Title:      acc.title,
						Namespace:  acc.namespace,
						SourceText: acc.text.String(),
					})
					if err != nil {
						return etl.ReaderStats{}, err
					}
					if err := out.Put(ctx, queue.Of(line)); err != nil {
						return etl.ReaderStats{}, err
					}
					records++
				}
				acc.inPage = false
				if r.TargetRecords > 0 && records >= r.TargetRecords {
					for i := 0; i < nWorkers; i++ {
						if err := out.Put(ctx, queue.Sentinel[[]byte]()); err != nil {
							return etl.ReaderStats{}, err
						}
					}
					log.Info("reader.done", "reader", "page_xml", "input_records", records)
					return etl.ReaderStats{InputRecords: records, InputLines: lineCount}, nil
				}
			}
		}
	}

	for i := 0; i < nWorkers; i++ {
		if err := out.Put(ctx, queue.Sentinel[[]byte]()); err != nil {
			return etl.ReaderStats{}, err
		}
	}
	log.Info("reader.done", "reader", "page_xml", "input_records", records)
	return etl.ReaderStats{InputRecords: records, InputLines: lineCount}, nil
}

func acceptPage(acc pageAccumulator) bool {
	if acc.namespace != transform.ArticleNamespace {
		return false
	}
	return !strings.HasPrefix(strings.TrimSpace(acc.text.String()), redirectPrefix)
}

func decompressingReader(path string, f *os.File) (io.Reader, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return gzip.NewReader(f)
	case strings.HasSuffix(path, ".bz2"):
		return bzip2.NewReader(f), nil
	default:
		return f, nil
	}
}
