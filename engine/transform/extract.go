package transform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gperdrizet/OpenSearch/engine/etl"
	"github.com/gperdrizet/OpenSearch/engine/normalize"
)

// ExtractorFunc decodes and filters one raw input record, returning zero
// records for anything the pipeline should drop (wrong namespace,
// disambiguation page, empty body after cleanup) and exactly one otherwise
// (spec §4.4 item 1).
type ExtractorFunc func(ctx context.Context, line []byte) ([]ExtractedText, error)

// WikipediaCirrusExtractor decodes one CirrusSearch content-dict JSON line,
// applies the namespace and disambiguation-category filters, strips wiki
// markup, and runs the normalization table once so coarse cleanup artefacts
// (stray headings, thumbnail captions) never reach the chunker. Grounded on
// original_source/semantic_search/functions/wikipedia_extractor.py.
func WikipediaCirrusExtractor(ctx context.Context, line []byte) ([]ExtractedText, error) {
	var raw RawArticle
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", etl.ErrMalformedInput, err)
	}
	if !accept(raw) {
		return nil, nil
	}
	text := normalize.Normalize(stripWikiMarkup(raw.SourceText))
	if text == "" {
		return nil, nil
	}
	return []ExtractedText{{Title: raw.Title, Text: text, Categories: raw.Category}}, nil
}

// XMLArticleExtractor adapts the (title, text) pairs already filtered by
// the MediaWiki XML reader's SAX accepting state (namespace 0, not a
// redirect) into the same ExtractedText shape the CirrusSearch path
// produces, so both readers feed a single ParseChunk transform downstream.
func XMLArticleExtractor(ctx context.Context, line []byte) ([]ExtractedText, error) {
	var raw RawArticle
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", etl.ErrMalformedInput, err)
	}
	text := normalize.Normalize(stripWikiMarkup(raw.SourceText))
	if text == "" {
		return nil, nil
	}
	return []ExtractedText{{Title: raw.Title, Text: text, Categories: raw.Category}}, nil
}

func accept(raw RawArticle) bool {
	if raw.Namespace != ArticleNamespace {
		return false
	}
	for _, c := range raw.Category {
		if c == DisambiguationCategory {
			return false
		}
	}
	return true
}
