// Package chunk splits normalized text into semantically-bounded fragments
// no larger than a configured token count. The tokenizer and the splitting
// algorithm are explicitly out of scope (SPEC_FULL.md §13 Non-goals) — this
// package defines the pluggable contract and one trivial, deterministic
// default implementation.
package chunk

import "strings"

// Tokenizer counts/splits text into tokens under some named scheme. The
// only contractual property a Chunker relies on is that len(Tokenize(s))
// bounds how many chunks a text needs.
type Tokenizer interface {
	Name() string
	Tokenize(text string) []string
}

// WordTokenizer is the trivial default tokenizer: whitespace-delimited
// words. It stands in for the BERT-style subword tokenizer the original
// pipeline configures (SPEC_FULL.md §13) without pulling a model
// dependency into the core.
type WordTokenizer struct{}

func (WordTokenizer) Name() string { return "word" }

func (WordTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

// Chunker splits text into chunks of at most MaxTokens tokens under
// Tokenizer, preserving all input content (modulo the normalization
// rewrite table already applied upstream).
type Chunker struct {
	Tokenizer Tokenizer
	MaxTokens int
}

// NewDefault returns a Chunker using WordTokenizer.
func NewDefault(maxTokens int) Chunker {
	return Chunker{Tokenizer: WordTokenizer{}, MaxTokens: maxTokens}
}

// Chunk splits text into chunks of at most c.MaxTokens tokens each. Returns
// nil for empty input. The exact split point is tokenizer-dependent; the
// only contract is "<= MaxTokens tokens per chunk, no content lost".
func (c Chunker) Chunk(text string) []string {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1
	}
	tokens := c.Tokenizer.Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(tokens)+c.MaxTokens-1)/c.MaxTokens)
	for i := 0; i < len(tokens); i += c.MaxTokens {
		end := i + c.MaxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[i:end], " "))
	}
	return chunks
}
