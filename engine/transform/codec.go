package transform

import "encoding/json"

// EncodeExtractedText/DecodeExtractedText, EncodeChunk/DecodeChunk, and
// EncodeEmbedding/DecodeEmbedding let a Stage's archive-backed reader and
// writer carry the intermediate record types of spec §3 as opaque []byte
// payloads between stages, so engine/etl.Stage never needs to know about
// domain types.

func EncodeExtractedText(v ExtractedText) ([]byte, error) { return json.Marshal(v) }

func DecodeExtractedText(b []byte) (ExtractedText, error) {
	var v ExtractedText
	err := json.Unmarshal(b, &v)
	return v, err
}

func EncodeChunk(v Chunk) ([]byte, error) { return json.Marshal(v) }

func DecodeChunk(b []byte) (Chunk, error) {
	var v Chunk
	err := json.Unmarshal(b, &v)
	return v, err
}

func EncodeEmbedding(v Embedding) ([]byte, error) { return json.Marshal(v) }

func DecodeEmbedding(b []byte) (Embedding, error) {
	var v Embedding
	err := json.Unmarshal(b, &v)
	return v, err
}
