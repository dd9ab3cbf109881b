// Package archive implements the Framed Archive Store: a single-file,
// write-once/read-once container holding an ordered sequence of batches,
// each batch an ordered sequence of opaque byte records.
//
// No example repository in the reference corpus carries an HDF5 binding (the
// original Python pipeline uses h5py), so this package defines its own
// framed binary container on top of encoding/binary, bufio and hash/crc32.
// Per-batch payloads are optionally zstd-compressed via
// github.com/klauspost/compress/zstd.
package archive

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// magic identifies the container format; footerMagic is written last and is
// the sole witness that a write completed successfully (spec §4.2/§8 P4).
var (
	magic       = [4]byte{'W', 'I', 'S', 'A'}
	footerMagic = [8]byte{'W', 'I', 'S', 'A', 'F', 'O', 'O', 'T'}
)

const formatVersion uint16 = 1

// batchIndexEntry records where a sealed batch lives in the file.
type batchIndexEntry struct {
	Offset     uint64 `json:"offset"`
	Length     uint64 `json:"length"`
	RecordCnt  uint32 `json:"record_count"`
	Compressed bool   `json:"compressed"`
}

type footer struct {
	Batches  []batchIndexEntry `json:"batches"`
	Metadata map[string]string `json:"metadata"`
}

// Writer is the write-mode half of the Framed Archive Store. A Writer is
// not safe for concurrent use; the archive writer goroutine owns it
// exclusively (spec §5 shared-resource policy).
type Writer struct {
	f          *os.File
	bw         *bufio.Writer
	compress   bool
	encoder    *zstd.Encoder
	offset     uint64
	batches    []batchIndexEntry
	metadata   map[string]string
	closed     bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompression enables zstd compression of batch payloads.
func WithCompression() WriterOption {
	return func(w *Writer) { w.compress = true }
}

// Create opens path for write mode. Any prior file at path is unlinked
// first, per spec §4.2.
func Create(path string, opts ...WriterOption) (*Writer, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("archive: remove existing %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("archive: create %s: %w", path, err)
	}

	w := &Writer{
		f:        f,
		bw:       bufio.NewWriter(f),
		metadata: make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("archive: init zstd encoder: %w", err)
		}
		w.encoder = enc
	}

	if _, err := w.bw.Write(magic[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: write magic: %w", err)
	}
	if err := binary.Write(w.bw, binary.LittleEndian, formatVersion); err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: write version: %w", err)
	}
	w.offset = 4 + 2

	return w, nil
}

// SetMetadata attaches a top-level key/value pair, written into the footer
// at Close.
func (w *Writer) SetMetadata(key, value string) {
	w.metadata[key] = value
}

// AppendBatch writes records as a new sealed batch and returns its batch-id.
// Batch-ids are dense starting at zero in append order (spec §3 invariant).
func (w *Writer) AppendBatch(records [][]byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("archive: append to closed writer")
	}

	payload := encodeRecords(records)
	compressed := false
	if w.encoder != nil {
		payload = w.encoder.EncodeAll(payload, nil)
		compressed = true
	}

	var frame [9]byte
	frame[0] = boolByte(compressed)
	binary.LittleEndian.PutUint32(frame[1:5], uint32(len(payload)))
	binary.LittleEndian.PutUint32(frame[5:9], crc32.ChecksumIEEE(payload))

	if _, err := w.bw.Write(frame[:]); err != nil {
		return 0, fmt.Errorf("archive: write frame header: %w", err)
	}
	if _, err := w.bw.Write(payload); err != nil {
		return 0, fmt.Errorf("archive: write frame payload: %w", err)
	}

	id := len(w.batches)
	w.batches = append(w.batches, batchIndexEntry{
		Offset:     w.offset,
		Length:     uint64(len(frame) + len(payload)),
		RecordCnt:  uint32(len(records)),
		Compressed: compressed,
	})
	w.offset += uint64(len(frame) + len(payload))

	return id, nil
}

// Close finalizes the file by writing the footer and the trailing footer
// magic. An archive is only readable once Close returns nil; a process that
// dies mid-write leaves a file with no footer magic, which Open rejects.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	ft := footer{Batches: w.batches, Metadata: w.metadata}
	body, err := json.Marshal(ft)
	if err != nil {
		w.f.Close()
		return fmt.Errorf("archive: marshal footer: %w", err)
	}

	footerOffset := w.offset
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.bw.Write(lenBuf[:]); err != nil {
		w.f.Close()
		return fmt.Errorf("archive: write footer length: %w", err)
	}
	if _, err := w.bw.Write(body); err != nil {
		w.f.Close()
		return fmt.Errorf("archive: write footer body: %w", err)
	}

	var tail [16]byte
	binary.LittleEndian.PutUint64(tail[:8], footerOffset)
	copy(tail[8:], footerMagic[:])
	if _, err := w.bw.Write(tail[:]); err != nil {
		w.f.Close()
		return fmt.Errorf("archive: write footer trailer: %w", err)
	}

	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("archive: flush: %w", err)
	}
	if w.encoder != nil {
		w.encoder.Close()
	}
	return w.f.Close()
}

// BatchCount returns the number of batches sealed so far.
func (w *Writer) BatchCount() int { return len(w.batches) }

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// encodeRecords lays out records as [count][len|bytes]*.
func encodeRecords(records [][]byte) []byte {
	size := 4
	for _, r := range records {
		size += 4 + len(r)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(records)))
	off := 4
	for _, r := range records {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(r)))
		off += 4
		copy(buf[off:], r)
		off += len(r)
	}
	return buf
}

func decodeRecords(buf []byte) ([][]byte, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("archive: truncated batch payload")
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	off := 4
	out := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(buf) {
			return nil, fmt.Errorf("archive: truncated record header")
		}
		l := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		if off+l > len(buf) {
			return nil, fmt.Errorf("archive: truncated record body")
		}
		rec := make([]byte, l)
		copy(rec, buf[off:off+l])
		out = append(out, rec)
		off += l
	}
	return out, nil
}

// Reader is the read-mode half of the Framed Archive Store.
type Reader struct {
	f        *os.File
	footer   footer
	decoder  *zstd.Decoder
}

// Open opens path for read mode. It fails if the file lacks a valid footer,
// which is the witness that the writer that produced it closed cleanly.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}

	var hdr [6]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: read header %s: %w", path, err)
	}
	if [4]byte(hdr[:4]) != magic {
		f.Close()
		return nil, fmt.Errorf("archive: %s: bad magic", path)
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: seek end %s: %w", path, err)
	}
	if size < 16 {
		f.Close()
		return nil, fmt.Errorf("archive: %s: truncated, no footer", path)
	}
	var tail [16]byte
	if _, err := f.ReadAt(tail[:], size-16); err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: read footer trailer %s: %w", path, err)
	}
	if [8]byte(tail[8:]) != footerMagic {
		f.Close()
		return nil, fmt.Errorf("archive: %s: incomplete write, no footer magic", path)
	}
	footerOffset := binary.LittleEndian.Uint64(tail[:8])

	var lenBuf [4]byte
	if _, err := f.ReadAt(lenBuf[:], int64(footerOffset)); err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: read footer length %s: %w", path, err)
	}
	footerLen := binary.LittleEndian.Uint32(lenBuf[:])
	body := make([]byte, footerLen)
	if _, err := f.ReadAt(body, int64(footerOffset)+4); err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: read footer body %s: %w", path, err)
	}

	var ft footer
	if err := json.Unmarshal(body, &ft); err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: unmarshal footer %s: %w", path, err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: init zstd decoder: %w", err)
	}

	return &Reader{f: f, footer: ft, decoder: dec}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	r.decoder.Close()
	return r.f.Close()
}

// NumBatches returns the number of batches in the archive.
func (r *Reader) NumBatches() int { return len(r.footer.Batches) }

// Metadata returns the archive's top-level key/value metadata.
func (r *Reader) Metadata() map[string]string { return r.footer.Metadata }

// Batch reads and decodes the batch at id, in 0..NumBatches()-1.
func (r *Reader) Batch(id int) ([][]byte, error) {
	if id < 0 || id >= len(r.footer.Batches) {
		return nil, fmt.Errorf("archive: batch id %d out of range [0,%d)", id, len(r.footer.Batches))
	}
	entry := r.footer.Batches[id]

	frame := make([]byte, entry.Length)
	if _, err := r.f.ReadAt(frame, int64(entry.Offset)); err != nil {
		return nil, fmt.Errorf("archive: read batch %d: %w", id, err)
	}

	compressed := frame[0] == 1
	payloadLen := binary.LittleEndian.Uint32(frame[1:5])
	wantCRC := binary.LittleEndian.Uint32(frame[5:9])
	payload := frame[9 : 9+payloadLen]
	if gotCRC := crc32.ChecksumIEEE(payload); gotCRC != wantCRC {
		return nil, fmt.Errorf("archive: batch %d: crc mismatch", id)
	}

	if compressed {
		decoded, err := r.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("archive: decompress batch %d: %w", id, err)
		}
		payload = decoded
	}

	return decodeRecords(payload)
}

// All reads every batch in ascending id order and flattens them into a
// single record sequence, reproducing producer order for that stage
// (spec §3 invariant).
func (r *Reader) All() ([][]byte, error) {
	var out [][]byte
	for id := 0; id < r.NumBatches(); id++ {
		recs, err := r.Batch(id)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}
