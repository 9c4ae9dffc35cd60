package storage

import (
	"fmt"
	"io"

	"github.com/valyala/gozstd"
)

// ============================================================================
// ZSTD COMPRESSION LAYER
// ============================================================================

// CompressionLevel is the level used for every stored file
const CompressionLevel = 3

// Compress compresses data into a single zstd frame
func Compress(data []byte) []byte {
	return gozstd.CompressLevel(nil, data, CompressionLevel)
}

// Decompress decompresses all frames in the compressed data
func Decompress(compressed []byte) ([]byte, error) {
	decompressed, err := gozstd.Decompress(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	return decompressed, nil
}

// NewStreamingReader creates a streaming decompressor.
// The reader must be released with Release().
func NewStreamingReader(r io.Reader) StreamReader {
	return &gozstdReader{reader: gozstd.NewReader(r)}
}

// NewStreamingWriter creates a streaming compressor.
// The writer must be closed with Close() then released with Release().
func NewStreamingWriter(w io.Writer) StreamWriter {
	return &gozstdWriter{writer: gozstd.NewWriterLevel(w, CompressionLevel)}
}

// StreamReader is a streaming decompression reader
type StreamReader interface {
	io.Reader
	Release()
}

// StreamWriter is a streaming compression writer
type StreamWriter interface {
	io.Writer
	io.Closer
	Release()
}

type gozstdReader struct {
	reader *gozstd.Reader
}

func (r *gozstdReader) Read(p []byte) (int, error) {
	return r.reader.Read(p)
}

func (r *gozstdReader) Release() {
	r.reader.Release()
}

type gozstdWriter struct {
	writer *gozstd.Writer
}

func (w *gozstdWriter) Write(p []byte) (int, error) {
	return w.writer.Write(p)
}

func (w *gozstdWriter) Close() error {
	return w.writer.Close()
}

func (w *gozstdWriter) Release() {
	w.writer.Release()
}
