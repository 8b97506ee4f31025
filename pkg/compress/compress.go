// Package compress handles HTTP body compression for the API client.
//
// Responses are negotiated with Accept-Encoding and decoded according to the
// Content-Encoding the backend (or a proxy in front of it) chose. Request
// bodies above MinCompressSize are compressed when a compressor is configured.
//
// Supported algorithms:
//   - ZSTD (Zstandard), preferred
//   - Gzip, for proxies that only speak gzip
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	AlgorithmZSTD Algorithm = "zstd"
	AlgorithmGzip Algorithm = "gzip"
	AlgorithmNone Algorithm = "none"
)

// Level represents compression level.
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 3
	LevelBest    Level = 9
)

// AcceptEncoding is the Accept-Encoding value sent with every request.
const AcceptEncoding = "zstd, gzip"

// MinCompressSize is the smallest request body worth compressing.
const MinCompressSize = 1024

// Compressor provides compression and decompression functionality.
type Compressor struct {
	algorithm Algorithm
	level     Level

	// ZSTD encoder/decoder pools for reuse
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
}

// NewCompressor creates a new compressor with the specified algorithm and level.
func NewCompressor(algorithm Algorithm, level Level) *Compressor {
	if level == 0 {
		level = LevelDefault
	}
	c := &Compressor{
		algorithm: algorithm,
		level:     level,
	}

	if algorithm == AlgorithmZSTD {
		c.zstdEncoderPool = sync.Pool{
			New: func() any {
				enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(int(level))))
				return enc
			},
		}
		c.zstdDecoderPool = sync.Pool{
			New: func() any {
				dec, _ := zstd.NewReader(nil)
				return dec
			},
		}
	}

	return c
}

// ParseAlgorithm maps a config string to an algorithm; unknown values disable
// compression.
func ParseAlgorithm(s string) Algorithm {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zstd":
		return AlgorithmZSTD
	case "gzip":
		return AlgorithmGzip
	default:
		return AlgorithmNone
	}
}

// Algorithm returns the compression algorithm.
func (c *Compressor) Algorithm() Algorithm {
	return c.algorithm
}

// ContentEncoding returns the HTTP Content-Encoding header value.
func (c *Compressor) ContentEncoding() string {
	switch c.algorithm {
	case AlgorithmZSTD:
		return "zstd"
	case AlgorithmGzip:
		return "gzip"
	default:
		return ""
	}
}

// Compress compresses the input data.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	switch c.algorithm {
	case AlgorithmZSTD:
		enc := c.zstdEncoderPool.Get().(*zstd.Encoder)
		defer c.zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case AlgorithmGzip:
		return c.compressGzip(data)
	case AlgorithmNone:
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", c.algorithm)
	}
}

// Decompress decompresses the input data.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	switch c.algorithm {
	case AlgorithmZSTD:
		dec := c.zstdDecoderPool.Get().(*zstd.Decoder)
		defer c.zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress error: %w", err)
		}
		return out, nil
	case AlgorithmGzip:
		return decompressGzip(data)
	case AlgorithmNone:
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", c.algorithm)
	}
}

// MaybeCompress compresses body when it is large enough and compression
// actually shrinks it. It returns the body to send and its Content-Encoding
// ("" when sent as-is).
func (c *Compressor) MaybeCompress(body []byte) ([]byte, string) {
	if c == nil || c.algorithm == AlgorithmNone || len(body) < MinCompressSize {
		return body, ""
	}
	compressed, err := c.Compress(body)
	if err != nil || len(compressed) >= len(body) {
		return body, ""
	}
	return compressed, c.ContentEncoding()
}

func (c *Compressor) compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	level := gzip.DefaultCompression
	if c.level <= 3 {
		level = gzip.BestSpeed
	} else if c.level >= 7 {
		level = gzip.BestCompression
	}

	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer error: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write error: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip close error: %w", err)
	}

	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader error: %w", err)
	}
	defer reader.Close()

	result, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gzip decompress error: %w", err)
	}
	return result, nil
}

var (
	responseZSTD = NewCompressor(AlgorithmZSTD, LevelDefault)
	responseGzip = NewCompressor(AlgorithmGzip, LevelDefault)
)

// DecodeBody decodes a response body according to its Content-Encoding
// header. Identity and empty encodings return data unchanged.
func DecodeBody(contentEncoding string, data []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return data, nil
	case "zstd":
		return responseZSTD.Decompress(data)
	case "gzip", "x-gzip":
		return responseGzip.Decompress(data)
	default:
		return nil, fmt.Errorf("unsupported content encoding: %s", contentEncoding)
	}
}
