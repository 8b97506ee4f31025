package compress

import (
	"bytes"
	"strings"
	"testing"
)

var samplePayload = []byte(`{"task_id":"abc123","count":1,"leaks":[{"leak_id":"l1","category":"API_KEY","risk":{"score":85,"severity":"High"}}]}`)

func TestCompressor_RoundTrip(t *testing.T) {
	for _, algo := range []Algorithm{AlgorithmZSTD, AlgorithmGzip, AlgorithmNone} {
		t.Run(string(algo), func(t *testing.T) {
			c := NewCompressor(algo, LevelDefault)

			compressed, err := c.Compress(samplePayload)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}

			decompressed, err := c.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}

			if !bytes.Equal(samplePayload, decompressed) {
				t.Errorf("Decompressed data doesn't match original")
			}
		})
	}
}

func TestCompressor_ContentEncoding(t *testing.T) {
	tests := []struct {
		algo Algorithm
		want string
	}{
		{AlgorithmZSTD, "zstd"},
		{AlgorithmGzip, "gzip"},
		{AlgorithmNone, ""},
	}

	for _, tt := range tests {
		if got := NewCompressor(tt.algo, LevelDefault).ContentEncoding(); got != tt.want {
			t.Errorf("ContentEncoding(%s) = %q, want %q", tt.algo, got, tt.want)
		}
	}
}

func TestCompressor_MaybeCompress(t *testing.T) {
	c := NewCompressor(AlgorithmZSTD, LevelDefault)

	small := []byte(`{"url":"example.com"}`)
	out, enc := c.MaybeCompress(small)
	if enc != "" || !bytes.Equal(out, small) {
		t.Errorf("small bodies should be sent as-is, got encoding %q", enc)
	}

	large := []byte(strings.Repeat(`{"factor":"exposed in public bundle"},`, 100))
	out, enc = c.MaybeCompress(large)
	if enc != "zstd" {
		t.Fatalf("large repetitive body should be compressed, got encoding %q", enc)
	}
	if len(out) >= len(large) {
		t.Errorf("compressed size %d should be smaller than %d", len(out), len(large))
	}

	var nilCompressor *Compressor
	if _, enc := nilCompressor.MaybeCompress(large); enc != "" {
		t.Errorf("nil compressor should not compress, got %q", enc)
	}
}

func TestDecodeBody(t *testing.T) {
	zstdBody, _ := NewCompressor(AlgorithmZSTD, LevelDefault).Compress(samplePayload)
	gzipBody, _ := NewCompressor(AlgorithmGzip, LevelDefault).Compress(samplePayload)

	tests := []struct {
		name     string
		encoding string
		body     []byte
		wantErr  bool
	}{
		{"identity", "", samplePayload, false},
		{"explicit identity", "identity", samplePayload, false},
		{"zstd", "zstd", zstdBody, false},
		{"gzip", "gzip", gzipBody, false},
		{"gzip uppercase", "GZIP", gzipBody, false},
		{"unsupported", "br", samplePayload, true},
		{"corrupt zstd", "zstd", []byte("not zstd"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBody(tt.encoding, tt.body)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeBody() error = %v", err)
			}
			if !bytes.Equal(got, samplePayload) {
				t.Errorf("DecodeBody() = %q", got)
			}
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"zstd": AlgorithmZSTD,
		"GZIP": AlgorithmGzip,
		"":     AlgorithmNone,
		"lz4":  AlgorithmNone,
	}
	for in, want := range tests {
		if got := ParseAlgorithm(in); got != want {
			t.Errorf("ParseAlgorithm(%q) = %s, want %s", in, got, want)
		}
	}
}
