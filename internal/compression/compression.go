/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package compression compresses the page chains the external sort spools to
disk once a run outgrows its in-memory buffer. A run's pages are written
sequentially and read back the same way, so compression here is a plain
whole-block codec rather than the streaming, dictionary-aware machinery a
WAL or replication log would need.

Four algorithms are supported, selected per Config.Algorithm: gzip for
maximum ratio at the highest CPU cost, lz4 and snappy for low-latency
spill/reload cycles, and zstd as the balanced default.
*/
package compression

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a compression codec.
type Algorithm int

const (
	AlgorithmNone Algorithm = iota
	AlgorithmGzip
	AlgorithmLZ4
	AlgorithmSnappy
	AlgorithmZstd
)

// String renders the algorithm name the way Config.Algorithm is logged.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmLZ4:
		return "lz4"
	case AlgorithmSnappy:
		return "snappy"
	case AlgorithmZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses an algorithm name, defaulting to AlgorithmNone on
// anything unrecognized.
func ParseAlgorithm(s string) Algorithm {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gzip":
		return AlgorithmGzip
	case "lz4":
		return AlgorithmLZ4
	case "snappy":
		return AlgorithmSnappy
	case "zstd":
		return AlgorithmZstd
	default:
		return AlgorithmNone
	}
}

// Level maps onto each codec's own notion of effort. Codecs that don't
// support a tunable level (snappy, lz4's default mode) ignore it.
type Level int

const (
	LevelFastest Level = 1
	LevelDefault Level = 5
	LevelBest    Level = 9
)

// Config controls a Compressor's behavior.
type Config struct {
	Algorithm Algorithm `json:"algorithm"`
	Level     Level     `json:"level"`

	// MinSize is the smallest payload worth compressing; anything smaller
	// is stored as AlgorithmNone regardless of the configured algorithm.
	MinSize int `json:"min_size"`

	// BatchSize and BatchTimeout are carried in the configuration only:
	// neither Compressor nor BatchCompressor reads them, and a
	// BatchCompressor groups whatever has been added until Flush is called.
	BatchSize    int `json:"batch_size"`
	BatchTimeout int `json:"batch_timeout_ms"`

	DictionaryEnable bool `json:"dictionary_enable"`
}

// DefaultConfig returns the kernel's default spill-compression settings.
func DefaultConfig() Config {
	return Config{
		Algorithm:        AlgorithmZstd,
		Level:            LevelDefault,
		MinSize:          256,
		BatchSize:        100,
		BatchTimeout:     10,
		DictionaryEnable: false,
	}
}

var (
	ErrDataTooSmall     = fmt.Errorf("compression: data smaller than MinSize, store uncompressed")
	ErrInvalidHeader    = fmt.Errorf("compression: invalid frame header")
	ErrUnsupportedAlgo  = fmt.Errorf("compression: unsupported algorithm")
	ErrDecompressFailed = fmt.Errorf("compression: decompress failed")
)

// Compressor compresses and decompresses whole blocks using the algorithm
// named in its Config. It is safe for concurrent use; callers still run
// single-threaded per the kernel's execution model, but the pools avoid
// reallocating codec state on every spilled run page.
type Compressor struct {
	config Config

	gzipWriterPool sync.Pool
	zstdEncOnce    sync.Once
	zstdEnc        *zstd.Encoder
	zstdDecOnce    sync.Once
	zstdDec        *zstd.Decoder
	bufferPool     sync.Pool
}

// NewCompressor builds a Compressor for the given configuration.
func NewCompressor(config Config) *Compressor {
	c := &Compressor{config: config}
	c.gzipWriterPool = sync.Pool{
		New: func() interface{} {
			w, _ := gzip.NewWriterLevel(io.Discard, gzipLevel(config.Level))
			return w
		},
	}
	c.bufferPool = sync.Pool{
		New: func() interface{} { return new(bytes.Buffer) },
	}
	return c
}

func gzipLevel(l Level) int {
	switch {
	case l <= LevelFastest:
		return gzip.BestSpeed
	case l >= LevelBest:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func (c *Compressor) encoder() *zstd.Encoder {
	c.zstdEncOnce.Do(func() {
		opt := zstd.SpeedDefault
		switch {
		case c.config.Level <= LevelFastest:
			opt = zstd.SpeedFastest
		case c.config.Level >= LevelBest:
			opt = zstd.SpeedBestCompression
		}
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(opt))
		c.zstdEnc = enc
	})
	return c.zstdEnc
}

func (c *Compressor) decoder() *zstd.Decoder {
	c.zstdDecOnce.Do(func() {
		dec, _ := zstd.NewReader(nil)
		c.zstdDec = dec
	})
	return c.zstdDec
}

// Compress returns data prefixed with a one-byte algorithm tag, compressed
// with c.config.Algorithm. If data is shorter than c.config.MinSize it is
// stored verbatim under AlgorithmNone, since the codec overhead would make
// the page chain larger, not smaller.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	algo := c.config.Algorithm
	if len(data) < c.config.MinSize {
		algo = AlgorithmNone
	}

	var payload []byte
	var err error
	switch algo {
	case AlgorithmNone:
		payload = data
	case AlgorithmGzip:
		payload, err = c.compressGzip(data)
	case AlgorithmLZ4:
		payload, err = c.compressLZ4(data)
	case AlgorithmSnappy:
		payload = snappy.Encode(nil, data)
	case AlgorithmZstd:
		payload = c.encoder().EncodeAll(data, nil)
	default:
		return nil, ErrUnsupportedAlgo
	}
	if err != nil {
		return nil, err
	}

	framed := make([]byte, 1, 1+len(payload))
	framed[0] = byte(algo)
	framed = append(framed, payload...)
	return framed, nil
}

func (c *Compressor) compressGzip(data []byte) ([]byte, error) {
	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	w := c.gzipWriterPool.Get().(*gzip.Writer)
	defer c.gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func lz4CompressionLevel(l Level) lz4.CompressionLevel {
	switch {
	case l <= LevelFastest:
		return lz4.Fast
	case l >= LevelBest:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func (c *Compressor) compressLZ4(data []byte) ([]byte, error) {
	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	zw := lz4.NewWriter(buf)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4CompressionLevel(c.config.Level))); err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Decompress reverses Compress. algo is passed explicitly because a caller
// reading a spilled run page knows which algorithm wrote it from the
// run page's header, not from re-parsing every frame; the frame's own
// tag byte is checked against it for consistency.
func (c *Compressor) Decompress(framed []byte, algo Algorithm) ([]byte, error) {
	if len(framed) < 1 {
		return nil, ErrInvalidHeader
	}
	tag := Algorithm(framed[0])
	if tag != algo {
		return nil, fmt.Errorf("%w: frame tagged %s, expected %s", ErrInvalidHeader, tag, algo)
	}
	payload := framed[1:]

	switch algo {
	case AlgorithmNone:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case AlgorithmGzip:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return out, nil
	case AlgorithmLZ4:
		zr := lz4.NewReader(bytes.NewReader(payload))
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return out, nil
	case AlgorithmSnappy:
		out, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return out, nil
	case AlgorithmZstd:
		out, err := c.decoder().DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
		}
		return out, nil
	default:
		return nil, ErrUnsupportedAlgo
	}
}

// BatchCompressor groups several small entries (catalog records, run-page
// index fragments) into a single compressed frame, amortizing codec
// overhead the way a single run page's worth of tuples would otherwise pay
// per-tuple. Entries are concatenated length-prefixed, then the whole
// block is run through a Compressor.
type BatchCompressor struct {
	compressor *Compressor
	entries    [][]byte
}

// NewBatchCompressor builds a BatchCompressor for the given configuration.
func NewBatchCompressor(config Config) *BatchCompressor {
	return &BatchCompressor{compressor: NewCompressor(config)}
}

// Add appends an entry to the pending batch.
func (b *BatchCompressor) Add(entry []byte) {
	b.entries = append(b.entries, entry)
}

// Flush encodes the pending batch as count + length-prefixed entries and
// compresses the result, clearing the pending batch.
func (b *BatchCompressor) Flush() ([]byte, error) {
	var buf bytes.Buffer
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(b.entries)))
	buf.Write(countBuf[:])

	for _, e := range b.entries {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(e)))
		buf.Write(lenBuf[:])
		buf.Write(e)
	}
	b.entries = b.entries[:0]

	return b.compressor.Compress(buf.Bytes())
}

// DecompressBatch reverses Flush, returning the original entries in order.
func (b *BatchCompressor) DecompressBatch(framed []byte, algo Algorithm) ([][]byte, error) {
	raw, err := b.compressor.Decompress(framed, algo)
	if err != nil {
		return nil, err
	}
	if len(raw) < 4 {
		return nil, ErrInvalidHeader
	}
	count := binary.BigEndian.Uint32(raw[:4])
	raw = raw[4:]

	entries := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(raw) < 4 {
			return nil, ErrInvalidHeader
		}
		n := binary.BigEndian.Uint32(raw[:4])
		raw = raw[4:]
		if uint32(len(raw)) < n {
			return nil, ErrInvalidHeader
		}
		entry := make([]byte, n)
		copy(entry, raw[:n])
		entries = append(entries, entry)
		raw = raw[n:]
	}
	return entries, nil
}
