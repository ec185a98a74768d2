package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
)

// Compressor encodes the columns of stored runs and results
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a new compressor. Levels run from 1 (fastest) to 4 (best).
func NewCompressor(level int) (*Compressor, error) {
	encLevel := zstd.SpeedDefault
	switch level {
	case 1:
		encLevel = zstd.SpeedFastest
	case 2:
		encLevel = zstd.SpeedDefault
	case 3:
		encLevel = zstd.SpeedBetterCompression
	case 4:
		encLevel = zstd.SpeedBestCompression
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// CompressFloats compresses a float64 column using XOR encoding + zstd.
// Slowly varying RTTs and evenly spaced times leave mostly zero bits behind.
func (c *Compressor) CompressFloats(values []float64) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}

	buf := new(bytes.Buffer)
	prevBits := uint64(0)
	for _, v := range values {
		bits := math.Float64bits(v)
		if err := binary.Write(buf, binary.LittleEndian, bits^prevBits); err != nil {
			return nil, err
		}
		prevBits = bits
	}

	return c.encoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len())), nil
}

// DecompressFloats reverses CompressFloats
func (c *Compressor) DecompressFloats(data []byte, count int) ([]float64, error) {
	if count == 0 {
		return []float64{}, nil
	}

	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	if len(decompressed) != 8*count {
		return nil, fmt.Errorf("float column holds %d bytes, want %d", len(decompressed), 8*count)
	}

	buf := bytes.NewReader(decompressed)
	values := make([]float64, count)
	prevBits := uint64(0)
	for i := range values {
		var xorBits uint64
		if err := binary.Read(buf, binary.LittleEndian, &xorBits); err != nil {
			return nil, err
		}
		prevBits ^= xorBits
		values[i] = math.Float64frombits(prevBits)
	}

	return values, nil
}

// CompressBits packs a flag column eight flags per byte, then applies zstd
func (c *Compressor) CompressBits(flags []bool) ([]byte, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	packed := make([]byte, (len(flags)+7)/8)
	for i, f := range flags {
		if f {
			packed[i/8] |= 1 << (i % 8)
		}
	}

	return c.encoder.EncodeAll(packed, make([]byte, 0, len(packed))), nil
}

// DecompressBits reverses CompressBits
func (c *Compressor) DecompressBits(data []byte, count int) ([]bool, error) {
	if count == 0 {
		return []bool{}, nil
	}

	packed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	if len(packed) != (count+7)/8 {
		return nil, fmt.Errorf("flag column holds %d bytes, want %d", len(packed), (count+7)/8)
	}

	flags := make([]bool, count)
	for i := range flags {
		flags[i] = packed[i/8]&(1<<(i%8)) != 0
	}

	return flags, nil
}

// Close closes the compressor resources
func (c *Compressor) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
