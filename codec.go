package phos

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// DefaultMaxDecompressedSize caps the uncompressed length a container may
// declare, independent of the declared value itself, so a corrupted or
// hostile header can never trigger an unbounded allocation. 1 GiB.
const DefaultMaxDecompressedSize = 1 << 30

// CodecOptions configures a Codec.
type CodecOptions struct {
	// Level selects the compression level. Zero means zstd.SpeedDefault.
	Level zstd.EncoderLevel

	// MaxDecompressedSize overrides the declared-size cap. Zero means
	// DefaultMaxDecompressedSize.
	MaxDecompressedSize uint64
}

// Codec compresses and decompresses container payloads. A Codec owns its
// encoder and decoder pair; construct one per process and share it. All
// methods are safe for concurrent use.
type Codec struct {
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	maxSize uint64
}

// NewCodec builds a codec from opts.
func NewCodec(opts CodecOptions) (*Codec, error) {
	level := opts.Level
	if level == 0 {
		level = zstd.SpeedDefault
	}
	maxSize := opts.MaxDecompressedSize
	if maxSize == 0 {
		maxSize = DefaultMaxDecompressedSize
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxSize))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	return &Codec{enc: enc, dec: dec, maxSize: maxSize}, nil
}

// Close releases the codec's encoder and decoder resources.
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}

// Compress returns a self-delimiting compressed frame for b. The frame does
// not record the original length; callers that need it must carry it
// out-of-band.
func (c *Codec) Compress(b []byte) []byte {
	return c.enc.EncodeAll(b, nil)
}

// DecompressKnownSize decompresses b, which must expand to exactly declared
// bytes. The declared size is checked against the codec's cap before any
// allocation happens; a declared size over the cap, or a produced length
// that differs from the declared one, reports ErrCorruption. A decode
// failure inside the codec reports ErrCompression.
func (c *Codec) DecompressKnownSize(b []byte, declared uint64) ([]byte, error) {
	if declared > c.maxSize {
		return nil, fmt.Errorf("%w: declared uncompressed size %d exceeds the %d byte cap",
			ErrCorruption, declared, c.maxSize)
	}
	out, err := c.dec.DecodeAll(b, make([]byte, 0, declared))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if uint64(len(out)) != declared {
		return nil, fmt.Errorf("%w: decompressed to %d bytes, expected %d",
			ErrCorruption, len(out), declared)
	}
	return out, nil
}
