package phos

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Container header layout: 4 magic bytes, a little-endian uint32 format
// version, and a little-endian uint64 uncompressed payload length, followed
// by the compressed document bytes.
const (
	containerVersion    = 1
	containerHeaderSize = 16
)

var containerMagic = [4]byte{'U', '8', 'P', 'Z'}

// Container marshals project state to the on-disk container format and back.
// Files that do not start with the container magic are treated as legacy
// documents: raw serialized bytes with no header and no compression.
type Container struct {
	codec *Codec
	text  *TextCodec
	enc   cbor.EncMode
	dec   cbor.DecMode
}

// NewContainer builds a container around codec. Encoding is deterministic,
// so identical project states always produce identical bytes.
func NewContainer(codec *Codec) (*Container, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		MaxArrayElements: 1 << 26,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &Container{
		codec: codec,
		text:  NewTextCodec(),
		enc:   enc,
		dec:   dec,
	}, nil
}

// Marshal serializes st into a headered, compressed container.
func (c *Container) Marshal(st *ProjectState) ([]byte, error) {
	raw, err := c.enc.Marshal(projectToDocument(st))
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrFormat, err)
	}
	compressed := c.codec.Compress(raw)

	out := make([]byte, 0, containerHeaderSize+len(compressed))
	out = append(out, containerMagic[:]...)
	out = binary.LittleEndian.AppendUint32(out, containerVersion)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(raw)))
	out = append(out, compressed...)
	return out, nil
}

// Unmarshal parses a container or a legacy headerless document. Inputs
// starting with the container magic must carry a complete header and a
// supported version; everything else is decoded as a raw legacy document.
func (c *Container) Unmarshal(b []byte) (*ProjectState, error) {
	if len(b) >= len(containerMagic) && [4]byte(b[:4]) == containerMagic {
		if len(b) < containerHeaderSize {
			return nil, fmt.Errorf("%w: truncated container header, %d bytes", ErrFormat, len(b))
		}
		version := binary.LittleEndian.Uint32(b[4:8])
		if version != containerVersion {
			return nil, fmt.Errorf("%w: unsupported container version %d", ErrFormat, version)
		}
		rawSize := binary.LittleEndian.Uint64(b[8:16])
		raw, err := c.codec.DecompressKnownSize(b[containerHeaderSize:], rawSize)
		if err != nil {
			return nil, err
		}
		return c.decodeDocument(raw)
	}
	return c.decodeDocument(b)
}

func (c *Container) decodeDocument(raw []byte) (*ProjectState, error) {
	var doc map[string]any
	if err := c.dec.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFormat, err)
	}
	return projectFromDocument(doc)
}

// SaveFile writes st to path atomically.
func (c *Container) SaveFile(path string, st *ProjectState) error {
	b, err := c.Marshal(st)
	if err != nil {
		return err
	}
	return WriteAllAtomic(path, b)
}

// LoadFile reads and parses the container at path.
func (c *Container) LoadFile(path string) (*ProjectState, error) {
	b, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	return c.Unmarshal(b)
}

// ContainerInfo describes a container's envelope without decoding its
// document.
type ContainerInfo struct {
	// Legacy is true for headerless documents.
	Legacy bool

	// Version is the container format version; zero for legacy documents.
	Version uint32

	// RawSize is the declared uncompressed length; zero for legacy documents.
	RawSize uint64

	// CompressedSize is the payload length after the header, or the whole
	// input length for legacy documents.
	CompressedSize int
}

// ReadContainerInfo inspects the envelope of b.
func ReadContainerInfo(b []byte) (ContainerInfo, error) {
	if len(b) >= len(containerMagic) && [4]byte(b[:4]) == containerMagic {
		if len(b) < containerHeaderSize {
			return ContainerInfo{}, fmt.Errorf("%w: truncated container header, %d bytes", ErrFormat, len(b))
		}
		return ContainerInfo{
			Version:        binary.LittleEndian.Uint32(b[4:8]),
			RawSize:        binary.LittleEndian.Uint64(b[8:16]),
			CompressedSize: len(b) - containerHeaderSize,
		}, nil
	}
	return ContainerInfo{Legacy: true, CompressedSize: len(b)}, nil
}
