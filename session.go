package phos

import "fmt"

// EmbeddedProject is the text-safe form of a project, suitable for storing
// inside a host document such as a session state file. Payload holds the
// text-encoded compressed document and RawSize its uncompressed length.
type EmbeddedProject struct {
	Payload string `json:"project_payload"`
	RawSize uint64 `json:"project_raw_size"`
}

// EncodeEmbedded serializes st into its embeddable text form.
func (c *Container) EncodeEmbedded(st *ProjectState) (EmbeddedProject, error) {
	raw, err := c.enc.Marshal(projectToDocument(st))
	if err != nil {
		return EmbeddedProject{}, fmt.Errorf("%w: encode: %v", ErrFormat, err)
	}
	return EmbeddedProject{
		Payload: c.text.Encode(c.codec.Compress(raw)),
		RawSize: uint64(len(raw)),
	}, nil
}

// DecodeEmbedded reverses EncodeEmbedded. An empty payload or a zero raw
// size marks an absent project and reports ErrFormat.
func (c *Container) DecodeEmbedded(e EmbeddedProject) (*ProjectState, error) {
	if e.Payload == "" || e.RawSize == 0 {
		return nil, fmt.Errorf("%w: embedded project absent", ErrFormat)
	}
	compressed, err := c.text.Decode(e.Payload)
	if err != nil {
		return nil, err
	}
	raw, err := c.codec.DecompressKnownSize(compressed, e.RawSize)
	if err != nil {
		return nil, err
	}
	return c.decodeDocument(raw)
}
