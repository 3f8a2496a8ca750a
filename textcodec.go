package phos

import (
	"fmt"
	"strings"
)

// textAlphabet is the 64-symbol alphabet of the text transform: 4 text
// characters per 3 input bytes, '=' padding the final group.
const textAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// TextCodec translates binary container payloads to and from a text-safe
// form, for embedding a project inside a host text document. The reverse
// lookup table is built once at construction and owned by the codec rather
// than living in hidden package state.
type TextCodec struct {
	reverse [256]int8 // alphabet index, -1 for bytes outside the alphabet
}

// NewTextCodec builds a codec with its lookup table populated.
func NewTextCodec() *TextCodec {
	c := &TextCodec{}
	for i := range c.reverse {
		c.reverse[i] = -1
	}
	for i := 0; i < len(textAlphabet); i++ {
		c.reverse[textAlphabet[i]] = int8(i)
	}
	return c
}

// Encode returns the text form of data.
func (c *TextCodec) Encode(data []byte) string {
	var b strings.Builder
	b.Grow((len(data) + 2) / 3 * 4)
	for i := 0; i < len(data); i += 3 {
		var b1, b2 byte
		if i+1 < len(data) {
			b1 = data[i+1]
		}
		if i+2 < len(data) {
			b2 = data[i+2]
		}
		triple := uint32(data[i])<<16 | uint32(b1)<<8 | uint32(b2)
		b.WriteByte(textAlphabet[triple>>18&0x3F])
		b.WriteByte(textAlphabet[triple>>12&0x3F])
		if i+1 < len(data) {
			b.WriteByte(textAlphabet[triple>>6&0x3F])
		} else {
			b.WriteByte('=')
		}
		if i+2 < len(data) {
			b.WriteByte(textAlphabet[triple&0x3F])
		} else {
			b.WriteByte('=')
		}
	}
	return b.String()
}

// Decode reverses Encode. Insignificant whitespace (space, tab, CR, LF) is
// skipped first; the remaining input must be a multiple of 4 characters,
// every character must come from the alphabet, and '=' may appear only in
// the final two positions of the final group; a third-position '=' without
// a fourth-position '=' is rejected. Violations report ErrFormat. Persisted
// session data is untrusted, so tolerant decoding that would mask
// corruption is deliberately not offered.
func (c *TextCodec) Decode(s string) ([]byte, error) {
	compact := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		}
		compact = append(compact, s[i])
	}
	if len(compact)%4 != 0 {
		return nil, fmt.Errorf("%w: text payload length %d is not a multiple of 4",
			ErrFormat, len(compact))
	}

	out := make([]byte, 0, len(compact)/4*3)
	for i := 0; i < len(compact); i += 4 {
		q := compact[i : i+4]
		final := i+4 == len(compact)
		pad2 := q[2] == '='
		pad3 := q[3] == '='
		if q[0] == '=' || q[1] == '=' {
			return nil, fmt.Errorf("%w: '=' outside the final two positions of a group", ErrFormat)
		}
		if (pad2 || pad3) && !final {
			return nil, fmt.Errorf("%w: '=' outside the final group", ErrFormat)
		}
		if pad2 && !pad3 {
			return nil, fmt.Errorf("%w: '=' in the third position requires one in the fourth", ErrFormat)
		}

		v0 := c.reverse[q[0]]
		v1 := c.reverse[q[1]]
		var v2, v3 int8
		if !pad2 {
			v2 = c.reverse[q[2]]
		}
		if !pad3 {
			v3 = c.reverse[q[3]]
		}
		if v0 < 0 || v1 < 0 || v2 < 0 || v3 < 0 {
			return nil, fmt.Errorf("%w: character outside the encoding alphabet", ErrFormat)
		}

		triple := uint32(v0)<<18 | uint32(v1)<<12 | uint32(v2)<<6 | uint32(v3)
		out = append(out, byte(triple>>16))
		if !pad2 {
			out = append(out, byte(triple>>8))
		}
		if !pad3 {
			out = append(out, byte(triple))
		}
	}
	return out, nil
}
