package phos

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestTextCodecKnownVectors(t *testing.T) {
	c := NewTextCodec()
	vectors := []struct {
		in  string
		out string
	}{
		{"", ""},
		{"f", "Zg=="},
		{"fo", "Zm8="},
		{"foo", "Zm9v"},
		{"foob", "Zm9vYg=="},
		{"fooba", "Zm9vYmE="},
		{"foobar", "Zm9vYmFy"},
	}
	for _, v := range vectors {
		got := c.Encode([]byte(v.in))
		if got != v.out {
			t.Errorf("Encode(%q) = %q, want %q", v.in, got, v.out)
		}
		back, err := c.Decode(v.out)
		if err != nil {
			t.Errorf("Decode(%q) failed: %v", v.out, err)
			continue
		}
		if string(back) != v.in {
			t.Errorf("Decode(%q) = %q, want %q", v.out, back, v.in)
		}
	}
}

func TestTextCodecRoundTrip(t *testing.T) {
	c := NewTextCodec()
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{0, 1, 2, 3, 4, 5, 100, 257, 4096, 10000} {
		data := make([]byte, n)
		rng.Read(data)
		back, err := c.Decode(c.Encode(data))
		if err != nil {
			t.Fatalf("round trip of %d bytes failed: %v", n, err)
		}
		if !bytes.Equal(back, data) {
			t.Fatalf("round trip of %d bytes mismatched", n)
		}
	}
}

func TestTextCodecDecodeSkipsWhitespace(t *testing.T) {
	c := NewTextCodec()
	back, err := c.Decode("Zm9v\r\n  Ym\tFy\n")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if string(back) != "foobar" {
		t.Fatalf("Decode = %q, want %q", back, "foobar")
	}
}

func TestTextCodecDecodeRejectsMalformed(t *testing.T) {
	c := NewTextCodec()
	cases := []struct {
		name string
		in   string
	}{
		{"length not multiple of 4", "Zm9"},
		{"character outside alphabet", "Zm9!"},
		{"padding in first position", "=m9v"},
		{"padding in second position", "Z=9v"},
		{"third-position padding without fourth", "Zg=v"},
		{"padding before final group", "Zg==Zm9v"},
	}
	for _, tc := range cases {
		_, err := c.Decode(tc.in)
		if !errors.Is(err, ErrFormat) {
			t.Errorf("%s: Decode(%q) = %v, want ErrFormat", tc.name, tc.in, err)
		}
	}
}
