package compress

import (
	"bytes"
	"testing"
)

func TestIdentityRoundTrip(t *testing.T) {
	reg := NewRegistry()
	c, ok := reg.Lookup(Identity)
	if !ok {
		t.Fatal("identity not registered")
	}
	data := []byte("some bytes, unchanged")
	compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	decompressed, err := c.Decompress(compressed, 0)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(compressed, data) || !bytes.Equal(decompressed, data) {
		t.Fatal("identity compress/decompress must be bit-identical")
	}
}

func TestGzipRoundTrip(t *testing.T) {
	reg := NewRegistry()
	c, ok := reg.Lookup("gzip")
	if !ok {
		t.Fatal("gzip not registered")
	}
	data := bytes.Repeat([]byte("round trip me please "), 100)
	compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if bytes.Equal(compressed, data) {
		t.Fatal("expected gzip to actually change the bytes")
	}
	decompressed, err := c.Decompress(compressed, 0)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Fatal("gzip round trip mismatch")
	}
}

func TestGzipDecompressSizeLimit(t *testing.T) {
	reg := NewRegistry()
	c, _ := reg.Lookup("gzip")
	data := bytes.Repeat([]byte("x"), 10_000)
	compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if _, err := c.Decompress(compressed, 100); err == nil {
		t.Fatal("expected decompress size-limit error")
	}
}

func TestUnknownEncodingNotFound(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Lookup("br"); ok {
		t.Fatal("br should not be registered by default")
	}
}

func TestIdentityAlwaysImplicit(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Lookup(""); !ok {
		t.Fatal("empty encoding name should resolve to identity")
	}
}
