// Package compress implements the pluggable compression registry Connect
// negotiates Content-Encoding/Accept-Encoding against (spec §4.2).
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"sync"

	"github.com/connectrt/connectrt/internal/bufpool"
)

// Identity is the always-available no-op encoding name.
const Identity = "identity"

// Compressor compresses and decompresses whole message payloads. identity is
// always an implicit member of any registry; gzip is the other
// spec-required member (spec §3, §6).
type Compressor interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	// Decompress decompresses data. If maxSize is positive, decompression
	// stops with an error once more than maxSize bytes have been produced,
	// guarding against decompression bombs.
	Decompress(data []byte, maxSize int64) ([]byte, error)
}

// Registry maps an encoding name to its Compressor. It is not a package
// global: spec §9 calls out codec/compression registries as the place
// mutability should be modeled explicitly rather than through global state,
// so each [connectrt.Registry] (server) and [connectrt.Client] owns its own
// compress.Registry.
type Registry struct {
	mu          sync.RWMutex
	compressors map[string]Compressor
}

// NewRegistry returns a Registry preloaded with identity and gzip.
func NewRegistry() *Registry {
	r := &Registry{compressors: make(map[string]Compressor)}
	r.Register(identityCompressor{})
	r.Register(newGzipCompressor())
	return r
}

// Register adds or replaces the compressor for c.Name(). Registering
// "identity" is a no-op: identity is always the built-in no-op compressor.
func (r *Registry) Register(c Compressor) {
	if c.Name() == Identity {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compressors[c.Name()] = c
}

// Lookup returns the compressor registered for name. "identity" (and "")
// always resolves to the no-op compressor.
func (r *Registry) Lookup(name string) (Compressor, bool) {
	if name == "" || name == Identity {
		return identityCompressor{}, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.compressors[name]
	return c, ok
}

// Names returns the registered non-identity encoding names, for building an
// Accept-Encoding header.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.compressors))
	for name := range r.compressors {
		names = append(names, name)
	}
	return names
}

type identityCompressor struct{}

func (identityCompressor) Name() string                 { return Identity }
func (identityCompressor) Compress(d []byte) ([]byte, error) { return d, nil }
func (identityCompressor) Decompress(d []byte, _ int64) ([]byte, error) { return d, nil }

// gzipCompressor pools gzip readers/writers the way the teacher's
// compression layer does, since allocating a fresh *gzip.Writer per message
// shows up under profiling on hot paths.
type gzipCompressor struct {
	writers sync.Pool
	readers sync.Pool
	bufs    *bufpool.Pool
}

func newGzipCompressor() *gzipCompressor {
	return &gzipCompressor{
		writers: sync.Pool{New: func() any { return gzip.NewWriter(nil) }},
		readers: sync.Pool{New: func() any { return new(gzip.Reader) }},
		bufs:    bufpool.New(),
	}
}

func (g *gzipCompressor) Name() string { return "gzip" }

func (g *gzipCompressor) Compress(data []byte) ([]byte, error) {
	buf := g.bufs.Get()
	defer g.bufs.Put(buf)

	gz, _ := g.writers.Get().(*gzip.Writer)
	gz.Reset(buf)
	defer g.writers.Put(gz)

	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: close: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func (g *gzipCompressor) Decompress(data []byte, maxSize int64) ([]byte, error) {
	gz, _ := g.readers.Get().(*gzip.Reader)
	defer g.readers.Put(gz)

	if err := gz.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("gzip decompress: reset: %w", err)
	}

	buf := g.bufs.Get()
	defer g.bufs.Put(buf)

	var reader io.Reader = gz
	if maxSize > 0 {
		reader = io.LimitReader(gz, maxSize+1)
	}
	if _, err := io.Copy(buf, reader); err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	if maxSize > 0 && int64(buf.Len()) > maxSize {
		return nil, fmt.Errorf("decompressed payload exceeds %d bytes", maxSize)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
