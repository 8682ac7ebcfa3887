// Package bufpool provides a pool of [bytes.Buffer] used by the gzip
// compressor in package compress to cut down on per-message allocations.
package bufpool

import (
	"bytes"
	"sync"
)

const (
	initialSize   = 512
	maxRecyceSize = 8 << 20 // buffers bigger than this aren't worth holding onto
)

// Pool is a sync.Pool of *bytes.Buffer with a size-aware Put.
type Pool struct {
	pool sync.Pool
}

// New returns a ready-to-use Pool.
func New() *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return bytes.NewBuffer(make([]byte, 0, initialSize))
			},
		},
	}
}

// Get returns a reset, empty buffer.
func (p *Pool) Get() *bytes.Buffer {
	buf, _ := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to the pool, unless it has grown unreasonably large.
func (p *Pool) Put(buf *bytes.Buffer) {
	if buf.Cap() > maxRecyceSize {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}
