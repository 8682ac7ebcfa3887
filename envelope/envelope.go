// Package envelope implements the 5-byte-prefixed frame format Connect uses
// for streaming request and response bodies (spec §3, §4.3).
package envelope

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// HeaderSize is the fixed size, in bytes, of an envelope's flags+length
	// prefix: one flag byte followed by a 4-byte big-endian length.
	HeaderSize = 5

	// FlagCompressed marks a payload as compressed with the stream's agreed
	// Content-Encoding.
	FlagCompressed byte = 0b01
	// FlagEndStream marks the terminal envelope of a stream. Its payload is
	// a JSON object: {} on success, or a structured error.
	FlagEndStream byte = 0b10
)

// Encode writes one envelope — header then payload — to w.
func Encode(w io.Writer, flags byte, payload []byte) error {
	var header [HeaderSize]byte
	header[0] = flags
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write envelope header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write envelope payload: %w", err)
	}
	return nil
}

// Frame is one decoded envelope.
type Frame struct {
	Flags   byte
	Payload []byte
}

// Compressed reports whether FlagCompressed is set.
func (f Frame) Compressed() bool { return f.Flags&FlagCompressed != 0 }

// EndStream reports whether FlagEndStream is set.
func (f Frame) EndStream() bool { return f.Flags&FlagEndStream != 0 }

// decodeState is the Decoder's position within the current frame.
type decodeState int

const (
	stateAwaitHeader decodeState = iota
	stateAwaitPayload
)

// Decoder is a resumable state machine that turns a byte stream into a
// sequence of Frames. It reads exactly as many bytes as the current frame
// needs and yields the frame as soon as it is complete — it never buffers
// more than one frame at a time, so it's safe to use directly against a
// streaming HTTP body.
type Decoder struct {
	r       io.Reader
	maxSize int64 // 0 means unbounded

	state       decodeState
	header      [HeaderSize]byte
	flags       byte
	wantPayload int
}

// NewDecoder returns a Decoder reading frames from r. maxSize, if positive,
// bounds the payload length of any single frame; a longer declared length
// is reported as an error before any payload bytes are read.
func NewDecoder(r io.Reader, maxSize int64) *Decoder {
	return &Decoder{r: r, maxSize: maxSize}
}

// sentinel errors distinguishing "clean end of input" from "input ended
// mid-frame", per spec §4.3 ("internal if EOF occurs mid-frame").
var (
	// ErrTruncated indicates the underlying reader hit EOF while a frame was
	// only partially read.
	ErrTruncated = fmt.Errorf("envelope: truncated frame")
)

// Next reads and returns the next frame. It returns io.EOF (unwrapped) only
// when the stream ends cleanly between frames. Any other error, including
// ErrTruncated and oversize-payload errors, is terminal: callers must not
// call Next again on this Decoder.
func (d *Decoder) Next() (Frame, error) {
	if err := d.readHeader(); err != nil {
		return Frame{}, err
	}
	payload, err := d.readPayload()
	if err != nil {
		return Frame{}, err
	}
	return Frame{Flags: d.flags, Payload: payload}, nil
}

func (d *Decoder) readHeader() error {
	n, err := io.ReadFull(d.r, d.header[:])
	if err == io.EOF && n == 0 {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("%w: reading header: %v", ErrTruncated, err)
	}
	d.flags = d.header[0]
	length := binary.BigEndian.Uint32(d.header[1:])
	if d.maxSize > 0 && int64(length) > d.maxSize {
		return fmt.Errorf("envelope payload of %d bytes exceeds max of %d bytes", length, d.maxSize)
	}
	d.wantPayload = int(length)
	d.state = stateAwaitPayload
	return nil
}

func (d *Decoder) readPayload() ([]byte, error) {
	if d.wantPayload == 0 {
		d.state = stateAwaitHeader
		return nil, nil
	}
	buf := make([]byte, d.wantPayload)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, fmt.Errorf("%w: reading payload: %v", ErrTruncated, err)
	}
	d.state = stateAwaitHeader
	return buf, nil
}
