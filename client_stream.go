package connectrt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/protobuf/proto"

	"github.com/connectrt/connectrt/codec"
	"github.com/connectrt/connectrt/compress"
	"github.com/connectrt/connectrt/envelope"
)

// ClientConn is the streaming handle a generated client-side stub drives:
// Send pushes a request envelope, Receive reads a response envelope, and
// CloseSend signals no more requests (spec §4.10's streaming symmetry with
// the server engine in engine_stream.go).
type ClientConn struct {
	ctx context.Context

	w        io.WriteCloser
	reqCodec codec.Codec
	sendComp compress.Compressor

	// opened is closed once the HTTP round trip's response headers have
	// arrived (or the transport failed), signaling openErr/dec/respCodec
	// are safe to read. A streaming call's request goes out on its own
	// goroutine because http.Client.Do doesn't return until the transport
	// has a response, which for a server- or bidi-stream can be after the
	// client has already sent (and possibly closed) its own side.
	opened chan struct{}
	openErr error

	resp       *http.Response
	dec        *envelope.Decoder
	respCodec  codec.Codec
	respComp   compress.Compressor
	eosErr     error
	eosReached bool
}

// Send marshals and writes one request envelope.
func (c *ClientConn) Send(msg proto.Message) error {
	data, err := c.reqCodec.Marshal(msg)
	if err != nil {
		return NewErrorf(CodeInternal, "encode frame: %v", err)
	}
	var flags byte
	if c.sendComp != nil && c.sendComp.Name() != compress.Identity {
		compressed, err := c.sendComp.Compress(data)
		if err == nil {
			data = compressed
			flags |= envelope.FlagCompressed
		}
	}
	if err := envelope.Encode(c.w, flags, data); err != nil {
		return NewErrorf(CodeUnavailable, "write frame: %v", err)
	}
	return nil
}

// CloseSend signals the end of the request stream. For a half-duplex
// client/bidi call over HTTP this closes the request body, which most
// transports treat as a half-close (spec §4.7's client_stream framing).
func (c *ClientConn) CloseSend() error {
	return c.w.Close()
}

// Receive reads and decodes the next response envelope. When the decoder
// reaches the terminal EOS envelope it returns the error that envelope
// carries, or io.EOF if it carries none, and every later call returns the
// same result (spec §4.10: "error raises on next iteration past the last
// good element").
func (c *ClientConn) Receive(msg proto.Message) error {
	if c.eosReached {
		if c.eosErr != nil {
			return c.eosErr
		}
		return io.EOF
	}
	<-c.opened
	if c.openErr != nil {
		return c.openErr
	}
	if c.dec == nil {
		return fmt.Errorf("connectrt: response stream not yet opened")
	}

	frame, err := c.dec.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.eosReached = true
			return io.EOF
		}
		return NewErrorf(CodeUnavailable, "read frame: %v", err)
	}
	if frame.EndStream() {
		c.eosReached = true
		c.eosErr = parseEndOfStream(frame.Payload)
		if c.eosErr != nil {
			return c.eosErr
		}
		return io.EOF
	}

	payload := frame.Payload
	if frame.Compressed() {
		if c.respComp == nil {
			return NewError(CodeUnimplemented, "stream uses an unsupported compression")
		}
		payload, err = c.respComp.Decompress(payload, 0)
		if err != nil {
			return NewErrorf(CodeResourceExhausted, "decompress frame: %v", err)
		}
	}
	if err := c.respCodec.Unmarshal(payload, msg); err != nil {
		return NewErrorf(CodeInvalidArgument, "decode frame: %v", err)
	}
	return nil
}

// Close releases the underlying HTTP response body.
func (c *ClientConn) Close() error {
	if c.resp != nil {
		return c.resp.Body.Close()
	}
	return nil
}

func parseEndOfStream(payload []byte) error {
	var body struct {
		Error *Error `json:"error"`
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return NewErrorf(CodeInternal, "decode end-of-stream envelope: %v", err)
	}
	if body.Error == nil {
		return nil
	}
	return body.Error
}
