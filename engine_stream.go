package connectrt

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"google.golang.org/protobuf/proto"

	"github.com/connectrt/connectrt/codec"
	"github.com/connectrt/connectrt/compress"
	"github.com/connectrt/connectrt/envelope"
)

// streamServerConn is the StreamConn a streaming handler (spec §4.7) runs
// against. It reads request envelopes lazily from dec and writes response
// envelopes directly to w, flushing after each Send so HTTP/2 delivers
// frames as they're produced rather than buffering a whole response — this
// is what makes full-duplex bidi streaming work without a second goroutine:
// the handler's own goroutine alternates Receive/Send calls and the
// transport interleaves them.
type streamServerConn struct {
	ctx *RequestContext

	dec           *envelope.Decoder
	reqCodec      codec.Codec
	reqCompressor compress.Compressor

	w             io.Writer
	flusher       http.Flusher
	respCodec     codec.Codec
	respCompressor compress.Compressor

	recvEOS bool
}

func (c *streamServerConn) Receive(msg any) error {
	if c.recvEOS {
		return io.EOF
	}
	if c.ctx.IsCanceled() {
		return NewError(CodeCanceled, "request canceled")
	}

	frame, err := c.dec.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.recvEOS = true
			return io.EOF
		}
		// Mid-frame truncation or oversize payload: spec §4.3 calls the
		// former "internal"; an oversize payload maps to resource_exhausted
		// the same way the unary size-limit check does.
		if errors.Is(err, envelope.ErrTruncated) {
			return NewErrorf(CodeInternal, "truncated stream frame: %v", err)
		}
		return NewErrorf(CodeResourceExhausted, "%v", err)
	}
	if frame.EndStream() {
		c.recvEOS = true
		return io.EOF
	}

	payload := frame.Payload
	if frame.Compressed() {
		if c.reqCompressor == nil {
			return NewError(CodeUnimplemented, "stream uses an unsupported compression")
		}
		payload, err = c.reqCompressor.Decompress(payload, 0)
		if err != nil {
			return NewErrorf(CodeResourceExhausted, "decompress frame: %v", err)
		}
	}

	pm, ok := msg.(proto.Message)
	if !ok {
		return NewErrorf(CodeInternal, "connectrt: Receive expects a proto.Message, got %T", msg)
	}
	if err := c.reqCodec.Unmarshal(payload, pm); err != nil {
		return NewErrorf(CodeInvalidArgument, "decode frame: %v", err)
	}
	return nil
}

func (c *streamServerConn) Send(msg any) error {
	if c.ctx.IsCanceled() {
		return NewError(CodeCanceled, "request canceled")
	}
	pm, ok := msg.(proto.Message)
	if !ok {
		return NewErrorf(CodeInternal, "connectrt: Send expects a proto.Message, got %T", msg)
	}
	data, err := c.respCodec.Marshal(pm)
	if err != nil {
		return NewErrorf(CodeInternal, "encode frame: %v", err)
	}

	var flags byte
	if c.respCompressor != nil && c.respCompressor.Name() != compress.Identity {
		compressed, err := c.respCompressor.Compress(data)
		if err == nil {
			data = compressed
			flags |= envelope.FlagCompressed
		}
	}

	if err := envelope.Encode(c.w, flags, data); err != nil {
		return NewErrorf(CodeUnavailable, "write frame: %v", err)
	}
	if c.flusher != nil {
		c.flusher.Flush()
	}
	return nil
}

// writeEndOfStream writes the terminal envelope: {} on success, or a
// structured error payload. It is always uncompressed and always the last
// thing written on the response body (spec §4.3, §4.7).
func writeEndOfStream(w io.Writer, flusher http.Flusher, handlerErr error, trailer *Headers) error {
	payload := endOfStreamPayload(handlerErr, trailer)
	if err := envelope.Encode(w, envelope.FlagEndStream, payload); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

func endOfStreamPayload(handlerErr error, trailer *Headers) []byte {
	type eosBody struct {
		Error   *Error            `json:"error,omitempty"`
		Trailer map[string][]string `json:"metadata,omitempty"`
	}
	var body eosBody
	if handlerErr != nil {
		body.Error = NewErrorFromGo(handlerErr)
	}
	if trailer != nil {
		names := trailer.Names()
		if len(names) > 0 {
			body.Trailer = make(map[string][]string, len(names))
			for _, name := range names {
				body.Trailer[name] = trailer.Values(name)
			}
		}
	}
	data, err := json.Marshal(body)
	if err != nil {
		// json.Marshal on this fixed shape cannot fail in practice; fall
		// back to an empty success object rather than propagate.
		return []byte("{}")
	}
	return data
}
