package connectrt

import (
	"io"

	"google.golang.org/protobuf/proto"

	"github.com/connectrt/connectrt/codec"
	"github.com/connectrt/connectrt/compress"
)

// unaryServerConn is the StreamConn a unary handler (spec §4.6) runs
// against: exactly one Receive, exactly one Send.
type unaryServerConn struct {
	codec codec.Codec
	body  []byte // already decompressed

	received bool
	respMsg  proto.Message
}

func (c *unaryServerConn) Receive(msg any) error {
	if c.received {
		return io.EOF
	}
	c.received = true
	pm, ok := msg.(proto.Message)
	if !ok {
		return NewErrorf(CodeInternal, "connectrt: Receive expects a proto.Message, got %T", msg)
	}
	if err := c.codec.Unmarshal(c.body, pm); err != nil {
		return NewErrorf(CodeInvalidArgument, "decode request: %v", err)
	}
	return nil
}

func (c *unaryServerConn) Send(msg any) error {
	pm, ok := msg.(proto.Message)
	if !ok {
		return NewErrorf(CodeInternal, "connectrt: Send expects a proto.Message, got %T", msg)
	}
	c.respMsg = pm
	return nil
}

// encodeUnaryResponse marshals the response message the handler sent,
// compressing it when compressor is non-identity (spec §4.6: "compressed
// if an acceptable encoding exists and the server chooses to compress").
// This implementation always compresses when a non-identity compressor was
// negotiated — a fixed, simple policy rather than a size threshold, noted
// as an Open Question resolution in DESIGN.md.
func encodeUnaryResponse(c codec.Codec, compressor compress.Compressor, msg proto.Message) (data []byte, compressed bool, err error) {
	data, err = c.Marshal(msg)
	if err != nil {
		return nil, false, err
	}
	if compressor == nil || compressor.Name() == compress.Identity {
		return data, false, nil
	}
	out, err := compressor.Compress(data)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
