package connectrt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/connectrt/connectrt/codec"
	"github.com/connectrt/connectrt/envelope"
)

func newTestRequestContext() *RequestContext {
	return NewRequestContext(context.Background(), MethodSpec{}, NewHeaders(), Peer{})
}

func TestStreamServerConnReceiveThenEOS(t *testing.T) {
	codecs := codec.NewRegistry()
	protoCodec, _ := codecs.Lookup(codec.Proto)

	var wire bytes.Buffer
	payload, err := protoCodec.Marshal(wrapperspb.String("hi"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := envelope.Encode(&wire, 0, payload); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	conn := &streamServerConn{
		ctx:      newTestRequestContext(),
		dec:      envelope.NewDecoder(&wire, 0),
		reqCodec: protoCodec,
	}

	got := &wrapperspb.StringValue{}
	if err := conn.Receive(got); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.Value != "hi" {
		t.Fatalf("got %q, want %q", got.Value, "hi")
	}

	if err := conn.Receive(got); err != io.EOF {
		t.Fatalf("second Receive = %v, want io.EOF", err)
	}
}

func TestStreamServerConnSendWritesEnvelope(t *testing.T) {
	codecs := codec.NewRegistry()
	protoCodec, _ := codecs.Lookup(codec.Proto)

	var out bytes.Buffer
	conn := &streamServerConn{
		ctx:       newTestRequestContext(),
		respCodec: protoCodec,
	}
	conn.w = &out

	if err := conn.Send(wrapperspb.String("reply")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	dec := envelope.NewDecoder(&out, 0)
	frame, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if frame.Compressed() {
		t.Fatal("expected uncompressed frame without a negotiated compressor")
	}
	got := &wrapperspb.StringValue{}
	if err := protoCodec.Unmarshal(frame.Payload, got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Value != "reply" {
		t.Fatalf("got %q, want %q", got.Value, "reply")
	}
}

func TestStreamServerConnReceiveRejectsUnsupportedCompression(t *testing.T) {
	codecs := codec.NewRegistry()
	protoCodec, _ := codecs.Lookup(codec.Proto)

	var wire bytes.Buffer
	if err := envelope.Encode(&wire, envelope.FlagCompressed, []byte("doesn't matter")); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	conn := &streamServerConn{
		ctx:      newTestRequestContext(),
		dec:      envelope.NewDecoder(&wire, 0),
		reqCodec: protoCodec,
	}
	got := &wrapperspb.StringValue{}
	err := conn.Receive(got)
	if err == nil {
		t.Fatal("expected error for compressed frame with no negotiated compressor")
	}
	if NewErrorFromGo(err).Code() != CodeUnimplemented {
		t.Fatalf("code = %v, want unimplemented", NewErrorFromGo(err).Code())
	}
}

func TestWriteEndOfStreamSuccess(t *testing.T) {
	var out bytes.Buffer
	if err := writeEndOfStream(&out, nil, nil, nil); err != nil {
		t.Fatalf("writeEndOfStream: %v", err)
	}
	dec := envelope.NewDecoder(&out, 0)
	frame, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !frame.EndStream() {
		t.Fatal("expected end-stream flag")
	}
	var body map[string]any
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, hasErr := body["error"]; hasErr {
		t.Fatal("expected no error field on success")
	}
}

func TestWriteEndOfStreamWithError(t *testing.T) {
	var out bytes.Buffer
	handlerErr := NewError(CodeNotFound, "missing")
	if err := writeEndOfStream(&out, nil, handlerErr, nil); err != nil {
		t.Fatalf("writeEndOfStream: %v", err)
	}
	dec := envelope.NewDecoder(&out, 0)
	frame, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(frame.Payload, &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if body.Error.Code != "not_found" {
		t.Fatalf("got code %q, want not_found", body.Error.Code)
	}
}
