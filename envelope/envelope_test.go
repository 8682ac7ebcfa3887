package envelope

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		flags   byte
		payload []byte
	}{
		{"empty data frame", 0, nil},
		{"data frame", 0, []byte("hello")},
		{"compressed frame", FlagCompressed, []byte("squeeze me")},
		{"end stream empty", FlagEndStream, []byte("{}")},
		{"compressed end stream", FlagCompressed | FlagEndStream, []byte("{}")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, tt.flags, tt.payload); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			dec := NewDecoder(&buf, 0)
			frame, err := dec.Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if frame.Flags != tt.flags {
				t.Errorf("flags = %b, want %b", frame.Flags, tt.flags)
			}
			if !bytes.Equal(frame.Payload, tt.payload) && !(len(frame.Payload) == 0 && len(tt.payload) == 0) {
				t.Errorf("payload = %q, want %q", frame.Payload, tt.payload)
			}
			if _, err := dec.Next(); !errors.Is(err, io.EOF) {
				t.Errorf("second Next() = %v, want io.EOF", err)
			}
		})
	}
}

func TestDecoderOversizePayload(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, 0, make([]byte, 100)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	dec := NewDecoder(&buf, 10)
	if _, err := dec.Next(); err == nil {
		t.Fatal("expected oversize payload error, got nil")
	}
}

func TestDecoderTruncatedMidFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, 0, []byte("hello world")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:HeaderSize+3])
	dec := NewDecoder(truncated, 0)
	_, err := dec.Next()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecoderCleanEOFBetweenFrames(t *testing.T) {
	dec := NewDecoder(bytes.NewReader(nil), 0)
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestMultipleFramesSequential(t *testing.T) {
	var buf bytes.Buffer
	messages := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, m := range messages {
		if err := Encode(&buf, 0, m); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	if err := Encode(&buf, FlagEndStream, []byte("{}")); err != nil {
		t.Fatalf("Encode end-of-stream: %v", err)
	}

	dec := NewDecoder(&buf, 0)
	for _, want := range messages {
		frame, err := dec.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !bytes.Equal(frame.Payload, want) {
			t.Errorf("payload = %q, want %q", frame.Payload, want)
		}
		if frame.EndStream() {
			t.Errorf("unexpected end-of-stream flag on data frame")
		}
	}
	last, err := dec.Next()
	if err != nil {
		t.Fatalf("Next (end-of-stream): %v", err)
	}
	if !last.EndStream() {
		t.Error("expected end-of-stream flag")
	}
}
