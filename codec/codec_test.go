package codec

import (
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/sourcecontextpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestProtoCodecRoundTrip(t *testing.T) {
	reg := NewRegistry()
	c, ok := reg.Lookup(Proto)
	if !ok {
		t.Fatal("proto codec not registered")
	}

	want := durationpb.New(90 * time.Second)
	data, err := c.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got := &durationpb.Duration{}
	if err := c.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !proto.Equal(want, got) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, want)
	}
}

func TestJSONCodecRoundTrip(t *testing.T) {
	reg := NewRegistry()
	c, ok := reg.Lookup(JSON)
	if !ok {
		t.Fatal("json codec not registered")
	}

	want := wrapperspb.String("round trip me")
	data, err := c.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got := &wrapperspb.StringValue{}
	if err := c.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !proto.Equal(want, got) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, want)
	}
}

func TestJSONCodecUsesCamelCaseFieldNames(t *testing.T) {
	reg := NewRegistry()
	c, _ := reg.Lookup(JSON)

	// SourceContext's one field is declared as file_name; its canonical
	// JSON projection is camelCase fileName. The teacher's codec marshaled
	// with UseProtoNames: true and would have emitted file_name here.
	msg := &sourcecontextpb.SourceContext{FileName: "pkg/service.proto"}
	data, err := c.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "fileName") {
		t.Fatalf("expected camelCase %q field in JSON, got %s", "fileName", got)
	}
	if strings.Contains(got, "file_name") {
		t.Fatalf("did not expect snake_case field in JSON, got %s", got)
	}
}

func TestUnknownSubtypeNotFound(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Lookup("text"); ok {
		t.Fatal("text should not be registered by default")
	}
}

func TestNewMessageFactoryProducesUsableMessage(t *testing.T) {
	want := durationpb.New(5 * time.Second)
	f := NewMessageFactory(want.ProtoReflect().Descriptor())
	msg := f.New()
	data, err := proto.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := proto.Unmarshal(data, msg); err != nil {
		t.Fatalf("Unmarshal into factory message: %v", err)
	}
	if !proto.Equal(want, msg) {
		t.Fatalf("factory message mismatch: got %v, want %v", msg, want)
	}
	f.Release(msg)
}
