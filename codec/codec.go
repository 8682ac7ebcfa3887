// Package codec implements the pluggable message serialization Connect
// negotiates via Content-Type: a "proto" binary codec and a "json" codec,
// both operating on proto.Message values (spec §3, §4.1, §6).
package codec

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Proto and JSON are the two spec-required subtype names, as they appear in
// a Content-Type like "application/connect+proto" or "application/json".
const (
	Proto = "proto"
	JSON  = "json"
)

// Codec marshals and unmarshals proto.Message values for one wire subtype.
type Codec interface {
	Name() string
	Marshal(m proto.Message) ([]byte, error)
	Unmarshal(data []byte, m proto.Message) error
}

// Registry maps a subtype name to its Codec. Like compress.Registry, it is
// instance-scoped rather than a package global — see spec §9's design note
// on preferring explicit registries over global mutable state. A
// connectrt.Registry (server) or connectrt.Client owns one codec.Registry.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry returns a Registry preloaded with the proto and json codecs.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	r.Register(protoCodec{})
	r.Register(jsonCodec{
		marshal:   protojson.MarshalOptions{UseProtoNames: false},
		unmarshal: protojson.UnmarshalOptions{DiscardUnknown: true},
	})
	return r
}

// Register adds or replaces the codec for c.Name().
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[c.Name()] = c
}

// Lookup returns the codec registered for name.
func (r *Registry) Lookup(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[name]
	return c, ok
}

// protoCodec is the binary protobuf wire codec (spec §4.1: the default,
// canonical subtype).
type protoCodec struct{}

func (protoCodec) Name() string { return Proto }

func (protoCodec) Marshal(m proto.Message) ([]byte, error) {
	data, err := proto.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("proto marshal: %w", err)
	}
	return data, nil
}

func (protoCodec) Unmarshal(data []byte, m proto.Message) error {
	if err := proto.Unmarshal(data, m); err != nil {
		return fmt.Errorf("proto unmarshal: %w", err)
	}
	return nil
}

// jsonCodec is the canonical protobuf JSON codec. Unlike the teacher, which
// marshals with UseProtoNames: true (snake_case field names, meant for its
// demo gateway's human-readable output), this codec marshals camelCase
// field names by default: spec §4.1 requires the wire-canonical JSON
// mapping, which protobuf defines as camelCase unless a field declares a
// json_name override.
type jsonCodec struct {
	marshal   protojson.MarshalOptions
	unmarshal protojson.UnmarshalOptions
}

func (jsonCodec) Name() string { return JSON }

func (c jsonCodec) Marshal(m proto.Message) ([]byte, error) {
	data, err := c.marshal.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return data, nil
}

func (c jsonCodec) Unmarshal(data []byte, m proto.Message) error {
	if err := c.unmarshal.Unmarshal(data, m); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}
