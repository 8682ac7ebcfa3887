package codec

import (
	"fmt"
	"sync"

	"buf.build/go/hyperpb"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// MessageFactory produces fresh, empty proto.Message instances for a single
// message descriptor, and pools them. A dispatcher or client holds one
// factory per distinct (input or output) descriptor it serves.
//
// Decoding is the hot path this exists for: hyperpb compiles a descriptor
// once into a read-optimized MessageType and then allocates lazily-parsed
// messages from it, which is significantly cheaper than dynamicpb for the
// repeated decode of a known, fixed message shape. dynamicpb remains the
// fallback for descriptors hyperpb can't compile (it requires a complete,
// self-describing FileDescriptorSet) and for encode, where plain
// proto.Marshal already visits every field regardless of representation.
type MessageFactory struct {
	descriptor protoreflect.MessageDescriptor
	msgType    *hyperpb.MessageType // nil if hyperpb couldn't compile this descriptor
	pool       sync.Pool
}

// NewMessageFactory builds a factory for md.
func NewMessageFactory(md protoreflect.MessageDescriptor) *MessageFactory {
	f := &MessageFactory{descriptor: md}
	msgType, err := compileHyperpb(md)
	if err == nil {
		f.msgType = msgType
		f.pool.New = func() any { return hyperpb.NewMessage(msgType) }
	}
	return f
}

// Descriptor returns the descriptor this factory was built for.
func (f *MessageFactory) Descriptor() protoreflect.MessageDescriptor { return f.descriptor }

// New returns an empty message ready to be unmarshaled into, from the pool
// when possible.
func (f *MessageFactory) New() proto.Message {
	if f.msgType != nil {
		if m, ok := f.pool.Get().(*hyperpb.Message); ok {
			return m
		}
		return hyperpb.NewMessage(f.msgType)
	}
	return dynamicpb.NewMessage(f.descriptor)
}

// Release returns msg to the pool if it came from one. Messages not
// produced by this factory (e.g. a caller's generated type) are ignored.
func (f *MessageFactory) Release(msg proto.Message) {
	if hm, ok := msg.(*hyperpb.Message); ok && f.msgType != nil {
		hm.Reset()
		f.pool.Put(hm)
	}
}

// compileHyperpb compiles md into a hyperpb MessageType from a descriptor
// set holding md's file and its direct imports; imports of those imports are
// not added. Adapted from the teacher's internal proto-compilation helper.
func compileHyperpb(md protoreflect.MessageDescriptor) (*hyperpb.MessageType, error) {
	fdset := &descriptorpb.FileDescriptorSet{}

	file := md.ParentFile()
	fdset.File = append(fdset.File, protodesc.ToFileDescriptorProto(file))
	for i := 0; i < file.Imports().Len(); i++ {
		imp := file.Imports().Get(i)
		fdset.File = append(fdset.File, protodesc.ToFileDescriptorProto(imp))
	}

	msgType, err := hyperpb.CompileFileDescriptorSet(fdset, md.FullName())
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", md.FullName(), err)
	}
	return msgType, nil
}

// factoryCache caches one MessageFactory per descriptor so repeated lookups
// (one per inbound request for the same method) don't recompile a hyperpb
// type. It is not a package global; codec.Registry does not hold one, and
// nothing in this module calls newFactoryCache.
type factoryCache struct {
	mu        sync.RWMutex
	factories map[protoreflect.FullName]*MessageFactory
}

func newFactoryCache() *factoryCache {
	return &factoryCache{factories: make(map[protoreflect.FullName]*MessageFactory)}
}

func (c *factoryCache) get(md protoreflect.MessageDescriptor) *MessageFactory {
	name := md.FullName()
	c.mu.RLock()
	f, ok := c.factories[name]
	c.mu.RUnlock()
	if ok {
		return f
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok = c.factories[name]; ok {
		return f
	}
	f = NewMessageFactory(md)
	c.factories[name] = f
	return f
}
