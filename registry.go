package connectrt

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/protobuf/proto"

	"github.com/connectrt/connectrt/codec"
	"github.com/connectrt/connectrt/compress"
)

// Registry is the server-side endpoint table and HTTP dispatcher (spec
// §4.8). Like codec.Registry and compress.Registry, it is instance-scoped:
// a process may host more than one, each serving a distinct mux prefix.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint // keyed by "pkg.Service/Method"

	codecs      *codec.Registry
	compressors *compress.Registry

	// MaxReceiveBytes is the registry-wide default; an Endpoint with its
	// own MaxReceiveBytes set overrides it for that method.
	MaxReceiveBytes int64
}

// NewRegistry returns an empty Registry with default codec and compression
// registries.
func NewRegistry() *Registry {
	return &Registry{
		endpoints:   make(map[string]*Endpoint),
		codecs:      codec.NewRegistry(),
		compressors: compress.NewRegistry(),
	}
}

// Codecs returns the registry's codec.Registry, so callers can register
// additional subtypes before serving traffic.
func (r *Registry) Codecs() *codec.Registry { return r.codecs }

// Compressors returns the registry's compress.Registry.
func (r *Registry) Compressors() *compress.Registry { return r.compressors }

// register adds a fully-built Endpoint. Called by the RegisterX generic
// helpers, which generated stub code goes through.
func (r *Registry) register(e *Endpoint) error {
	if e.Spec.FullName == "" {
		return fmt.Errorf("connectrt: endpoint full name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.endpoints[e.Spec.FullName]; exists {
		return fmt.Errorf("connectrt: endpoint %s already registered", e.Spec.FullName)
	}
	r.endpoints[e.Spec.FullName] = e
	return nil
}

// lookup returns the Endpoint registered for fullName.
func (r *Registry) lookup(fullName string) (*Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.endpoints[fullName]
	return e, ok
}

// Services returns the distinct service names (the portion of each
// registered full name before the last "/") currently registered, for
// introspection or reflection surfaces.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var names []string
	for fullName := range r.endpoints {
		if i := strings.LastIndexByte(fullName, '/'); i >= 0 {
			svc := fullName[:i]
			if !seen[svc] {
				seen[svc] = true
				names = append(names, svc)
			}
		}
	}
	return names
}

// RegisterUnary registers a unary handler for fullName. Req and Res are
// the request/response Go types; PReq/PRes are their pointer types, which
// must implement proto.Message — the standard Go-generics pattern for
// "T's pointer type implements interface I", since a proto.Message method
// set lives on *T, not T.
func RegisterUnary[Req, Res any, PReq interface {
	*Req
	proto.Message
}, PRes interface {
	*Res
	proto.Message
}](reg *Registry, fullName string, idempotency Idempotency, handler func(ctx *RequestContext, req *Request[Req]) (*Response[Res], error)) error {
	spec := MethodSpec{
		FullName:    fullName,
		Input:       PReq(new(Req)).ProtoReflect().Descriptor(),
		Output:      PRes(new(Res)).ProtoReflect().Descriptor(),
		Kind:        StreamTypeUnary,
		Idempotency: idempotency,
	}
	streamHandler := func(ctx *RequestContext, conn StreamConn) error {
		reqMsg := PReq(new(Req))
		if err := conn.Receive(reqMsg); err != nil {
			return err
		}
		resp, err := handler(ctx, &Request[Req]{Msg: (*Req)(reqMsg), Header: ctx.Headers})
		if err != nil {
			return err
		}
		if resp.Header != nil {
			ctx.ResponseHeaders.Merge(resp.Header)
		}
		if resp.Trailer != nil {
			ctx.ResponseTrailer.Merge(resp.Trailer)
		}
		return conn.Send(PRes(resp.Msg))
	}
	return reg.register(&Endpoint{Spec: spec, Handler: streamHandler})
}

// RegisterClientStream registers a client-streaming handler.
func RegisterClientStream[Req, Res any, PReq interface {
	*Req
	proto.Message
}, PRes interface {
	*Res
	proto.Message
}](reg *Registry, fullName string, handler func(ctx *RequestContext, stream *ClientStream[Req]) (*Response[Res], error)) error {
	spec := MethodSpec{
		FullName: fullName,
		Input:    PReq(new(Req)).ProtoReflect().Descriptor(),
		Output:   PRes(new(Res)).ProtoReflect().Descriptor(),
		Kind:     StreamTypeClient,
	}
	streamHandler := func(ctx *RequestContext, conn StreamConn) error {
		stream := NewClientStream[Req](conn, func() *Req { return (*Req)(PReq(new(Req))) })
		resp, err := handler(ctx, stream)
		if err != nil {
			return err
		}
		if resp.Header != nil {
			ctx.ResponseHeaders.Merge(resp.Header)
		}
		if resp.Trailer != nil {
			ctx.ResponseTrailer.Merge(resp.Trailer)
		}
		return conn.Send(PRes(resp.Msg))
	}
	return reg.register(&Endpoint{Spec: spec, Handler: streamHandler})
}

// RegisterServerStream registers a server-streaming handler.
func RegisterServerStream[Req, Res any, PReq interface {
	*Req
	proto.Message
}, PRes interface {
	*Res
	proto.Message
}](reg *Registry, fullName string, handler func(ctx *RequestContext, req *Request[Req], stream *ServerStream[Res]) error) error {
	spec := MethodSpec{
		FullName: fullName,
		Input:    PReq(new(Req)).ProtoReflect().Descriptor(),
		Output:   PRes(new(Res)).ProtoReflect().Descriptor(),
		Kind:     StreamTypeServer,
	}
	streamHandler := func(ctx *RequestContext, conn StreamConn) error {
		reqMsg := PReq(new(Req))
		if err := conn.Receive(reqMsg); err != nil {
			return err
		}
		stream := NewServerStream[Res](conn)
		return handler(ctx, &Request[Req]{Msg: (*Req)(reqMsg), Header: ctx.Headers}, stream)
	}
	return reg.register(&Endpoint{Spec: spec, Handler: streamHandler})
}

// RegisterBidiStream registers a bidirectional-streaming handler.
func RegisterBidiStream[Req, Res any, PReq interface {
	*Req
	proto.Message
}, PRes interface {
	*Res
	proto.Message
}](reg *Registry, fullName string, handler func(ctx *RequestContext, stream *BidiStream[Req, Res]) error) error {
	spec := MethodSpec{
		FullName: fullName,
		Input:    PReq(new(Req)).ProtoReflect().Descriptor(),
		Output:   PRes(new(Res)).ProtoReflect().Descriptor(),
		Kind:     StreamTypeBidi,
	}
	streamHandler := func(ctx *RequestContext, conn StreamConn) error {
		stream := NewBidiStream[Req, Res](conn, func() *Req { return (*Req)(PReq(new(Req))) })
		return handler(ctx, stream)
	}
	return reg.register(&Endpoint{Spec: spec, Handler: streamHandler})
}

// Handler returns an http.Handler that dispatches requests under prefix
// (e.g. "/") to registered endpoints by path "<prefix><full_name>".
func (r *Registry) Handler(prefix string) http.Handler {
	return &dispatcher{registry: r, prefix: prefix}
}
