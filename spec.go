package connectrt

import (
	"context"
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// MethodSpec is the static, generator-produced (or dynamically built)
// description of one RPC: spec §3.
type MethodSpec struct {
	// FullName is "pkg.Service/Method".
	FullName string
	// Input and Output are the message descriptors for the request and
	// response types. A descriptor-driven spec, rather than a pair of Go
	// types, is what lets the dispatcher decode into the right message
	// without a type switch per registered method.
	Input, Output protoreflect.MessageDescriptor
	Kind          StreamType
	Idempotency   Idempotency
}

// AllowsGET reports whether this method may be invoked over HTTP GET: only
// unary, side-effect-free methods qualify (spec §3).
func (m MethodSpec) AllowsGET() bool {
	return m.Kind == StreamTypeUnary && m.Idempotency == IdempotencyNoSideEffects
}

// AllowedHTTPMethods returns the HTTP methods a dispatcher should accept for
// this spec.
func (m MethodSpec) AllowedHTTPMethods() []string {
	if m.AllowsGET() {
		return []string{"GET", "POST"}
	}
	return []string{"POST"}
}

// Peer describes the other party to an RPC.
type Peer struct {
	Addr string
	// Protocol carries the protocol in use: "connect" for streaming calls,
	// "connect+unary" for unary calls.
	Protocol string
}

// RequestContext is passed to every handler invocation: spec §3.
type RequestContext struct {
	Method          MethodSpec
	Headers         *Headers // incoming, read-only by convention
	ResponseHeaders *Headers // writable
	ResponseTrailer *Headers // writable
	Peer            Peer

	ctx      context.Context
	deadline time.Time
	hasDL    bool
	canceled func() bool
}

// NewRequestContext builds a RequestContext for a single inbound request.
func NewRequestContext(ctx context.Context, method MethodSpec, headers *Headers, peer Peer) *RequestContext {
	rc := &RequestContext{
		Method:          method,
		Headers:         headers,
		ResponseHeaders: NewHeaders(),
		ResponseTrailer: NewHeaders(),
		Peer:            peer,
		ctx:             ctx,
	}
	if dl, ok := ctx.Deadline(); ok {
		rc.deadline = dl
		rc.hasDL = true
	}
	rc.canceled = func() bool { return ctx.Err() != nil }
	return rc
}

// Context returns the Go context carrying cancellation/deadline for this
// request. Handlers that call out to other context-aware APIs should use
// this rather than context.Background().
func (r *RequestContext) Context() context.Context { return r.ctx }

// Deadline returns the request's deadline, if one was set by a
// Connect-Timeout-Ms header or an ambient context deadline.
func (r *RequestContext) Deadline() (time.Time, bool) { return r.deadline, r.hasDL }

// IsCanceled reports whether the request's context has already been
// canceled or its deadline has passed.
func (r *RequestContext) IsCanceled() bool {
	if r.canceled == nil {
		return false
	}
	return r.canceled()
}

// Endpoint binds a MethodSpec to a server-side handler and HTTP constraints.
// Only the interceptor list matching Spec.Kind is used — see chainForKind.
// The RegisterX helpers leave all four lists empty.
type Endpoint struct {
	Spec            MethodSpec
	Handler         StreamingHandlerFunc
	MaxReceiveBytes int64 // 0 means unbounded

	UnaryInterceptors        []UnaryInterceptor
	ClientStreamInterceptors []ClientStreamInterceptor
	ServerStreamInterceptors []ServerStreamInterceptor
	BidiStreamInterceptors   []BidiStreamInterceptor
}

// StreamingHandlerFunc is the dispatcher-facing shape every generated
// handler (unary included — a unary call is a one-message stream in each
// direction) is reduced to. conn gives the handler typed-free access to the
// wire; generated stubs wrap it back into a typed Request/Response or
// typed stream.
type StreamingHandlerFunc func(ctx *RequestContext, conn StreamConn) error

// StreamConn is the server-side view of a single RPC's message exchange,
// independent of HTTP framing details. Unary, client-streaming,
// server-streaming, and bidi handlers all receive the same interface; their
// generated wrappers enforce the send/receive cardinality spec §4.7
// describes for each kind.
type StreamConn interface {
	// Receive decodes the next inbound message into msg (a
	// proto.Message-shaped pointer, typically *dynamicpb.Message or a
	// generated type). io.EOF (wrapped) signals the end of the inbound
	// stream.
	Receive(msg any) error
	// Send encodes and frames/writes msg as the next outbound message.
	Send(msg any) error
}
