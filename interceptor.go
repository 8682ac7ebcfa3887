package connectrt

// HandlerFunc is the shape every interceptor wraps: the same
// StreamingHandlerFunc signature an Endpoint ultimately dispatches to.
// Unary, client-stream, server-stream, and bidi-stream methods all reduce
// to one Receive/Send-based signature (see StreamingHandlerFunc), so a
// single underlying function type is all any of the four interceptor
// protocols needs to wrap.
type HandlerFunc = StreamingHandlerFunc

// UnaryInterceptor, ClientStreamInterceptor, ServerStreamInterceptor, and
// BidiStreamInterceptor are the four interceptor protocols spec §4.9
// describes, one per method kind. They're distinct named types — rather
// than a single shared type — so a Registry can't accidentally register a
// server-stream interceptor against a bidi endpoint; at the call site they
// all compose identically.
type (
	UnaryInterceptor        func(HandlerFunc) HandlerFunc
	ClientStreamInterceptor func(HandlerFunc) HandlerFunc
	ServerStreamInterceptor func(HandlerFunc) HandlerFunc
	BidiStreamInterceptor   func(HandlerFunc) HandlerFunc
)

// MetadataInterceptor is the simpler fifth protocol: on_start runs before
// the handler and produces a state value of the caller's choosing; on_end
// runs after, observing that state. It has no access to messages, only the
// RequestContext, which makes it cheap to adapt into any of the four
// message-aware protocols (see AsUnary et al.).
type MetadataInterceptor struct {
	OnStart func(ctx *RequestContext) any
	OnEnd   func(state any, ctx *RequestContext)
}

func (m MetadataInterceptor) wrap(next HandlerFunc) HandlerFunc {
	return func(ctx *RequestContext, conn StreamConn) error {
		var state any
		if m.OnStart != nil {
			state = m.OnStart(ctx)
		}
		err := next(ctx, conn)
		if m.OnEnd != nil {
			m.OnEnd(state, ctx)
		}
		return err
	}
}

// AsUnary, AsClientStream, AsServerStream, and AsBidiStream adapt a
// MetadataInterceptor into one of the four message-aware protocols.
func (m MetadataInterceptor) AsUnary() UnaryInterceptor { return UnaryInterceptor(m.wrap) }

func (m MetadataInterceptor) AsClientStream() ClientStreamInterceptor {
	return ClientStreamInterceptor(m.wrap)
}

func (m MetadataInterceptor) AsServerStream() ServerStreamInterceptor {
	return ServerStreamInterceptor(m.wrap)
}

func (m MetadataInterceptor) AsBidiStream() BidiStreamInterceptor { return BidiStreamInterceptor(m.wrap) }

// chainUnary composes interceptors around terminal so that, for
// interceptors [I1, I2, ..., In], the effective call is
// I1(I2(...In(terminal))): on_start executes outer-to-inner (I1 first),
// on_end inner-to-outer (I1 last). Grounded on the teacher's
// ChainInterceptors/chainedInterceptor, generalized from its single
// untyped protocol to these four.
func chainUnary(interceptors []UnaryInterceptor, terminal HandlerFunc) HandlerFunc {
	h := terminal
	for i := len(interceptors) - 1; i >= 0; i-- {
		h = interceptors[i](h)
	}
	return h
}

func chainClientStream(interceptors []ClientStreamInterceptor, terminal HandlerFunc) HandlerFunc {
	h := terminal
	for i := len(interceptors) - 1; i >= 0; i-- {
		h = interceptors[i](h)
	}
	return h
}

func chainServerStream(interceptors []ServerStreamInterceptor, terminal HandlerFunc) HandlerFunc {
	h := terminal
	for i := len(interceptors) - 1; i >= 0; i-- {
		h = interceptors[i](h)
	}
	return h
}

func chainBidiStream(interceptors []BidiStreamInterceptor, terminal HandlerFunc) HandlerFunc {
	h := terminal
	for i := len(interceptors) - 1; i >= 0; i-- {
		h = interceptors[i](h)
	}
	return h
}

// chainForKind dispatches to the right chain* helper for kind and uses only
// the endpoint's interceptor list for that kind; the other three lists are
// ignored. The RegisterX helpers leave all four lists empty, so an Endpoint
// they build runs its handler with no interceptors.
func chainForKind(kind StreamType, e *Endpoint, terminal HandlerFunc) HandlerFunc {
	switch kind {
	case StreamTypeUnary:
		return chainUnary(e.UnaryInterceptors, terminal)
	case StreamTypeClient:
		return chainClientStream(e.ClientStreamInterceptors, terminal)
	case StreamTypeServer:
		return chainServerStream(e.ServerStreamInterceptors, terminal)
	default:
		return chainBidiStream(e.BidiStreamInterceptors, terminal)
	}
}
