// Package connectrt is a Connect RPC protocol runtime: wire-level encoding
// and decoding of unary and streaming calls, content-type/encoding/timeout
// negotiation, stream envelope framing, inbound request dispatch, and the
// client-side invocation path.
//
// This package does not bring its own HTTP server or client. Handlers
// implement [http.Handler] and are mounted on whatever adapter the caller
// prefers (the standard library's [http.Server], an async cooperative
// adapter, or anything else that can drive [http.Handler]).
package connectrt

// Version is the semantic version of the connectrt module.
const Version = "0.1.0"

// StreamType describes whether the client, server, neither, or both side of
// an RPC streams messages.
type StreamType uint8

// StreamType values. StreamTypeBidi is the bitwise OR of client and server
// streaming, matching the grouping used throughout the dispatcher and
// interceptor machinery (e.g. "is this call client-streaming in either
// direction?").
const (
	StreamTypeUnary  StreamType = 0b00
	StreamTypeClient StreamType = 0b01
	StreamTypeServer StreamType = 0b10
	StreamTypeBidi              = StreamTypeClient | StreamTypeServer
)

func (t StreamType) String() string {
	switch t {
	case StreamTypeUnary:
		return "unary"
	case StreamTypeClient:
		return "client_stream"
	case StreamTypeServer:
		return "server_stream"
	case StreamTypeBidi:
		return "bidi_stream"
	default:
		return "unknown"
	}
}

// Idempotency describes whether an RPC may safely be retried or sent over
// HTTP GET.
type Idempotency int

const (
	IdempotencyUnknown Idempotency = iota
	IdempotencyIdempotent
	IdempotencyNoSideEffects
)
