package connectrt

import "fmt"

// Request wraps a single unary request message together with its inbound
// headers, the generic counterpart to *RequestContext for generated stubs
// (spec GLOSSARY: Unary).
type Request[T any] struct {
	Msg    *T
	Header *Headers
}

// NewRequest wraps msg with empty headers.
func NewRequest[T any](msg *T) *Request[T] {
	return &Request[T]{Msg: msg, Header: NewHeaders()}
}

// Response wraps a single unary response message together with outbound
// headers and trailers.
type Response[T any] struct {
	Msg     *T
	Header  *Headers
	Trailer *Headers
}

// NewResponse wraps msg with empty header/trailer stores.
func NewResponse[T any](msg *T) *Response[T] {
	return &Response[T]{Msg: msg, Header: NewHeaders(), Trailer: NewHeaders()}
}

// ServerStream is the handler-facing, send-only view of a server-streaming
// response. Unlike ClientStream and BidiStream below, it holds no message
// constructor, since Send takes an already-built message.
type ServerStream[T any] struct {
	conn StreamConn
}

// NewServerStream wraps conn for a handler that only sends T values.
func NewServerStream[T any](conn StreamConn) *ServerStream[T] {
	return &ServerStream[T]{conn: conn}
}

// Send encodes and frames msg as the next outbound message.
func (s *ServerStream[T]) Send(msg *T) error {
	if err := s.conn.Send(msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// ClientStream is the handler-facing, receive-only view of a
// client-streaming request.
type ClientStream[T any] struct {
	conn   StreamConn
	newMsg func() *T
}

// NewClientStream wraps conn for a handler that only receives T values.
// newMsg must return a fresh, empty *T each call; RegisterClientStream
// supplies one that allocates a new T.
func NewClientStream[T any](conn StreamConn, newMsg func() *T) *ClientStream[T] {
	return &ClientStream[T]{conn: conn, newMsg: newMsg}
}

// Receive decodes the next inbound message. io.EOF (wrapped) signals the
// end of the request stream.
func (c *ClientStream[T]) Receive() (*T, error) {
	msg := c.newMsg()
	if err := c.conn.Receive(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// BidiStream is the handler-facing, full send/receive view of a
// bidirectional streaming RPC.
type BidiStream[TIn, TOut any] struct {
	conn     StreamConn
	newInMsg func() *TIn
}

// NewBidiStream wraps conn for a handler that both receives TIn and sends
// TOut values.
func NewBidiStream[TIn, TOut any](conn StreamConn, newInMsg func() *TIn) *BidiStream[TIn, TOut] {
	return &BidiStream[TIn, TOut]{conn: conn, newInMsg: newInMsg}
}

// Receive decodes the next inbound message.
func (b *BidiStream[TIn, TOut]) Receive() (*TIn, error) {
	msg := b.newInMsg()
	if err := b.conn.Receive(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Send encodes and frames msg as the next outbound message.
func (b *BidiStream[TIn, TOut]) Send(msg *TOut) error {
	if err := b.conn.Send(msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
