package connectrt

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/connectrt/connectrt/codec"
	"github.com/connectrt/connectrt/compress"
	"github.com/connectrt/connectrt/envelope"
)

// dispatcher is the http.Handler a Registry hands out: it routes a request
// to its Endpoint, negotiates content-type and compression, and runs the
// matching protocol engine (spec §4.8).
type dispatcher struct {
	registry *Registry
	prefix   string
}

func (d *dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fullName := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, d.prefix), "/")
	endpoint, ok := d.registry.lookup(fullName)
	if !ok {
		writeUnaryError(w, NewErrorf(CodeUnimplemented, "no such method: %s", r.URL.Path))
		return
	}

	allowed := endpoint.Spec.AllowedHTTPMethods()
	if !methodAllowed(r.Method, allowed) {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		writeUnaryError(w, NewErrorf(CodeUnimplemented, "method %s not allowed for %s", r.Method, fullName))
		return
	}

	headers := HeadersFromHTTP(r.Header)
	if err := CheckProtocolVersion(headers.Get("Connect-Protocol-Version"), false); err != nil {
		writeUnaryError(w, err)
		return
	}
	if raw := headers.Get("Connect-Timeout-Ms"); raw != "" {
		if _, err := ParseTimeout(raw); err != nil {
			writeUnaryError(w, err)
			return
		}
	}

	ctx, cancel := requestContextWithDeadline(r.Context(), headers)
	defer cancel()

	cti := parseContentType(r.Header.Get("Content-Type"))
	if !cti.ok {
		writeUnaryError(w, NewErrorf(CodeInvalidArgument, "missing or invalid Content-Type"))
		return
	}
	wantsStreaming := endpoint.Spec.Kind != StreamTypeUnary
	if cti.streaming != wantsStreaming {
		writeUnaryError(w, NewErrorf(CodeInvalidArgument, "content-type family does not match method kind"))
		return
	}

	reqCodec, ok := d.registry.codecs.Lookup(cti.subtype)
	if !ok {
		writeUnaryError(w, NewErrorf(CodeUnimplemented, "unsupported content subtype %q", cti.subtype))
		return
	}

	maxReceive := endpoint.MaxReceiveBytes
	if maxReceive == 0 {
		maxReceive = d.registry.MaxReceiveBytes
	}
	if maxReceive > 0 && r.ContentLength > maxReceive {
		writeUnaryError(w, NewErrorf(CodeResourceExhausted, "request of %d bytes exceeds max of %d bytes", r.ContentLength, maxReceive))
		return
	}

	contentEncoding := r.Header.Get("Content-Encoding")
	reqCompressor, ok := d.registry.compressors.Lookup(contentEncoding)
	if !ok {
		writeUnaryError(w, NewErrorf(CodeUnimplemented, "unsupported content-encoding %q", contentEncoding))
		return
	}
	respCompressor := negotiateResponseCompressor(d.registry.compressors, r.Header.Get("Accept-Encoding"))

	peer := Peer{Addr: r.RemoteAddr, Protocol: protocolName(cti)}
	rc := NewRequestContext(ctx, endpoint.Spec, headers, peer)

	if cti.streaming {
		d.serveStream(w, r, endpoint, rc, reqCodec, reqCompressor, respCompressor, cti.subtype, maxReceive)
		return
	}
	d.serveUnary(w, r, endpoint, rc, reqCodec, reqCompressor, respCompressor, cti.subtype)
}

func methodAllowed(method string, allowed []string) bool {
	for _, m := range allowed {
		if m == method {
			return true
		}
	}
	return false
}

func protocolName(cti contentTypeInfo) string {
	if cti.streaming {
		return "connect"
	}
	return "connect+unary"
}

// requestContextWithDeadline applies Connect-Timeout-Ms, if present and
// valid, as a context deadline (spec §4.5); invalid values are rejected by
// ServeHTTP with ParseTimeout, right after CheckProtocolVersion, before this
// is called. Here we only apply a deadline that already parsed cleanly.
func requestContextWithDeadline(parent context.Context, headers *Headers) (context.Context, context.CancelFunc) {
	raw := headers.Get("Connect-Timeout-Ms")
	if raw == "" {
		return parent, func() {}
	}
	ms, err := ParseTimeout(raw)
	if err != nil {
		return parent, func() {}
	}
	return context.WithTimeout(parent, time.Duration(ms)*time.Millisecond)
}

func negotiateResponseCompressor(reg *compress.Registry, acceptEncoding string) compress.Compressor {
	if acceptEncoding == "" {
		c, _ := reg.Lookup(compress.Identity)
		return c
	}
	for _, name := range strings.Split(acceptEncoding, ",") {
		name = strings.TrimSpace(name)
		if c, ok := reg.Lookup(name); ok {
			return c
		}
	}
	c, _ := reg.Lookup(compress.Identity)
	return c
}

// serveUnary runs the C6 unary protocol engine: read (or assemble from GET
// query parameters) one request message, run the handler through its
// interceptor chain, write one response message.
func (d *dispatcher) serveUnary(w http.ResponseWriter, r *http.Request, endpoint *Endpoint, rc *RequestContext,
	reqCodec codec.Codec, reqCompressor compress.Compressor, respCompressor compress.Compressor, subtype string) {

	var body []byte
	if r.Method == http.MethodGet {
		decoded, err := decodeUnaryGET(r, d.registry.compressors)
		if err != nil {
			writeUnaryError(w, err)
			return
		}
		if enc := r.URL.Query().Get("encoding"); enc != subtype {
			writeUnaryError(w, NewErrorf(CodeInvalidArgument, "encoding query parameter %q does not match content subtype %q", enc, subtype))
			return
		}
		body = decoded
	} else {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r.Body); err != nil {
			writeUnaryError(w, NewErrorf(CodeUnavailable, "read request body: %v", err))
			return
		}
		body = buf.Bytes()
		if reqCompressor.Name() != compress.Identity {
			decompressed, err := reqCompressor.Decompress(body, 0)
			if err != nil {
				writeUnaryError(w, NewErrorf(CodeInvalidArgument, "decompress request: %v", err))
				return
			}
			body = decompressed
		}
	}

	conn := &unaryServerConn{codec: reqCodec, body: body}
	terminal := chainForKind(endpoint.Spec.Kind, endpoint, endpoint.Handler)
	err := terminal(rc, conn)
	if err != nil {
		writeUnaryError(w, err)
		return
	}

	data, compressed, err := encodeUnaryResponse(reqCodec, respCompressor, conn.respMsg)
	if err != nil {
		writeUnaryError(w, NewErrorf(CodeInternal, "encode response: %v", err))
		return
	}

	header := w.Header()
	for _, name := range rc.ResponseHeaders.Names() {
		for _, v := range rc.ResponseHeaders.Values(name) {
			header.Add(name, v)
		}
	}
	header.Set("Content-Type", buildContentType(subtype, false))
	if compressed {
		header.Set("Content-Encoding", respCompressor.Name())
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// serveStream runs the C7 streaming protocol engine.
func (d *dispatcher) serveStream(w http.ResponseWriter, r *http.Request, endpoint *Endpoint, rc *RequestContext,
	reqCodec codec.Codec, reqCompressor compress.Compressor, respCompressor compress.Compressor, subtype string, maxReceive int64) {

	header := w.Header()
	header.Set("Content-Type", buildContentType(subtype, true))
	if respCompressor.Name() != compress.Identity {
		header.Set("Content-Encoding", respCompressor.Name())
	}
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	conn := &streamServerConn{
		ctx:            rc,
		dec:            envelope.NewDecoder(r.Body, maxReceive),
		reqCodec:       reqCodec,
		reqCompressor:  reqCompressor,
		w:              w,
		flusher:        flusher,
		respCodec:      reqCodec,
		respCompressor: respCompressor,
	}

	terminal := chainForKind(endpoint.Spec.Kind, endpoint, endpoint.Handler)
	handlerErr := terminal(rc, conn)
	_ = writeEndOfStream(w, flusher, handlerErr, rc.ResponseTrailer)
}
