package connectrt

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/protobuf/proto"

	"github.com/connectrt/connectrt/codec"
	"github.com/connectrt/connectrt/compress"
	"github.com/connectrt/connectrt/envelope"
)

func base64urlNoPad(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Client is the symmetric counterpart to Registry/dispatcher (spec §4.10):
// it builds outbound Connect requests, negotiates content-type and
// compression the same way the server does, and decodes responses or
// raises structured errors. Like Registry, it is instance-scoped rather
// than a package global, so an application can hold one Client per
// upstream service with its own codec/compression preferences.
type Client struct {
	httpClient *http.Client
	baseURL    string

	codecs      *codec.Registry
	compressors *compress.Registry

	// Subtype selects the outgoing codec ("proto" or "json"); defaults to
	// codec.Proto.
	Subtype string
	// SendCompression names the compressor applied to outgoing payloads;
	// empty means identity. The client always advertises every registered
	// compressor in Accept-Encoding regardless of this setting.
	SendCompression string
}

// NewClient returns a Client targeting baseURL (scheme://host[:port], no
// trailing slash) using httpClient for transport. A nil httpClient is
// replaced by an http.Client with a 30-second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		codecs:      codec.NewRegistry(),
		compressors: compress.NewRegistry(),
		Subtype:     codec.Proto,
	}
}

// Codecs returns the client's codec.Registry, so callers can register
// additional subtypes before issuing calls.
func (c *Client) Codecs() *codec.Registry { return c.codecs }

// Compressors returns the client's compress.Registry.
func (c *Client) Compressors() *compress.Registry { return c.compressors }

// CallOptions customizes a single call beyond MethodSpec's defaults.
type CallOptions struct {
	// Header carries user-supplied outgoing metadata, merged over the
	// protocol defaults.
	Header *Headers
	// UseGET requests HTTP GET instead of POST, honored only when
	// spec.AllowsGET() is true (spec §4.10, §3).
	UseGET bool
}

func (c *Client) subtypeCodec() (codec.Codec, error) {
	subtype := c.Subtype
	if subtype == "" {
		subtype = codec.Proto
	}
	cd, ok := c.codecs.Lookup(subtype)
	if !ok {
		return nil, fmt.Errorf("connectrt: client has no codec registered for subtype %q", subtype)
	}
	return cd, nil
}

func (c *Client) sendCompressor() (compress.Compressor, error) {
	if c.SendCompression == "" || c.SendCompression == compress.Identity {
		return nil, nil
	}
	comp, ok := c.compressors.Lookup(c.SendCompression)
	if !ok {
		return nil, fmt.Errorf("connectrt: client has no compressor registered for %q", c.SendCompression)
	}
	return comp, nil
}

// acceptEncoding lists every registered non-identity compressor plus
// identity, matching spec §4.2's "identity is an implicit member".
func (c *Client) acceptEncoding() string {
	names := c.compressors.Names()
	if len(names) == 0 {
		return compress.Identity
	}
	return strings.Join(append(names, compress.Identity), ", ")
}

// baseHeaders builds the protocol-default headers common to every call
// (spec §4.10): Content-Type, Connect-Protocol-Version, Accept-Encoding,
// and Content-Encoding when a send compressor is configured. User headers
// from opts are merged on top, so a caller can override any default.
func (c *Client) baseHeaders(spec MethodSpec, streaming bool, opts CallOptions) *Headers {
	h := NewHeaders()
	h.Set("Content-Type", buildContentType(c.subtypeOrDefault(), streaming))
	h.Set("Connect-Protocol-Version", "1")
	h.Set("Accept-Encoding", c.acceptEncoding())
	if c.SendCompression != "" && c.SendCompression != compress.Identity {
		h.Set("Content-Encoding", c.SendCompression)
	}
	if opts.Header != nil {
		for _, name := range opts.Header.Names() {
			h.Del(name)
		}
		h.Merge(opts.Header)
	}
	return h
}

func (c *Client) subtypeOrDefault() string {
	if c.Subtype == "" {
		return codec.Proto
	}
	return c.Subtype
}

func (c *Client) url(fullName string) string {
	return c.baseURL + "/" + fullName
}

func deadlineHeader(ctx context.Context, h *Headers) {
	dl, ok := ctx.Deadline()
	if !ok {
		return
	}
	ms := time.Until(dl).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	h.Set("Connect-Timeout-Ms", fmt.Sprintf("%d", ms))
}

// CallUnary invokes a unary method (spec §4.10). req/resp are the pointer
// message types for the call; the generated stub is expected to call this
// with concrete types already satisfying proto.Message.
func (c *Client) CallUnary(ctx context.Context, spec MethodSpec, req proto.Message, resp proto.Message, opts CallOptions) (*Headers, *Headers, error) {
	cd, err := c.subtypeCodec()
	if err != nil {
		return nil, nil, err
	}
	sendComp, err := c.sendCompressor()
	if err != nil {
		return nil, nil, err
	}

	body, err := cd.Marshal(req)
	if err != nil {
		return nil, nil, NewErrorf(CodeInternal, "encode request: %v", err)
	}
	if sendComp != nil {
		body, err = sendComp.Compress(body)
		if err != nil {
			return nil, nil, NewErrorf(CodeInternal, "compress request: %v", err)
		}
	}

	header := c.baseHeaders(spec, false, opts)
	deadlineHeader(ctx, header)

	useGET := opts.UseGET && spec.AllowsGET()
	var httpReq *http.Request
	if useGET {
		httpReq, err = c.buildGETRequest(ctx, spec, body, sendComp, header)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, c.url(spec.FullName), bytes.NewReader(body))
	}
	if err != nil {
		return nil, nil, NewErrorf(CodeInternal, "build request: %v", err)
	}
	if !useGET {
		for _, name := range header.Names() {
			for _, v := range header.Values(name) {
				httpReq.Header.Add(name, v)
			}
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, codeFromTransportErr(ctx, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, nil, NewErrorf(CodeUnavailable, "read response: %v", err)
	}

	respHeaders := HeadersFromHTTP(httpResp.Header)
	if httpResp.StatusCode != http.StatusOK {
		return respHeaders, nil, decodeUnaryError(httpResp.StatusCode, data)
	}

	if enc := httpResp.Header.Get("Content-Encoding"); enc != "" && enc != compress.Identity {
		comp, ok := c.compressors.Lookup(enc)
		if !ok {
			return respHeaders, nil, NewErrorf(CodeUnimplemented, "response uses unsupported compression %q", enc)
		}
		data, err = comp.Decompress(data, 0)
		if err != nil {
			return respHeaders, nil, NewErrorf(CodeInternal, "decompress response: %v", err)
		}
	}

	respCti := parseContentType(httpResp.Header.Get("Content-Type"))
	respCodec := cd
	if respCti.ok {
		if rc, ok := c.codecs.Lookup(respCti.subtype); ok {
			respCodec = rc
		}
	}
	if err := respCodec.Unmarshal(data, resp); err != nil {
		return respHeaders, nil, NewErrorf(CodeInternal, "decode response: %v", err)
	}
	return respHeaders, NewHeaders(), nil
}

// CallStream opens a streaming call (client-, server-, or bidi-streaming;
// spec §4.10, symmetric to engine_stream.go's server side). The returned
// ClientConn's request body is a pipe: writes via Send are delivered to the
// transport as they happen, which is what lets a bidi call interleave Send
// and Receive the same way the server's streamServerConn does.
func (c *Client) CallStream(ctx context.Context, spec MethodSpec, opts CallOptions) (*ClientConn, error) {
	cd, err := c.subtypeCodec()
	if err != nil {
		return nil, err
	}
	sendComp, err := c.sendCompressor()
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	header := c.baseHeaders(spec, true, opts)
	deadlineHeader(ctx, header)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(spec.FullName), pr)
	if err != nil {
		return nil, NewErrorf(CodeInternal, "build request: %v", err)
	}
	for _, name := range header.Names() {
		for _, v := range header.Values(name) {
			httpReq.Header.Add(name, v)
		}
	}

	conn := &ClientConn{ctx: ctx, w: pw, reqCodec: cd, sendComp: sendComp, opened: make(chan struct{})}

	go func() {
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			conn.openErr = codeFromTransportErr(ctx, err)
			close(conn.opened)
			return
		}
		conn.resp = resp
		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			conn.openErr = decodeUnaryError(resp.StatusCode, data)
			close(conn.opened)
			return
		}
		respCti := parseContentType(resp.Header.Get("Content-Type"))
		respCodec := cd
		if respCti.ok {
			if rc, ok := c.codecs.Lookup(respCti.subtype); ok {
				respCodec = rc
			}
		}
		var respComp compress.Compressor
		if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != compress.Identity {
			respComp, _ = c.compressors.Lookup(enc)
		}
		conn.respCodec = respCodec
		conn.respComp = respComp
		conn.dec = envelope.NewDecoder(resp.Body, 0)
		close(conn.opened)
	}()

	return conn, nil
}

// buildGETRequest assembles a GET request per spec §4.6's query-parameter
// encoding, the client-side mirror of decodeUnaryGET.
func (c *Client) buildGETRequest(ctx context.Context, spec MethodSpec, body []byte, sendComp compress.Compressor, header *Headers) (*http.Request, error) {
	q := make([]string, 0, 4)
	q = append(q, "connect=v1")
	q = append(q, "encoding="+c.subtypeOrDefault())
	q = append(q, "message="+base64urlNoPad(body))
	if sendComp != nil {
		q = append(q, "compression="+sendComp.Name())
	}
	url := c.url(spec.FullName) + "?" + strings.Join(q, "&")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for _, name := range header.Names() {
		if name == "Content-Encoding" {
			continue // carried as a query parameter for GET, not a header
		}
		for _, v := range header.Values(name) {
			req.Header.Add(name, v)
		}
	}
	return req, nil
}

// decodeUnaryError parses a non-200 unary response as a structured Connect
// error, falling back to the closed HTTP-status-to-code table when the body
// isn't valid wire JSON (spec §4.10).
func decodeUnaryError(status int, body []byte) error {
	rpcErr := &Error{}
	if err := rpcErr.UnmarshalJSON(body); err == nil && rpcErr.Code() != "" {
		return rpcErr
	}
	return NewErrorf(CodeFromHTTPStatus(status), "request failed with status %d", status)
}

func codeFromTransportErr(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return NewErrorf(CodeDeadlineExceeded, "request failed: %v", err)
	}
	if ctx.Err() == context.Canceled {
		return NewErrorf(CodeCanceled, "request failed: %v", err)
	}
	return NewErrorf(CodeUnavailable, "request failed: %v", err)
}
