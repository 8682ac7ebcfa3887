package connectrt

import (
	"encoding/base64"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// Reserved header names the protocol negotiates itself; handlers may read
// them but conventionally don't set them directly.
const (
	headerContentType       = "Content-Type"
	headerContentEncoding   = "Content-Encoding"
	headerAcceptEncoding    = "Accept-Encoding"
	headerProtocolVersion   = "Connect-Protocol-Version"
	headerTimeout           = "Connect-Timeout-Ms"
	protocolVersion         = "1"
	binaryHeaderValueSuffix = "-Bin"
)

// Headers is a case-insensitive, order-preserving multi-map of header name
// to values, backed by [http.Header] (which is itself exactly this: a
// map[string][]string keyed by the textproto-canonical form of the name).
// Headers exists as a distinct type, rather than a type alias, so binary
// (-Bin-suffixed) metadata can be exposed as raw bytes instead of
// base64 text.
type Headers struct {
	raw http.Header
}

// NewHeaders returns an empty Headers.
func NewHeaders() *Headers {
	return &Headers{raw: make(http.Header)}
}

// HeadersFromHTTP wraps an existing [http.Header] without copying it.
// Mutations through Headers are visible to anyone else holding h.
func HeadersFromHTTP(h http.Header) *Headers {
	if h == nil {
		h = make(http.Header)
	}
	return &Headers{raw: h}
}

// HTTPHeader returns the underlying [http.Header].
func (h *Headers) HTTPHeader() http.Header { return h.raw }

// Get returns the first value associated with name, or "" if absent.
func (h *Headers) Get(name string) string { return h.raw.Get(name) }

// Values returns all values associated with name, in insertion order. The
// returned slice must not be mutated.
func (h *Headers) Values(name string) []string { return h.raw.Values(name) }

// Set replaces any existing values of name with a single value.
func (h *Headers) Set(name, value string) { h.raw.Set(name, value) }

// Add appends value to any existing values of name.
func (h *Headers) Add(name, value string) { h.raw.Add(name, value) }

// Del removes all values of name.
func (h *Headers) Del(name string) { h.raw.Del(name) }

// Has reports whether name has at least one value.
func (h *Headers) Has(name string) bool { return len(h.raw.Values(name)) > 0 }

// Names returns the set of header names present, in the stable
// textproto-canonical form. Order is not guaranteed (Go maps don't preserve
// insertion order); callers needing insertion order should track it
// themselves as they Add.
func (h *Headers) Names() []string {
	names := make([]string, 0, len(h.raw))
	for name := range h.raw {
		names = append(names, name)
	}
	return names
}

// GetBinary returns the decoded bytes of a binary ("-Bin"-suffixed) header.
// The wire representation is standard base64; this returns the raw bytes.
func (h *Headers) GetBinary(name string) ([]byte, error) {
	name = ensureBinarySuffix(name)
	v := h.raw.Get(name)
	if v == "" {
		return nil, nil
	}
	return decodeBinaryHeader(v)
}

// SetBinary encodes value as base64 and stores it under the "-Bin"-suffixed
// form of name.
func (h *Headers) SetBinary(name string, value []byte) {
	name = ensureBinarySuffix(name)
	h.raw.Set(name, base64.StdEncoding.EncodeToString(value))
}

func ensureBinarySuffix(name string) string {
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(binaryHeaderValueSuffix)) {
		return name
	}
	return name + binaryHeaderValueSuffix
}

// decodeBinaryHeader accepts both padded-standard and unpadded-standard
// base64, since intermediaries sometimes strip trailing '='.
func decodeBinaryHeader(v string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(v)
}

// Merge copies every value from src into h, preserving src's order.
func (h *Headers) Merge(src *Headers) {
	if src == nil {
		return
	}
	for name, values := range src.raw {
		for _, v := range values {
			h.raw.Add(name, v)
		}
	}
}

// Clone returns a deep copy of h.
func (h *Headers) Clone() *Headers {
	return &Headers{raw: h.raw.Clone()}
}

// canonicalHeaderName exposes textproto's canonicalization so callers
// comparing names don't need to special-case it.
func canonicalHeaderName(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// ParseTimeout parses the value of a Connect-Timeout-Ms header: a
// non-negative decimal integer that fits in 64 bits. Anything else is a
// protocol violation (spec §4.5).
func ParseTimeout(value string) (ms int64, err error) {
	if value == "" {
		return 0, NewError(CodeInvalidArgument, "missing timeout value")
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0, NewErrorf(CodeInvalidArgument, "invalid Connect-Timeout-Ms value %q", value)
		}
	}
	ms, err = strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, NewErrorf(CodeInvalidArgument, "invalid Connect-Timeout-Ms value %q: %w", value, err)
	}
	return ms, nil
}

// CheckProtocolVersion validates the Connect-Protocol-Version header. An
// empty value is tolerated only when required is false (some deployments
// don't enforce the header on GET requests); any other mismatch is an
// invalid_argument error.
func CheckProtocolVersion(value string, required bool) error {
	if value == "" {
		if required {
			return NewError(CodeInvalidArgument, "missing Connect-Protocol-Version header")
		}
		return nil
	}
	if value != protocolVersion {
		return NewErrorf(CodeInvalidArgument, "unsupported Connect-Protocol-Version %q", value)
	}
	return nil
}
