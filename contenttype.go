package connectrt

import "strings"

// contentTypeInfo is the result of parsing an inbound Content-Type header
// against the Connect protocol's two families (spec §4.8).
type contentTypeInfo struct {
	streaming bool   // true for application/connect+<subtype>
	subtype   string // "proto" or "json" (or whatever codec name was sent)
	ok        bool
}

const (
	unaryPrefix     = "application/"
	streamingPrefix = "application/connect+"
)

// parseContentType splits a Content-Type header value into its Connect
// protocol family and codec subtype. Parameters (e.g. "; charset=utf-8")
// are ignored, matching the teacher's plain-string content-type matching
// generalized to accept an arbitrary registered subtype rather than a
// fixed proto/json pair.
func parseContentType(value string) contentTypeInfo {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	value = strings.ToLower(value)

	switch {
	case strings.HasPrefix(value, streamingPrefix):
		subtype := strings.TrimPrefix(value, streamingPrefix)
		if subtype == "" {
			return contentTypeInfo{}
		}
		return contentTypeInfo{streaming: true, subtype: subtype, ok: true}
	case strings.HasPrefix(value, unaryPrefix):
		subtype := strings.TrimPrefix(value, unaryPrefix)
		if subtype == "" {
			return contentTypeInfo{}
		}
		return contentTypeInfo{streaming: false, subtype: subtype, ok: true}
	default:
		return contentTypeInfo{}
	}
}

// buildContentType renders the Content-Type header value for an outbound
// message of the given subtype and kind.
func buildContentType(subtype string, streaming bool) string {
	if streaming {
		return streamingPrefix + subtype
	}
	return unaryPrefix + subtype
}
