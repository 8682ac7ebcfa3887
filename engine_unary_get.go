package connectrt

import (
	"encoding/base64"
	"net/http"

	"github.com/connectrt/connectrt/compress"
)

// decodeUnaryGET assembles the decoded, decompressed request message bytes
// from a GET request's query parameters (spec §4.6 GET path):
//
//	message     required, base64url (no padding) of the encoded message
//	             (or standard base64 with padding if base64=1)
//	encoding    required, codec subtype — validated by the caller against
//	             the negotiated codec, not here
//	compression optional, names the encoding message was compressed with
//	             before base64 encoding
//	base64      optional "1": message uses padded standard base64 instead
//	             of unpadded base64url
//	connect     required, protocol version, must be "v1"
func decodeUnaryGET(r *http.Request, compressors *compress.Registry) ([]byte, error) {
	q := r.URL.Query()

	if q.Get("connect") != "v1" {
		return nil, NewErrorf(CodeInvalidArgument, "missing or invalid connect query parameter")
	}
	if !q.Has("message") {
		return nil, NewErrorf(CodeInvalidArgument, "missing message query parameter")
	}
	if !q.Has("encoding") {
		return nil, NewErrorf(CodeInvalidArgument, "missing encoding query parameter")
	}

	raw := q.Get("message")
	var decoded []byte
	var err error
	if q.Get("base64") == "1" {
		decoded, err = base64.StdEncoding.DecodeString(raw)
	} else {
		decoded, err = base64.RawURLEncoding.DecodeString(raw)
	}
	if err != nil {
		return nil, NewErrorf(CodeInvalidArgument, "invalid message query parameter: %v", err)
	}

	if name := q.Get("compression"); name != "" && name != compress.Identity {
		compressor, ok := compressors.Lookup(name)
		if !ok {
			return nil, NewErrorf(CodeUnimplemented, "unsupported compression %q", name)
		}
		decoded, err = compressor.Decompress(decoded, 0)
		if err != nil {
			return nil, NewErrorf(CodeInvalidArgument, "decompress message: %v", err)
		}
	}

	return decoded, nil
}
