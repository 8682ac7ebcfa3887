package connectrt

import (
	"encoding/json"
	"net/http"
)

// writeUnaryError writes a Connect unary error response: the HTTP status
// from the closed code-to-status table (spec §4.4) and the wire JSON error
// body. It is used for both true unary endpoints and pre-stream dispatch
// failures — a streaming call that hasn't started yet (no headers flushed)
// fails exactly the same way a unary call would; only a failure after the
// first response byte is written falls back to an in-band EOS error
// (engine_stream.go's writeEndOfStream).
func writeUnaryError(w http.ResponseWriter, err error) {
	rpcErr := NewErrorFromGo(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rpcErr.Code().HTTPStatus())
	_ = json.NewEncoder(w).Encode(rpcErr)
}
