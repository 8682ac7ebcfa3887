package connectrt

import (
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/protobuf/types/known/anypb"
)

// NewErrorInfoDetail builds a google.rpc.ErrorInfo detail (the gRPC/Google
// API error-model convention for "what exactly went wrong and whose fault is
// it") and wraps it as a [Detail] so it can be passed to [Error.AddDetail].
// reason should be a short UPPER_SNAKE_CASE enum-like string unique within
// domain, per the ErrorInfo.reason field's own documented convention.
func NewErrorInfoDetail(reason, domain string, metadata map[string]string) (*Detail, error) {
	info := &errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   domain,
		Metadata: metadata,
	}
	any, err := anypb.New(info)
	if err != nil {
		return nil, fmt.Errorf("connectrt: encode ErrorInfo detail: %w", err)
	}
	return any, nil
}

// ErrorInfo extracts the first google.rpc.ErrorInfo detail attached to err,
// if any. It returns (nil, false) when err carries no ErrorInfo detail and
// also when the first ErrorInfo detail fails to unmarshal; the two cases
// are not distinguished.
func ErrorInfo(err *Error) (*errdetails.ErrorInfo, bool) {
	for _, d := range err.Details() {
		if d.MessageIs((*errdetails.ErrorInfo)(nil)) {
			info := &errdetails.ErrorInfo{}
			if uerr := d.UnmarshalTo(info); uerr != nil {
				return nil, false
			}
			return info, true
		}
	}
	return nil, false
}
