// Package grpcinterop maps between Connect error codes and gRPC status
// codes, for deployments that front both protocols behind the same handler
// set or that need to log a single numeric code across both (spec's D3
// ambient component).
package grpcinterop

import (
	"google.golang.org/grpc/codes"

	"github.com/connectrt/connectrt"
)

// codeTable is the closed Connect-code-to-gRPC-code table. Connect's codes
// are a direct rename of gRPC's, so this is a straight lookup rather than a
// lossy approximation.
var codeTable = map[connectrt.Code]codes.Code{
	connectrt.CodeCanceled:           codes.Canceled,
	connectrt.CodeUnknown:            codes.Unknown,
	connectrt.CodeInvalidArgument:    codes.InvalidArgument,
	connectrt.CodeDeadlineExceeded:   codes.DeadlineExceeded,
	connectrt.CodeNotFound:           codes.NotFound,
	connectrt.CodeAlreadyExists:      codes.AlreadyExists,
	connectrt.CodePermissionDenied:   codes.PermissionDenied,
	connectrt.CodeResourceExhausted:  codes.ResourceExhausted,
	connectrt.CodeFailedPrecondition: codes.FailedPrecondition,
	connectrt.CodeAborted:            codes.Aborted,
	connectrt.CodeOutOfRange:         codes.OutOfRange,
	connectrt.CodeUnimplemented:      codes.Unimplemented,
	connectrt.CodeInternal:           codes.Internal,
	connectrt.CodeUnavailable:        codes.Unavailable,
	connectrt.CodeDataLoss:           codes.DataLoss,
	connectrt.CodeUnauthenticated:    codes.Unauthenticated,
}

var reverseTable = func() map[codes.Code]connectrt.Code {
	m := make(map[codes.Code]connectrt.Code, len(codeTable))
	for c, g := range codeTable {
		m[g] = c
	}
	return m
}()

// ToGRPCCode converts a Connect code to its gRPC equivalent, defaulting to
// codes.Unknown for an unrecognized value.
func ToGRPCCode(c connectrt.Code) codes.Code {
	if g, ok := codeTable[c]; ok {
		return g
	}
	return codes.Unknown
}

// FromGRPCCode converts a gRPC code to its Connect equivalent, defaulting
// to CodeUnknown for an unrecognized value.
func FromGRPCCode(g codes.Code) connectrt.Code {
	if c, ok := reverseTable[g]; ok {
		return c
	}
	return connectrt.CodeUnknown
}
