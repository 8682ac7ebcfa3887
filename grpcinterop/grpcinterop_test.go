package grpcinterop

import (
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/connectrt/connectrt"
)

func TestRoundTripAllCodes(t *testing.T) {
	for c := range codeTable {
		g := ToGRPCCode(c)
		back := FromGRPCCode(g)
		if back != c {
			t.Fatalf("round trip broke for %v: got %v via %v", c, back, g)
		}
	}
}

func TestUnknownCodeFallsBackToUnknown(t *testing.T) {
	if got := ToGRPCCode(connectrt.Code("bogus")); got != codes.Unknown {
		t.Fatalf("got %v, want Unknown", got)
	}
	if got := FromGRPCCode(codes.Code(999)); got != connectrt.CodeUnknown {
		t.Fatalf("got %v, want CodeUnknown", got)
	}
}
