package connectrt

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// h2cClient builds an http.Client that speaks cleartext HTTP/2 to srv, the
// client-side half of the h2c.NewHandler server wrapping below. Needed
// because net/http's default transport only upgrades to h2c over a prior
// knowledge handshake when told to, and a plain HTTP/1.1 round trip can't
// overlap request/response bodies the way full-duplex bidi streaming needs.
func h2cClient() *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return net.Dial(network, addr)
			},
		},
	}
}

// TestBidiStreamFullDuplexOverH2C exercises a genuine interleaved
// send/receive bidi call (spec §5 ADD: h2c test fixture) rather than a
// request-then-response approximation: the client sends a message, reads the
// echoed reply, and repeats, proving the server's single-goroutine
// alternating Receive/Send (engine_stream.go) actually delivers frames as
// they're produced instead of buffering the whole response.
func TestBidiStreamFullDuplexOverH2C(t *testing.T) {
	reg := NewRegistry()
	err := RegisterBidiStream[wrapperspb.StringValue, wrapperspb.StringValue](
		reg, "echo.Echo/Chat",
		func(ctx *RequestContext, stream *BidiStream[wrapperspb.StringValue, wrapperspb.StringValue]) error {
			for {
				msg, err := stream.Receive()
				if err != nil {
					return ignoreEOF(err)
				}
				if err := stream.Send(wrapperspb.String("echo: " + msg.Value)); err != nil {
					return err
				}
			}
		},
	)
	if err != nil {
		t.Fatalf("RegisterBidiStream: %v", err)
	}

	srv := httptest.NewServer(h2c.NewHandler(reg.Handler(""), &http2.Server{}))
	defer srv.Close()

	client := NewClient(srv.URL, h2cClient())
	spec := MethodSpec{FullName: "echo.Echo/Chat", Kind: StreamTypeBidi}
	conn, err := client.CallStream(context.Background(), spec, CallOptions{})
	if err != nil {
		t.Fatalf("CallStream: %v", err)
	}
	defer conn.Close()

	for i, word := range []string{"one", "two", "three"} {
		if err := conn.Send(wrapperspb.String(word)); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
		got := &wrapperspb.StringValue{}
		if err := conn.Receive(got); err != nil {
			t.Fatalf("Receive(%d): %v", i, err)
		}
		if want := "echo: " + word; got.Value != want {
			t.Fatalf("Receive(%d) = %q, want %q", i, got.Value, want)
		}
	}
	if err := conn.CloseSend(); err != nil {
		t.Fatalf("CloseSend: %v", err)
	}
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
