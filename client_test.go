package connectrt

import (
	"context"
	"net/http/httptest"
	"testing"

	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestClientCallUnarySuccess(t *testing.T) {
	reg := NewRegistry()
	err := RegisterUnary[wrapperspb.StringValue, wrapperspb.StringValue](
		reg, "echo.Echo/Say", IdempotencyNoSideEffects,
		func(ctx *RequestContext, req *Request[wrapperspb.StringValue]) (*Response[wrapperspb.StringValue], error) {
			return NewResponse(wrapperspb.String("echo: " + req.Msg.Value)), nil
		},
	)
	if err != nil {
		t.Fatalf("RegisterUnary: %v", err)
	}
	srv := httptest.NewServer(reg.Handler(""))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	spec := MethodSpec{FullName: "echo.Echo/Say", Kind: StreamTypeUnary, Idempotency: IdempotencyNoSideEffects}
	req := wrapperspb.String("hi")
	resp := &wrapperspb.StringValue{}
	if _, _, err := client.CallUnary(context.Background(), spec, req, resp, CallOptions{}); err != nil {
		t.Fatalf("CallUnary: %v", err)
	}
	if resp.Value != "echo: hi" {
		t.Fatalf("got %q, want %q", resp.Value, "echo: hi")
	}
}

func TestClientCallUnaryUsesGETForNoSideEffects(t *testing.T) {
	reg := NewRegistry()
	err := RegisterUnary[wrapperspb.StringValue, wrapperspb.StringValue](
		reg, "echo.Echo/Say", IdempotencyNoSideEffects,
		func(ctx *RequestContext, req *Request[wrapperspb.StringValue]) (*Response[wrapperspb.StringValue], error) {
			return NewResponse(wrapperspb.String("got: " + req.Msg.Value)), nil
		},
	)
	if err != nil {
		t.Fatalf("RegisterUnary: %v", err)
	}
	srv := httptest.NewServer(reg.Handler(""))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	spec := MethodSpec{FullName: "echo.Echo/Say", Kind: StreamTypeUnary, Idempotency: IdempotencyNoSideEffects}
	resp := &wrapperspb.StringValue{}
	_, _, err = client.CallUnary(context.Background(), spec, wrapperspb.String("via-get"), resp, CallOptions{UseGET: true})
	if err != nil {
		t.Fatalf("CallUnary: %v", err)
	}
	if resp.Value != "got: via-get" {
		t.Fatalf("got %q, want %q", resp.Value, "got: via-get")
	}
}

func TestClientCallUnaryErrorDecodesStructuredBody(t *testing.T) {
	reg := NewRegistry()
	err := RegisterUnary[wrapperspb.StringValue, wrapperspb.StringValue](
		reg, "echo.Echo/Fail", IdempotencyUnknown,
		func(ctx *RequestContext, req *Request[wrapperspb.StringValue]) (*Response[wrapperspb.StringValue], error) {
			return nil, NewError(CodeNotFound, "missing")
		},
	)
	if err != nil {
		t.Fatalf("RegisterUnary: %v", err)
	}
	srv := httptest.NewServer(reg.Handler(""))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	spec := MethodSpec{FullName: "echo.Echo/Fail", Kind: StreamTypeUnary}
	resp := &wrapperspb.StringValue{}
	_, _, err = client.CallUnary(context.Background(), spec, wrapperspb.String("x"), resp, CallOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("code = %v, want not_found", CodeOf(err))
	}
}

func TestClientCallStreamServerStreaming(t *testing.T) {
	reg := NewRegistry()
	err := RegisterServerStream[durationpb.Duration, wrapperspb.StringValue](
		reg, "ticker.Ticker/Count",
		func(ctx *RequestContext, req *Request[durationpb.Duration], stream *ServerStream[wrapperspb.StringValue]) error {
			for i := 0; i < 3; i++ {
				if err := stream.Send(wrapperspb.String("tick")); err != nil {
					return err
				}
			}
			return nil
		},
	)
	if err != nil {
		t.Fatalf("RegisterServerStream: %v", err)
	}
	srv := httptest.NewServer(reg.Handler(""))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	spec := MethodSpec{FullName: "ticker.Ticker/Count", Kind: StreamTypeServer}
	conn, err := client.CallStream(context.Background(), spec, CallOptions{})
	if err != nil {
		t.Fatalf("CallStream: %v", err)
	}
	if err := conn.Send(durationpb.New(0)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := conn.CloseSend(); err != nil {
		t.Fatalf("CloseSend: %v", err)
	}

	count := 0
	for {
		msg := &wrapperspb.StringValue{}
		err := conn.Receive(msg)
		if err != nil {
			break
		}
		if msg.Value != "tick" {
			t.Fatalf("got %q, want tick", msg.Value)
		}
		count++
	}
	if count != 3 {
		t.Fatalf("received %d messages, want 3", count)
	}
	_ = conn.Close()
}
