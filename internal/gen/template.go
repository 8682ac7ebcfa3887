package gen

import (
	"bytes"
	"fmt"
	"text/template"
)

// fileTemplate renders one complete generated Go source file: a service
// protocol interface, a registration function binding it to a
// *connectrt.Registry, and sync + async clients, per service. Method-kind
// differences (unary vs the three streaming shapes) are resolved before
// rendering — see genMethod's HandlerSig/RegisterCall/StreamTypeName/
// FutureTypeName — so the template itself stays a flat substitution rather
// than a kind switch repeated at every call site that needs one.
var fileTemplate = template.Must(template.New("connectrt_stub").Parse(`// Code generated by protoc-gen-connect-python. DO NOT EDIT.
{{range .Services}}{{$svc := .}}
// {{.Name}}Handler is the service protocol for {{.FullName}}: one method per
// RPC, implemented by the application and bound to a *connectrt.Registry by
// Register{{.Name}}Handler.
type {{.Name}}Handler interface {
{{range .Methods}}	{{.Name}}{{.HandlerSig}}
{{end}}}

// Register{{.Name}}Handler registers every {{.FullName}} method on reg,
// dispatching to impl.
func Register{{.Name}}Handler(reg *connectrt.Registry, impl {{.Name}}Handler) error {
{{range .Methods}}	if err := {{.RegisterCall}}; err != nil {
		return err
	}
{{end}}	return nil
}
{{range .Methods}}{{if .StreamTypeName}}
// {{.StreamTypeName}} is the client-side stream handle for {{.Name}}.
type {{.StreamTypeName}} struct {
	conn *connectrt.ClientConn
}

// Send encodes and frames msg as the next outbound message.
func (s *{{.StreamTypeName}}) Send(msg *{{.InputGo}}) error { return s.conn.Send(msg) }

// Receive decodes the next inbound message.
func (s *{{.StreamTypeName}}) Receive() (*{{.OutputGo}}, error) {
	msg := &{{.OutputGo}}{}
	if err := s.conn.Receive(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// CloseSend half-closes the outbound side of the stream.
func (s *{{.StreamTypeName}}) CloseSend() error { return s.conn.CloseSend() }

// Close releases the underlying connection.
func (s *{{.StreamTypeName}}) Close() error { return s.conn.Close() }
{{end}}{{end}}
// {{.Name}}Client is the synchronous client for {{.FullName}}.
type {{.Name}}Client struct {
	client *connectrt.Client
}

// New{{.Name}}Client returns a {{.Name}}Client issuing calls through client.
func New{{.Name}}Client(client *connectrt.Client) *{{.Name}}Client {
	return &{{.Name}}Client{client: client}
}
{{range .Methods}}
{{if .IsUnary}}// {{.Name}} calls {{.FullName}}. Set opts.UseGET to issue it as an HTTP
// GET instead of POST; honored only when the method was registered with
// IdempotencyNoSideEffects.
func (c *{{$svc.Name}}Client) {{.Name}}(ctx context.Context, req *{{.InputGo}}, opts connectrt.CallOptions) (*{{.OutputGo}}, error) {
	resp := &{{.OutputGo}}{}
	spec := connectrt.MethodSpec{FullName: {{.FullName | printf "%q"}}, Kind: {{.KindGo}}, Idempotency: {{.IdempotencyGo}}}
	if _, _, err := c.client.CallUnary(ctx, spec, req, resp, opts); err != nil {
		return nil, err
	}
	return resp, nil
}
{{else}}// {{.Name}} opens a {{.StreamTypeName}} for {{.FullName}}.
func (c *{{$svc.Name}}Client) {{.Name}}(ctx context.Context, opts connectrt.CallOptions) (*{{.StreamTypeName}}, error) {
	spec := connectrt.MethodSpec{FullName: {{.FullName | printf "%q"}}, Kind: {{.KindGo}}}
	conn, err := c.client.CallStream(ctx, spec, opts)
	if err != nil {
		return nil, err
	}
	return &{{.StreamTypeName}}{conn: conn}, nil
}
{{end}}{{end}}
{{range .Methods}}{{if .FutureTypeName}}
// {{.FutureTypeName}} is the pending result of an async {{.Name}} call.
type {{.FutureTypeName}} struct {
	done chan struct{}
	resp *{{.OutputGo}}
	err  error
}

// Wait blocks until the call completes and returns its result.
func (f *{{.FutureTypeName}}) Wait() (*{{.OutputGo}}, error) {
	<-f.done
	return f.resp, f.err
}
{{end}}{{end}}
// {{.Name}}AsyncClient wraps {{.Name}}Client so a caller doesn't block on
// each unary call: every method launches the request on its own goroutine
// and returns a future the caller waits on when it needs the result.
// Streaming methods are already non-blocking to open (Client.CallStream
// itself returns before the HTTP round trip's response headers arrive), so
// the async client simply forwards them to the sync client unchanged.
type {{.Name}}AsyncClient struct {
	sync *{{.Name}}Client
}

// New{{.Name}}AsyncClient returns a {{.Name}}AsyncClient issuing calls
// through client.
func New{{.Name}}AsyncClient(client *connectrt.Client) *{{.Name}}AsyncClient {
	return &{{.Name}}AsyncClient{sync: New{{.Name}}Client(client)}
}
{{range .Methods}}
{{if .IsUnary}}// {{.Name}} starts {{.FullName}} without blocking and returns a future for
// its result.
func (c *{{$svc.Name}}AsyncClient) {{.Name}}(ctx context.Context, req *{{.InputGo}}, opts connectrt.CallOptions) *{{.FutureTypeName}} {
	fut := &{{.FutureTypeName}}{done: make(chan struct{})}
	go func() {
		defer close(fut.done)
		fut.resp, fut.err = c.sync.{{.Name}}(ctx, req, opts)
	}()
	return fut
}
{{else}}// {{.Name}} opens a {{.StreamTypeName}} for {{.FullName}}.
func (c *{{$svc.Name}}AsyncClient) {{.Name}}(ctx context.Context, opts connectrt.CallOptions) (*{{.StreamTypeName}}, error) {
	return c.sync.{{.Name}}(ctx, opts)
}
{{end}}{{end}}
{{end}}`))

// Render renders f's template data into Go source text. It does not gofmt
// the result; protogen.GeneratedFile formats the final output itself when
// the plugin response is assembled.
//
// The template body above references the connectrt and context packages by
// their ordinary aliases as plain text, since branching every occurrence
// through QualifiedGoIdent would turn the template into the kind-switch it's
// meant to avoid. That's correct as long as protogen assigned them their
// ordinary aliases, which is true except in the rare case some message in
// the same file is itself named "connectrt" or "context" and forced
// protogen to rename one of these imports to dodge the collision — fix that
// case up here instead.
func Render(f *genFile) ([]byte, error) {
	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, f); err != nil {
		return nil, fmt.Errorf("gen: render template: %w", err)
	}
	rendered := buf.Bytes()
	if f.ConnectrtPkg != "connectrt" {
		rendered = bytes.ReplaceAll(rendered, []byte("connectrt."), []byte(f.ConnectrtPkg+"."))
	}
	if f.ContextPkg != "context" {
		rendered = bytes.ReplaceAll(rendered, []byte("context."), []byte(f.ContextPkg+"."))
	}
	return rendered, nil
}
