// Package gen builds generated-file data models from a protoc plugin
// request and renders them with text/template, the same two-step shape
// protoc-gen-go itself uses (gather Go-qualified identifiers first, since
// that's also when imports get registered, then render text once every name
// is known).
package gen

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/types/descriptorpb"
)

// fileSuffix matches spec §6's generator output contract: the input file's
// path with its proto extension replaced by this fixed suffix.
const fileSuffix = "_connectrt.pb.go"

const (
	connectrtImportPath = protogen.GoImportPath("github.com/connectrt/connectrt")
	contextImportPath   = protogen.GoImportPath("context")
)

// methodKind distinguishes the four RPC shapes.
type methodKind int

const (
	kindUnary methodKind = iota
	kindClientStream
	kindServerStream
	kindBidiStream
)

// genMethod is the per-RPC data the template renders. HandlerSig and
// RegisterCall are pre-rendered Go source fragments (rather than template
// branches) because the four RPC kinds produce structurally different
// signatures and register calls; computing them once in Go keeps the
// template itself a flat, per-method substitution instead of a kind switch
// repeated at every call site that needs one.
type genMethod struct {
	// Name is the Go-exported method name, e.g. "Greet".
	Name string
	// FullName is "pkg.Service/Method", the wire routing key (spec §3).
	FullName string
	Kind     methodKind
	// InputGo and OutputGo are fully Go-qualified type names (e.g.
	// "greetv1.GreetRequest"), resolved via protogen.GeneratedFile so the
	// needed imports are registered as a side effect of computing them.
	InputGo, OutputGo string

	// HandlerSig is the parameter/return portion of the service protocol
	// method, e.g. "(ctx *connectrt.RequestContext, req
	// *connectrt.Request[GreetRequest]) (*connectrt.Response[GreetReply], error)".
	HandlerSig string
	// RegisterCall is the full connectrt.RegisterX(...) expression that
	// wires impl.<Name> into a *connectrt.Registry.
	RegisterCall string
	// KindGo and IdempotencyGo are the connectrt.StreamTypeX /
	// connectrt.IdempotencyX expressions used in the client's
	// MethodSpec literal.
	KindGo, IdempotencyGo string
	// StreamTypeName is the generated client-side stream wrapper type
	// name for a streaming method; empty for unary methods.
	StreamTypeName string
	// FutureTypeName is the generated async-client future type name for
	// a unary method; empty for streaming methods.
	FutureTypeName string
}

func (m genMethod) IsUnary() bool { return m.Kind == kindUnary }

// genService is one service's worth of methods.
type genService struct {
	// Name is the Go-exported service name, e.g. "GreetService".
	Name string
	// FullName is the dotted protobuf service name, e.g. "greet.v1.GreetService".
	FullName string
	Methods  []genMethod
}

// genFile is the whole-file template input. ConnectrtPkg/ContextPkg carry
// the aliases protogen assigned those two imports (ordinarily "connectrt"
// and "context"); Render substitutes them into the template's literal
// "connectrt."/"context." text in the rare case protogen had to rename
// either import to avoid a collision with something else in the file.
type genFile struct {
	Services     []genService
	ConnectrtPkg string
	ContextPkg   string
}

// buildGenFile walks f's services/methods into the template data model,
// resolving every message type name through g so generated imports line up
// with what protoc-gen-go would have emitted for the same .proto file.
func buildGenFile(g *protogen.GeneratedFile, f *protogen.File) *genFile {
	rt := resolvePackageAlias(g, connectrtImportPath)
	ctx := resolvePackageAlias(g, contextImportPath)

	data := &genFile{ConnectrtPkg: rt, ContextPkg: ctx}
	for _, svc := range f.Services {
		gs := genService{
			Name:     svc.GoName,
			FullName: string(svc.Desc.FullName()),
		}
		for _, m := range svc.Methods {
			gs.Methods = append(gs.Methods, buildGenMethod(g, svc, m, rt))
		}
		data.Services = append(data.Services, gs)
	}
	return data
}

// resolvePackageAlias forces path to be imported (even though the template
// text below references it as plain string literals rather than through
// QualifiedGoIdent at every call site) and reports the alias protogen
// assigned it. Asking for an empty-named identifier is a way of asking
// QualifiedGoIdent for "just the package prefix" — it returns "<alias>."
// when path differs from the file being generated, and "" only if path is
// literally the output file's own package, which never happens here since
// generated stub files always live in the target .proto's own go_package.
func resolvePackageAlias(g *protogen.GeneratedFile, path protogen.GoImportPath) string {
	prefixed := g.QualifiedGoIdent(protogen.GoIdent{GoImportPath: path})
	alias := strings.TrimSuffix(prefixed, ".")
	if alias == "" {
		alias = string(path)
	}
	return alias
}

func buildGenMethod(g *protogen.GeneratedFile, svc *protogen.Service, m *protogen.Method, rt string) genMethod {
	kind := kindUnary
	switch {
	case m.Desc.IsStreamingClient() && m.Desc.IsStreamingServer():
		kind = kindBidiStream
	case m.Desc.IsStreamingClient():
		kind = kindClientStream
	case m.Desc.IsStreamingServer():
		kind = kindServerStream
	}
	noSideEffects := false
	if opts, ok := m.Desc.Options().(*descriptorpb.MethodOptions); ok && opts != nil {
		noSideEffects = opts.GetIdempotencyLevel() == descriptorpb.MethodOptions_NO_SIDE_EFFECTS
	}

	gm := genMethod{
		Name:     m.GoName,
		FullName: fmt.Sprintf("%s/%s", svc.Desc.FullName(), m.Desc.Name()),
		Kind:     kind,
		InputGo:  g.QualifiedGoIdent(m.Input.GoIdent),
		OutputGo: g.QualifiedGoIdent(m.Output.GoIdent),
	}

	switch kind {
	case kindClientStream, kindServerStream, kindBidiStream:
		gm.StreamTypeName = svc.GoName + gm.Name + "Stream"
	}
	switch kind {
	case kindClientStream:
		gm.KindGo = rt + ".StreamTypeClient"
	case kindServerStream:
		gm.KindGo = rt + ".StreamTypeServer"
	case kindBidiStream:
		gm.KindGo = rt + ".StreamTypeBidi"
	default:
		gm.KindGo = rt + ".StreamTypeUnary"
	}
	if noSideEffects {
		gm.IdempotencyGo = rt + ".IdempotencyNoSideEffects"
	} else {
		gm.IdempotencyGo = rt + ".IdempotencyUnknown"
	}

	switch kind {
	case kindUnary:
		gm.HandlerSig = fmt.Sprintf(
			"(ctx *%[1]s.RequestContext, req *%[1]s.Request[%[2]s]) (*%[1]s.Response[%[3]s], error)",
			rt, gm.InputGo, gm.OutputGo)
		gm.RegisterCall = fmt.Sprintf(
			"%[1]s.RegisterUnary[%[2]s, %[3]s](reg, %[4]q, %[5]s, impl.%[6]s)",
			rt, gm.InputGo, gm.OutputGo, gm.FullName, gm.IdempotencyGo, gm.Name)
		gm.FutureTypeName = svc.GoName + gm.Name + "Future"
	case kindClientStream:
		gm.HandlerSig = fmt.Sprintf(
			"(ctx *%[1]s.RequestContext, stream *%[1]s.ClientStream[%[2]s]) (*%[1]s.Response[%[3]s], error)",
			rt, gm.InputGo, gm.OutputGo)
		gm.RegisterCall = fmt.Sprintf(
			"%[1]s.RegisterClientStream[%[2]s, %[3]s](reg, %[4]q, impl.%[5]s)",
			rt, gm.InputGo, gm.OutputGo, gm.FullName, gm.Name)
	case kindServerStream:
		gm.HandlerSig = fmt.Sprintf(
			"(ctx *%[1]s.RequestContext, req *%[1]s.Request[%[2]s], stream *%[1]s.ServerStream[%[3]s]) error",
			rt, gm.InputGo, gm.OutputGo)
		gm.RegisterCall = fmt.Sprintf(
			"%[1]s.RegisterServerStream[%[2]s, %[3]s](reg, %[4]q, impl.%[5]s)",
			rt, gm.InputGo, gm.OutputGo, gm.FullName, gm.Name)
	case kindBidiStream:
		gm.HandlerSig = fmt.Sprintf(
			"(ctx *%[1]s.RequestContext, stream *%[1]s.BidiStream[%[2]s, %[3]s]) error",
			rt, gm.InputGo, gm.OutputGo)
		gm.RegisterCall = fmt.Sprintf(
			"%[1]s.RegisterBidiStream[%[2]s, %[3]s](reg, %[4]q, impl.%[5]s)",
			rt, gm.InputGo, gm.OutputGo, gm.FullName, gm.Name)
	}
	return gm
}
