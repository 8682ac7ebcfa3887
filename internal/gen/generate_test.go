package gen

import (
	"strings"
	"testing"

	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/connectrt/connectrt/internal/testfixture"
)

const greetProto = `
syntax = "proto3";

package greet.v1;

option go_package = "github.com/connectrt/connectrt/internal/gen/testdata/greetv1;greetv1";

message GreetRequest {
  string name = 1;
}

message GreetReply {
  string message = 1;
}

service GreetService {
  rpc Greet(GreetRequest) returns (GreetReply);
  rpc GreetStream(GreetRequest) returns (stream GreetReply);
}
`

func compilePlugin(t *testing.T, source string) *protogen.Plugin {
	t.Helper()

	fd, _, err := testfixture.Compile(source)
	if err != nil {
		t.Fatalf("testfixture.Compile: %v", err)
	}
	fdProto := protodesc.ToFileDescriptorProto(fd)

	req := &pluginpb.CodeGeneratorRequest{
		FileToGenerate: []string{fdProto.GetName()},
		ProtoFile:      []*descriptorpb.FileDescriptorProto{fdProto},
	}
	plugin, err := protogen.New(req, nil)
	if err != nil {
		t.Fatalf("protogen.New: %v", err)
	}
	return plugin
}

func TestGenerateEmitsServiceProtocolAndClients(t *testing.T) {
	plugin := compilePlugin(t, greetProto)

	if err := Generate(plugin); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	resp := plugin.Response()
	if resp.Error != nil {
		t.Fatalf("plugin error: %s", resp.GetError())
	}
	if len(resp.File) != 1 {
		t.Fatalf("len(resp.File) = %d, want 1", len(resp.File))
	}

	file := resp.File[0]
	if !strings.HasSuffix(file.GetName(), fileSuffix) {
		t.Fatalf("generated file name = %q, want suffix %q", file.GetName(), fileSuffix)
	}

	content := file.GetContent()
	for _, want := range []string{
		"type GreetServiceHandler interface",
		"Greet(ctx *connectrt.RequestContext, req *connectrt.Request[GreetRequest]) (*connectrt.Response[GreetReply], error)",
		"GreetStream(ctx *connectrt.RequestContext, req *connectrt.Request[GreetRequest], stream *connectrt.ServerStream[GreetReply]) error",
		"func RegisterGreetServiceHandler(reg *connectrt.Registry, impl GreetServiceHandler) error",
		"connectrt.RegisterUnary[GreetRequest, GreetReply](reg, \"greet.v1.GreetService/Greet\"",
		"connectrt.RegisterServerStream[GreetRequest, GreetReply](reg, \"greet.v1.GreetService/GreetStream\"",
		"type GreetServiceClient struct",
		"func NewGreetServiceClient(client *connectrt.Client) *GreetServiceClient",
		"type GreetServiceGreetStreamStream struct",
		"type GreetServiceAsyncClient struct",
		"type GreetServiceGreetFuture struct",
		"func (f *GreetServiceGreetFuture) Wait() (*GreetReply, error)",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("generated content missing %q\n---\n%s", want, content)
		}
	}
}

func TestGenerateSkipsFilesWithoutServices(t *testing.T) {
	plugin := compilePlugin(t, `
syntax = "proto3";

package greet.v1;

option go_package = "github.com/connectrt/connectrt/internal/gen/testdata/greetv1;greetv1";

message GreetRequest {
  string name = 1;
}
`)

	if err := Generate(plugin); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp := plugin.Response(); len(resp.File) != 0 {
		t.Fatalf("len(resp.File) = %d, want 0 for a service-free file", len(resp.File))
	}
}
