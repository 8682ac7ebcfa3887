// Command protoc-gen-connect-python is the protoc plugin that emits
// connectrt service stubs: a service protocol interface, a registration
// function, and sync + async clients for every service in a .proto file.
// Invoke it via protoc's --connect-python_out flag, or through the connectpy
// generate command, which drives it without requiring protoc on $PATH.
package main

import (
	"google.golang.org/protobuf/compiler/protogen"
	"google.golang.org/protobuf/types/pluginpb"

	"github.com/connectrt/connectrt/internal/gen"
)

func main() {
	protogen.Options{}.Run(func(p *protogen.Plugin) error {
		p.SupportedFeatures = uint64(pluginpb.CodeGeneratorResponse_FEATURE_PROTO3_OPTIONAL)
		return gen.Generate(p)
	})
}
