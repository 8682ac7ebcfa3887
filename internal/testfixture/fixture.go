// Package testfixture compiles protobuf source text into live descriptors
// for tests, so round-trip coverage doesn't depend on checked-in generated
// stubs — the same "no generated fixtures" constraint the runtime's own
// descriptor-driven codec (codec/factory.go) is built around.
package testfixture

import (
	"context"
	"fmt"

	"github.com/bufbuild/protocompile"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const fixtureFilename = "fixture.proto"

// Compile compiles a single proto3 source file on the fly and returns both a
// protoreflect.FileDescriptor (for the codec/dynamicpb path every other test
// in this module uses) and a jhump *desc.FileDescriptor view of the same
// file (for tests that build messages with jhump's dynamic.Message instead).
func Compile(source string) (protoreflect.FileDescriptor, *desc.FileDescriptor, error) {
	compiler := protocompile.Compiler{
		Resolver: &protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(map[string]string{fixtureFilename: source}),
		},
	}
	files, err := compiler.Compile(context.Background(), fixtureFilename)
	if err != nil {
		return nil, nil, fmt.Errorf("testfixture: compile: %w", err)
	}
	fd := files[0]

	fdProto := protodesc.ToFileDescriptorProto(fd)
	jhumpFD, err := desc.CreateFileDescriptor(fdProto)
	if err != nil {
		return nil, nil, fmt.Errorf("testfixture: build jhump descriptor: %w", err)
	}
	return fd, jhumpFD, nil
}

// DynamicMessage builds an empty jhump dynamic.Message for messageName
// ("pkg.Msg") within fd, the grpcdynamic-style message construction tests
// use instead of a checked-in generated type.
func DynamicMessage(fd *desc.FileDescriptor, messageName string) (*dynamic.Message, error) {
	md := fd.FindMessage(messageName)
	if md == nil {
		return nil, fmt.Errorf("testfixture: message %q not found", messageName)
	}
	return dynamic.NewMessage(md), nil
}
