package gen

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/compiler/protogen"
)

// Generate walks every file protoc asked to generate and, for each one that
// declares at least one service, emits its connectrt stub (spec §6's
// generator output contract: one output file per input file with ≥1
// service, named by replacing the proto extension with a fixed suffix).
func Generate(gen *protogen.Plugin) error {
	for _, f := range gen.Files {
		if !f.Generate || len(f.Services) == 0 {
			continue
		}
		if err := generateFile(gen, f); err != nil {
			return fmt.Errorf("gen: %s: %w", f.Desc.Path(), err)
		}
	}
	return nil
}

func generateFile(gen *protogen.Plugin, f *protogen.File) error {
	filename := strings.TrimSuffix(f.Desc.Path(), ".proto") + fileSuffix
	g := gen.NewGeneratedFile(filename, f.GoImportPath)

	// buildGenFile resolves connectrt, context, and every referenced message
	// type through g via QualifiedGoIdent, which registers the imports those
	// identifiers need as a side effect — it must run before Render so the
	// body it renders and the package's finished import block (protogen
	// assembles that automatically) agree on what's imported.
	data := buildGenFile(g, f)

	body, err := Render(data)
	if err != nil {
		return err
	}
	g.P(string(body))
	return nil
}
