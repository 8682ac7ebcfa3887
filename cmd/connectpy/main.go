// Command connectpy is the connectrt CLI: it drives the connect-python
// service stub generator directly against .proto files, without requiring
// protoc or the generator plugin binary on $PATH.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/connectrt/connectrt/cmd/connectpy/commands"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "connectpy",
		Short: "Generate connectrt service stubs from .proto files",
		Long: `connectpy compiles .proto files and generates connectrt service stubs: a
service protocol interface, a registration function, and sync + async
clients per service.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.AddCommand(
		commands.NewGenerateCommand(),
		commands.NewVersionCommand(version, commit, buildDate),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
