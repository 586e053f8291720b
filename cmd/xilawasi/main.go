package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "<unknown>"

func configureCLI() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "xilawasi",
		Short:         "Run WASI modules on a Xila kernel",
		Long:          "xilawasi - run WebAssembly commands against a Xila kernel file system",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCommand.AddCommand(runCommand())
	return rootCommand
}

func main() {
	rootCommand := configureCLI()

	if err := rootCommand.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(int(exit.code))
		}

		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
