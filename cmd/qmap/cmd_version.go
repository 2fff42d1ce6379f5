package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// versionCmd prints the build details
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "qmap binary version information",
		Run:   cmdVersion,
	}
}

func cmdVersion(*cobra.Command, []string) {
	fmt.Println(BuildDetails())
}

// BuildDetails returns the build details set via -ldflags
func BuildDetails() string {
	if version == "" {
		return `
qmap (unknown version)
For documentation visit https://github.com/qbloq/qmap

To build with version information please use the Makefile
> git clone https://github.com/qbloq/qmap
> cd qmap && make install
`
	}

	return fmt.Sprintf(`
qmap %v
For documentation visit https://github.com/qbloq/qmap

Commit SHA-1          : %v
Commit timestamp      : %v
Go version            : %v

Licensed under the Apache Public License 2.0
`,
		version,
		commit,
		date,
		runtime.Version())
}
