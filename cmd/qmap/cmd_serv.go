package main

import (
	"fmt"
	"os"

	"github.com/qbloq/qmap/serv"
	"github.com/spf13/cobra"
)

const (
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

// printBanner prints the ASCII art banner on startup
func printBanner() {
	cyan := colorCyan
	reset := colorReset

	// Respect NO_COLOR environment variable for CI environments
	if os.Getenv("NO_COLOR") != "" {
		cyan = ""
		reset = ""
	}

	fmt.Printf(`
%s  ██████╗ ███╗   ███╗ █████╗ ██████╗
 ██╔═══██╗████╗ ████║██╔══██╗██╔══██╗
 ██║   ██║██╔████╔██║███████║██████╔╝
 ██║▄▄ ██║██║╚██╔╝██║██╔══██║██╔═══╝
 ╚██████╔╝██║ ╚═╝ ██║██║  ██║██║
  ╚══▀▀═╝ ╚═╝     ╚═╝╚═╝  ╚═╝╚═╝%s

`, cyan, reset)
}

// servCmd is the cobra CLI command for the serve subcommand
func servCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"serv"},
		Short:   "Run the qmap service",
		Run:     cmdServ,
	}
}

// cmdServ is the handler for the serve subcommand
func cmdServ(*cobra.Command, []string) {
	printBanner()
	setup(cpath)

	qs, err := serv.NewQMapService(conf)
	if err != nil {
		log.Fatalf("%s", err)
	}

	if err := qs.Start(); err != nil {
		log.Fatalf("%s", err)
	}
}
