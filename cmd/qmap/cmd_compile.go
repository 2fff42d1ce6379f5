package main

import (
	"context"
	"fmt"

	"github.com/qbloq/qmap"
	"github.com/spf13/cobra"
)

var inlineSQL bool

// compileCmd creates the compile command
func compileCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "compile <file.yml>",
		Short: "Compile a query file to SQL without running it",
		Long:  "Print the SQL and parameters each operation in the file compiles to. No database connection is made.",
		Args:  cobra.ExactArgs(1),
		Run:   cmdCompile,
	}
	c.Flags().BoolVar(&inlineSQL, "inline", false, "Inline parameter values into the SQL")
	return c
}

// cmdCompile is the handler for the compile subcommand
func cmdCompile(_ *cobra.Command, args []string) {
	setup(cpath)

	ops, err := readQueryFile(args[0])
	if err != nil {
		log.Fatalf("%s", err)
	}

	qm, err := qmap.New(&conf.Core, nil, qmap.OptionDryRun())
	if err != nil {
		log.Fatalf("%s", err)
	}

	c := context.Background()
	for i, op := range ops {
		if _, err := qm.Batch(c, []qmap.Op{op}); err != nil {
			log.Fatalf("op %d: %s", i+1, err)
		}
		st, ok := qm.Last()
		if !ok {
			continue
		}

		if inlineSQL {
			fmt.Println(qmap.InlineSQL(st))
			continue
		}

		fmt.Println(st.SQL)
		for _, p := range st.Params {
			fmt.Printf("  :%s = %v\n", p.Name, p.Value)
		}
	}
}
