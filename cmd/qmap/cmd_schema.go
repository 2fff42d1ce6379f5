package main

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/qbloq/qmap/serv"
	"github.com/spf13/cobra"
)

// schemaCmd creates the config schema command
func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the config file",
		Long:  "Print a JSON schema describing every config option, for editor validation and docs",
		Run:   cmdSchema,
	}
}

// cmdSchema is the handler for the schema subcommand
func cmdSchema(*cobra.Command, []string) {
	r := &jsonschema.Reflector{
		KeyNamer:       keyNamer,
		ExpandedStruct: true,
	}

	s := r.Reflect(&serv.Config{})

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Fatalf("%s", err)
	}
	fmt.Println(string(b))
}

// keyNamer matches the snake_case keys viper reads from the config file
func keyNamer(name string) string {
	out := make([]rune, 0, len(name)+4)
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
