package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/qbloq/qmap"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// queryOp is one declarative operation read from a query file
type queryOp struct {
	Op      string      `yaml:"op" json:"op"`
	Table   string      `yaml:"table" json:"table"`
	Joins   interface{} `yaml:"joins" json:"joins"`
	Columns interface{} `yaml:"columns" json:"columns"`
	Where   interface{} `yaml:"where" json:"where"`
	Data    interface{} `yaml:"data" json:"data"`
	Column  string      `yaml:"column" json:"column"`
}

var opKinds = map[string]qmap.OpKind{
	"select":  qmap.OpSelect,
	"get":     qmap.OpGet,
	"has":     qmap.OpHas,
	"count":   qmap.OpCount,
	"sum":     qmap.OpSum,
	"avg":     qmap.OpAvg,
	"min":     qmap.OpMin,
	"max":     qmap.OpMax,
	"insert":  qmap.OpInsert,
	"update":  qmap.OpUpdate,
	"delete":  qmap.OpDelete,
	"replace": qmap.OpReplace,
}

// readQueryFile reads one or more operations from a YAML query file
func readQueryFile(path string) ([]qmap.Op, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list []queryOp
	if err := yaml.Unmarshal(b, &list); err != nil {
		var one queryOp
		if err := yaml.Unmarshal(b, &one); err != nil {
			return nil, fmt.Errorf("query file: %w", err)
		}
		list = []queryOp{one}
	}

	ops := make([]qmap.Op, 0, len(list))
	for _, q := range list {
		kind, ok := opKinds[q.Op]
		if !ok {
			return nil, fmt.Errorf("unknown op %q", q.Op)
		}
		if q.Table == "" {
			return nil, fmt.Errorf("missing table for op %q", q.Op)
		}
		ops = append(ops, qmap.Op{
			Kind:    kind,
			Table:   q.Table,
			Joins:   q.Joins,
			Columns: q.Columns,
			Where:   q.Where,
			Data:    q.Data,
			Column:  q.Column,
		})
	}
	return ops, nil
}

// queryCmd creates the query command
func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <file.yml>",
		Short: "Run queries from a query file",
		Long:  "Run the declarative operations in the file against the database and print the results as JSON",
		Args:  cobra.ExactArgs(1),
		Run:   cmdQuery,
	}
}

// cmdQuery is the handler for the query subcommand
func cmdQuery(_ *cobra.Command, args []string) {
	setup(cpath)
	initDB(true)

	ops, err := readQueryFile(args[0])
	if err != nil {
		log.Fatalf("%s", err)
	}

	qm, err := qmap.New(&conf.Core, db)
	if err != nil {
		log.Fatalf("%s", err)
	}

	results, err := qm.Batch(context.Background(), ops)
	if err != nil {
		log.Fatalf("%s", err)
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Fatalf("%s", err)
	}
	fmt.Println(string(out))
}
