package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/qbloq/qmap"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedTable describes fake rows for one table. Row values are gofakeit
// templates, for example "{firstname} {lastname}".
type seedTable struct {
	Count int               `yaml:"count"`
	Row   map[string]string `yaml:"row"`
}

// seedCmd creates the seed command
func seedCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with fake data",
		Long:  "Insert fake rows into the tables listed in the seed file",
		Run:   cmdSeed,
	}
	c.Flags().String("file", "", "seed file (default config dir seed.yml)")
	return c
}

// cmdSeed is the handler for the seed subcommand
func cmdSeed(cmd *cobra.Command, args []string) {
	setup(cpath)
	initDB(true)

	fn, _ := cmd.Flags().GetString("file")
	if fn == "" {
		fn = filepath.Join(cpath, "seed.yml")
	}

	b, err := os.ReadFile(fn)
	if err != nil {
		log.Fatalf("%s", err)
	}

	var tables map[string]seedTable
	if err := yaml.Unmarshal(b, &tables); err != nil {
		log.Fatalf("seed file: %s", err)
	}

	qm, err := qmap.New(&conf.Core, db)
	if err != nil {
		log.Fatalf("%s", err)
	}

	c := context.Background()
	for table, st := range tables {
		if st.Count <= 0 || len(st.Row) == 0 {
			continue
		}

		rows := make([]map[string]interface{}, 0, st.Count)
		for i := 0; i < st.Count; i++ {
			row := make(map[string]interface{}, len(st.Row))
			for col, tmpl := range st.Row {
				row[col] = coerceSeedValue(gofakeit.Generate(tmpl))
			}
			rows = append(rows, row)
		}

		res, err := qm.Insert(c, table, rows...)
		if err != nil {
			log.Fatalf("seed %s: %s", table, err)
		}
		log.Infof("seeded '%s' with %d rows", table, res.Affected)
	}
}

// coerceSeedValue turns numeric faker output into numbers so the
// insert binds them as such.
func coerceSeedValue(s string) interface{} {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
