package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// newCmd creates the new app scaffolding command
func newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <app-name>",
		Short: "Create a new application",
		Long:  "Generate the config files needed to start a new qmap app",
		Args:  cobra.ExactArgs(1),
		Run:   cmdNew,
	}
}

func cmdNew(_ *cobra.Command, args []string) {
	name := args[0]
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	en := cases.Title(language.English)

	data := map[string]interface{}{
		"AppName":     en.String(name),
		"AppNameSlug": slug,
	}

	appPath := filepath.Join("./", slug)
	configPath := filepath.Join(appPath, "config")

	if err := os.MkdirAll(configPath, os.ModePerm); err != nil {
		log.Fatalf("%s", err)
	}

	for fn, tmpl := range scaffold {
		var b bytes.Buffer

		t, err := template.New(fn).Parse(tmpl)
		if err != nil {
			log.Fatalf("%s", err)
		}
		if err := t.Execute(&b, data); err != nil {
			log.Fatalf("%s", err)
		}

		p := filepath.Join(configPath, fn)
		if err := os.WriteFile(p, b.Bytes(), 0o600); err != nil {
			log.Fatalf("%s", err)
		}
		log.Infof("created '%s'", p)
	}

	log.Infof("app '%s' initialized", name)
}

var scaffold = map[string]string{
	"dev.yml": `app_name: "{{ .AppName }} Development"
host_port: 0.0.0.0:8080
log_level: debug
reload_on_config_change: true

# Declarative query engine settings
db_type: postgres
table_prefix: ""
enable_cache: true
cache_size: 500
query_log_size: 50
debug: true

database:
  type: postgres
  host: localhost
  port: 5432
  dbname: {{ .AppNameSlug }}_development
  user: postgres
  password: postgres
  pool_size: 10
`,

	"prod.yml": `# Inherit config from this other config file
# so I only need to overwrite some values
inherits: dev

app_name: "{{ .AppName }} Production"
production: true
log_level: warn
reload_on_config_change: false
debug: false

# Response caching for read queries
caching:
  enable: true
  ttl: 300
  size: 1000

database:
  dbname: {{ .AppNameSlug }}_production
  pool_size: 20
`,

	"seed.yml": `# Fake data to seed tables with, one block per table.
# Values run through gofakeit templates.
#
# users:
#   count: 50
#   row:
#     name: "{firstname} {lastname}"
#     email: "{email}"
#     age: "{number:18,80}"
`,
}
