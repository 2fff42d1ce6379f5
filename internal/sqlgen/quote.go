package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/qbloq/qmap/internal/qspec"
)

var (
	tableRe  = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	columnRe = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)?$`)
)

// quoteTable validates and quotes a table name, prepending the configured
// prefix.
func (co *Compiler) quoteTable(name string) (string, error) {
	if !tableRe.MatchString(name) {
		return "", fmt.Errorf("table %q: %w", name, qspec.ErrInvalidIdentifier)
	}
	return `"` + co.prefix + name + `"`, nil
}

// quoteColumn validates and quotes a column reference. A dotted reference
// quotes both segments and prefixes only the first, which names a table.
func (co *Compiler) quoteColumn(ref string) (string, error) {
	if !columnRe.MatchString(ref) {
		return "", fmt.Errorf("column %q: %w", ref, qspec.ErrInvalidIdentifier)
	}
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return `"` + co.prefix + ref[:i] + `"."` + ref[i+1:] + `"`, nil
	}
	return `"` + ref + `"`, nil
}

func (c *compilerContext) quoted(identifier string) {
	c.w.WriteByte('"')
	c.w.WriteString(identifier)
	c.w.WriteByte('"')
}

func (c *compilerContext) table(name string) error {
	s, err := c.quoteTable(name)
	if err != nil {
		return err
	}
	c.w.WriteString(s)
	return nil
}

func (c *compilerContext) col(ref string) error {
	s, err := c.quoteColumn(ref)
	if err != nil {
		return err
	}
	c.w.WriteString(s)
	return nil
}

func (c *compilerContext) colWithTable(table, col string) {
	c.quoted(table)
	c.w.WriteByte('.')
	c.quoted(col)
}
