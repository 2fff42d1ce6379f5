package sqlgen

import (
	"github.com/qbloq/qmap/internal/qspec"
)

// AggFunc names an aggregate.
type AggFunc int8

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

func (f AggFunc) String() string {
	switch f {
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	}
	return "COUNT"
}

// CompileQuery renders a SELECT statement.
func (co *Compiler) CompileQuery(q *qspec.Query) (Metadata, string, error) {
	c := co.newContext()
	if err := c.renderQuery(q); err != nil {
		return Metadata{}, "", err
	}
	return *c.md, c.w.String(), nil
}

// CompileExists renders the query wrapped in SELECT EXISTS.
func (co *Compiler) CompileExists(q *qspec.Query) (Metadata, string, error) {
	c := co.newContext()
	c.w.WriteString("SELECT EXISTS(")
	if err := c.renderQuery(q); err != nil {
		return Metadata{}, "", err
	}
	c.w.WriteByte(')')
	return *c.md, c.w.String(), nil
}

// CompileAggregate renders SELECT fn(column). An empty column counts rows.
func (co *Compiler) CompileAggregate(q *qspec.Query, fn AggFunc, column string) (Metadata, string, error) {
	c := co.newContext()
	c.w.WriteString("SELECT ")
	c.w.WriteString(fn.String())
	c.w.WriteByte('(')
	if column == "" || column == "*" {
		c.w.WriteByte('*')
	} else if err := c.col(column); err != nil {
		return Metadata{}, "", err
	}
	c.w.WriteByte(')')

	if err := c.renderFrom(q); err != nil {
		return Metadata{}, "", err
	}
	return *c.md, c.w.String(), nil
}

func (c *compilerContext) renderQuery(q *qspec.Query) error {
	c.w.WriteString("SELECT ")
	if err := c.renderColumns(q.Columns); err != nil {
		return err
	}
	return c.renderFrom(q)
}

func (c *compilerContext) renderFrom(q *qspec.Query) error {
	c.w.WriteString(" FROM ")
	if err := c.table(q.Table); err != nil {
		return err
	}

	base := c.prefix + q.Table
	if q.TableAlias != "" {
		c.w.WriteString(" AS ")
		c.quoted(q.TableAlias)
		base = q.TableAlias
	}

	if err := c.renderJoins(base, q.Joins); err != nil {
		return err
	}
	return c.renderWhere(q.Where)
}
