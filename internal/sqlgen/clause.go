package sqlgen

import (
	"strconv"

	"github.com/qbloq/qmap/internal/qspec"
)

// renderWhere writes the WHERE clause and its trailing structural clauses
// in their fixed order: WHERE, GROUP BY, HAVING, ORDER BY, LIMIT.
func (c *compilerContext) renderWhere(w *qspec.Where) error {
	if w == nil || w.Empty() {
		return nil
	}
	if w.Whole != nil {
		c.w.WriteByte(' ')
		return c.splice(*w.Whole)
	}

	if len(w.Conds) > 0 || w.Match != nil {
		c.w.WriteString(" WHERE ")
		if err := c.renderConds(w.Conds, qspec.LogicAnd); err != nil {
			return err
		}
		if w.Match != nil {
			if len(w.Conds) > 0 {
				c.w.WriteString(" AND ")
			}
			if err := c.renderMatch(w.Match); err != nil {
				return err
			}
		}
	}

	if err := c.renderGroup(w); err != nil {
		return err
	}
	if err := c.renderOrder(w.Order); err != nil {
		return err
	}
	c.renderLimit(w.Limit)
	return nil
}

func (c *compilerContext) renderGroup(w *qspec.Where) error {
	if len(w.Group) > 0 {
		c.w.WriteString(" GROUP BY ")
		for i, g := range w.Group {
			if i != 0 {
				c.w.WriteByte(',')
			}
			if g.Raw != nil {
				if err := c.splice(*g.Raw); err != nil {
					return err
				}
				continue
			}
			if err := c.col(g.Col); err != nil {
				return err
			}
		}
	}

	switch {
	case w.HavingRaw != nil:
		c.w.WriteString(" HAVING ")
		return c.splice(*w.HavingRaw)
	case len(w.Having) > 0:
		c.w.WriteString(" HAVING ")
		return c.renderConds(w.Having, qspec.LogicAnd)
	}
	return nil
}

func (c *compilerContext) renderOrder(items []qspec.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	c.w.WriteString(" ORDER BY ")

	for i, o := range items {
		if i != 0 {
			c.w.WriteByte(',')
		}
		switch {
		case o.Raw != nil:
			if err := c.splice(*o.Raw); err != nil {
				return err
			}

		case len(o.Values) > 0:
			// FIELD cannot take placeholders on every driver so its values
			// are escaped literals, the one documented exception to
			// parameterization
			c.w.WriteString("FIELD(")
			if err := c.col(o.Col); err != nil {
				return err
			}
			for _, v := range o.Values {
				c.w.WriteByte(',')
				c.w.WriteString(c.literal(v))
			}
			c.w.WriteByte(')')

		default:
			if err := c.col(o.Col); err != nil {
				return err
			}
			if o.Dir != "" {
				c.w.WriteByte(' ')
				c.w.WriteString(o.Dir)
			}
		}
	}
	return nil
}

func (c *compilerContext) renderLimit(l *qspec.Limit) {
	if l == nil {
		return
	}
	c.w.WriteString(" LIMIT ")
	c.w.WriteString(strconv.FormatInt(l.Count, 10))
	if l.HasOffset {
		c.w.WriteString(" OFFSET ")
		c.w.WriteString(strconv.FormatInt(l.Offset, 10))
	}
}

func (c *compilerContext) renderMatch(m *qspec.Match) error {
	c.w.WriteString("MATCH (")
	for i, col := range m.Columns {
		if i != 0 {
			c.w.WriteByte(',')
		}
		if err := c.col(col); err != nil {
			return err
		}
	}
	c.w.WriteString(") AGAINST (")
	c.param(m.Keyword)
	if m.Mode != "" {
		c.w.WriteByte(' ')
		c.w.WriteString(m.Mode)
	}
	c.w.WriteByte(')')
	return nil
}

// literal renders a value directly into SQL text: numbers verbatim,
// everything else through the escape hook.
func (c *compilerContext) literal(v any) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return c.esc(v)
}
