package sqlgen

import (
	"fmt"
	"strings"

	"github.com/qbloq/qmap/internal/qspec"
)

// renderJoins writes the join clauses. base is the identifier rows of the
// base table are addressed by: its alias when one was given, its prefixed
// name otherwise.
func (c *compilerContext) renderJoins(base string, joins []*qspec.Join) error {
	for _, j := range joins {
		c.w.WriteByte(' ')
		c.w.WriteString(j.Kind.SQL())
		c.w.WriteByte(' ')
		if err := c.table(j.Table); err != nil {
			return err
		}
		if j.Alias != "" {
			c.w.WriteString(" AS ")
			c.quoted(j.Alias)
		}

		if len(j.Using) > 0 {
			c.w.WriteString(" USING (")
			for i, col := range j.Using {
				if i != 0 {
					c.w.WriteString(", ")
				}
				if err := c.col(col); err != nil {
					return err
				}
			}
			c.w.WriteByte(')')
			continue
		}

		joined := j.Alias
		if joined == "" {
			joined = c.prefix + j.Table
		}

		c.w.WriteString(" ON ")
		for i, on := range j.On {
			if i != 0 {
				c.w.WriteString(" AND ")
			}
			// a dotted left side is already table qualified
			if strings.ContainsRune(on.Left, '.') {
				if err := c.col(on.Left); err != nil {
					return err
				}
			} else {
				c.colWithTable(base, on.Left)
			}
			c.w.WriteString(" = ")
			if !tableRe.MatchString(on.Right) {
				return fmt.Errorf("join column %q: %w", on.Right, qspec.ErrInvalidIdentifier)
			}
			c.colWithTable(joined, on.Right)
		}
	}
	return nil
}
