package sqlgen

import (
	"github.com/qbloq/qmap/internal/qspec"
)

// renderColumns writes the SELECT list. A single map valued nested item at
// the root scopes its unqualified columns under the item's key; a list
// valued one is the grouping form, whose key is a column selected ahead of
// the nested columns. Deeper nesting only shapes results and renders flat.
func (c *compilerContext) renderColumns(cols *qspec.Columns) error {
	if cols == nil || cols.Star {
		c.w.WriteByte('*')
		return nil
	}

	items, scope := cols.Items, ""
	if len(items) == 1 && items[0].Kind == qspec.ColNested {
		root := items[0]
		if root.NestedIsList {
			// grouping form: the root key is a column, selected first so
			// the mapper can index rows by it
			if err := c.renderColRef(root.Ref, ""); err != nil {
				return err
			}
			return c.renderColItems(root.Nested.Items, "", false)
		}
		scope = root.Key
		items = root.Nested.Items
	}
	return c.renderColItems(items, scope, true)
}

func (c *compilerContext) renderColItems(items []qspec.ColItem, scope string, first bool) error {
	for _, item := range items {
		if !first {
			c.w.WriteByte(',')
		}
		first = false

		switch item.Kind {
		case qspec.ColRaw:
			if err := c.splice(*item.Raw); err != nil {
				return err
			}
			c.w.WriteString(" AS ")
			c.quoted(item.Key)

		case qspec.ColNested:
			if err := c.renderColItems(item.Nested.Items, scope, true); err != nil {
				return err
			}

		default:
			if err := c.renderColRef(item.Ref, scope); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *compilerContext) renderColRef(ref qspec.ColumnRef, scope string) error {
	table := ref.Table
	if table == "" && scope != "" {
		table = scope
	}

	switch {
	case ref.Name == "*" && table != "":
		c.quoted(c.prefix + table)
		c.w.WriteString(".*")
		return nil
	case ref.Name == "*":
		c.w.WriteByte('*')
		return nil
	case table != "":
		c.colWithTable(c.prefix+table, ref.Name)
	default:
		c.quoted(ref.Name)
	}

	if ref.Alias != "" {
		c.w.WriteString(" AS ")
		c.quoted(ref.Alias)
	}
	return nil
}
