package sqlgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qbloq/qmap/internal/qspec"
)

// CompileInsert renders a multi row INSERT. The column list comes from the
// first row; later rows fill missing keys with NULL.
func (co *Compiler) CompileInsert(table string, rows []qspec.Tree) (Metadata, string, error) {
	if len(rows) == 0 {
		return Metadata{}, "", fmt.Errorf("insert into %q needs at least one row: %w",
			table, qspec.ErrMalformedCondition)
	}

	c := co.newContext()
	c.w.WriteString("INSERT INTO ")
	if err := c.table(table); err != nil {
		return Metadata{}, "", err
	}

	cols := make([]string, 0, len(rows[0]))
	c.w.WriteString(" (")
	for i, e := range rows[0] {
		if i != 0 {
			c.w.WriteString(", ")
		}
		if err := c.col(e.Key); err != nil {
			return Metadata{}, "", err
		}
		cols = append(cols, e.Key)
	}
	c.w.WriteString(") VALUES ")

	for ri, row := range rows {
		if ri != 0 {
			c.w.WriteString(", ")
		}
		vals := make(map[string]any, len(row))
		for _, e := range row {
			vals[e.Key] = e.Val
		}

		c.w.WriteByte('(')
		for i, col := range cols {
			if i != 0 {
				c.w.WriteString(", ")
			}
			v, ok := vals[col]
			if !ok {
				c.w.WriteString("NULL")
				continue
			}
			if err := c.mutateValue(v); err != nil {
				return Metadata{}, "", err
			}
		}
		c.w.WriteByte(')')
	}
	return *c.md, c.w.String(), nil
}

// CompileUpdate renders an UPDATE statement. Data keys may carry an
// arithmetic suffix, "views[+]": 1 becoming "views" = "views" + :p1.
func (co *Compiler) CompileUpdate(table string, data qspec.Tree, where *qspec.Where) (Metadata, string, error) {
	if len(data) == 0 {
		return Metadata{}, "", fmt.Errorf("update of %q needs data: %w",
			table, qspec.ErrMalformedCondition)
	}

	c := co.newContext()
	c.w.WriteString("UPDATE ")
	if err := c.table(table); err != nil {
		return Metadata{}, "", err
	}
	c.w.WriteString(" SET ")

	for i, e := range data {
		if i != 0 {
			c.w.WriteString(", ")
		}
		col, arith, err := splitArith(e.Key)
		if err != nil {
			return Metadata{}, "", err
		}

		if err := c.col(col); err != nil {
			return Metadata{}, "", err
		}
		c.w.WriteString(" = ")

		if arith != 0 {
			if _, ok := toNumber(e.Val); !ok {
				return Metadata{}, "", fmt.Errorf(
					"%q arithmetic needs a numeric value, got %T: %w",
					e.Key, e.Val, qspec.ErrMalformedCondition)
			}
			if err := c.col(col); err != nil {
				return Metadata{}, "", err
			}
			c.w.WriteByte(' ')
			c.w.WriteByte(arith)
			c.w.WriteByte(' ')
			c.param(e.Val)
			continue
		}

		if err := c.mutateValue(e.Val); err != nil {
			return Metadata{}, "", err
		}
	}

	if err := c.renderWhere(where); err != nil {
		return Metadata{}, "", err
	}
	return *c.md, c.w.String(), nil
}

// CompileDelete renders a DELETE statement.
func (co *Compiler) CompileDelete(table string, where *qspec.Where) (Metadata, string, error) {
	c := co.newContext()
	c.w.WriteString("DELETE FROM ")
	if err := c.table(table); err != nil {
		return Metadata{}, "", err
	}
	if err := c.renderWhere(where); err != nil {
		return Metadata{}, "", err
	}
	return *c.md, c.w.String(), nil
}

// CompileReplace renders per column REPLACE chains, one nested call per
// old to new swap.
func (co *Compiler) CompileReplace(table string, swaps qspec.Tree, where *qspec.Where) (Metadata, string, error) {
	if len(swaps) == 0 {
		return Metadata{}, "", fmt.Errorf("replace on %q needs swaps: %w",
			table, qspec.ErrMalformedCondition)
	}

	c := co.newContext()
	c.w.WriteString("UPDATE ")
	if err := c.table(table); err != nil {
		return Metadata{}, "", err
	}
	c.w.WriteString(" SET ")

	for i, e := range swaps {
		if i != 0 {
			c.w.WriteString(", ")
		}
		pairs, ok := qspec.TreeOf(e.Val)
		if !ok || len(pairs) == 0 {
			return Metadata{}, "", fmt.Errorf(
				"replace swaps for %q must be an old to new map, got %T: %w",
				e.Key, e.Val, qspec.ErrMalformedCondition)
		}

		if err := c.col(e.Key); err != nil {
			return Metadata{}, "", err
		}
		c.w.WriteString(" = ")
		c.w.WriteString(strings.Repeat("REPLACE(", len(pairs)))
		if err := c.col(e.Key); err != nil {
			return Metadata{}, "", err
		}
		for _, p := range pairs {
			c.w.WriteString(", ")
			c.param(p.Key)
			c.w.WriteString(", ")
			c.param(p.Val)
			c.w.WriteByte(')')
		}
	}

	if err := c.renderWhere(where); err != nil {
		return Metadata{}, "", err
	}
	return *c.md, c.w.String(), nil
}

// mutateValue writes one INSERT or UPDATE value: raw fragments splice,
// composites serialize to JSON, booleans store as "1"/"0", everything else
// binds directly.
func (c *compilerContext) mutateValue(v any) error {
	switch val := v.(type) {
	case qspec.Raw:
		return c.splice(val)
	case nil:
		c.w.WriteString("NULL")
	case bool:
		c.param(boolParam(val))
	case map[string]any, []any, qspec.Tree:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("serializing value: %w", err)
		}
		c.param(string(b))
	default:
		c.param(v)
	}
	return nil
}

// splitArith reads an optional [+], [-], [*] or [/] suffix off a data key.
func splitArith(s string) (string, byte, error) {
	if !strings.HasSuffix(s, "]") {
		return s, 0, nil
	}
	i := strings.LastIndex(s, "[")
	if i <= 0 || len(s)-i != 3 {
		return "", 0, fmt.Errorf("data key %q: %w", s, qspec.ErrMalformedCondition)
	}
	switch op := s[i+1]; op {
	case '+', '-', '*', '/':
		return strings.TrimRight(s[:i], " "), op, nil
	}
	return "", 0, fmt.Errorf("data key %q has an unknown operator: %w",
		s, qspec.ErrMalformedCondition)
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
