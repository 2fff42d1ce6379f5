package sqlgen

import (
	"fmt"
	"strings"

	"github.com/qbloq/qmap/internal/qspec"
)

// renderConds writes a condition list joined by the given keyword.
func (c *compilerContext) renderConds(conds []*qspec.Cond, joiner qspec.LogicOp) error {
	for i, cond := range conds {
		if i != 0 {
			c.w.WriteByte(' ')
			c.w.WriteString(joiner.String())
			c.w.WriteByte(' ')
		}
		if err := c.renderCond(cond); err != nil {
			return err
		}
	}
	return nil
}

func (c *compilerContext) renderCond(cond *qspec.Cond) error {
	switch cond.Kind {
	case qspec.CondGroup:
		c.w.WriteByte('(')
		if err := c.renderConds(cond.Children, cond.Logic); err != nil {
			return err
		}
		c.w.WriteByte(')')
		return nil

	case qspec.CondGroupList:
		// each subtree joins with AND, the groups join with the key's
		// keyword
		c.w.WriteByte('(')
		for i, group := range cond.Groups {
			if i != 0 {
				c.w.WriteByte(' ')
				c.w.WriteString(cond.Logic.String())
				c.w.WriteByte(' ')
			}
			c.w.WriteByte('(')
			if err := c.renderConds(group, qspec.LogicAnd); err != nil {
				return err
			}
			c.w.WriteByte(')')
		}
		c.w.WriteByte(')')
		return nil

	case qspec.CondColCmp:
		if err := c.col(cond.LeftCol); err != nil {
			return err
		}
		c.w.WriteByte(' ')
		c.w.WriteString(cond.CmpOp.CmpSQL())
		c.w.WriteByte(' ')
		return c.col(cond.RightCol)
	}

	return c.renderLeaf(cond)
}

func (c *compilerContext) renderLeaf(cond *qspec.Cond) error {
	if cond.Op == qspec.OpLike || cond.Op == qspec.OpNotLike {
		return c.renderLike(cond)
	}

	if err := c.leafCol(cond); err != nil {
		return err
	}

	switch cond.Op {
	case qspec.OpGt, qspec.OpGte, qspec.OpLt, qspec.OpLte:
		c.w.WriteByte(' ')
		c.w.WriteString(cmpToken(cond.Op))
		c.w.WriteByte(' ')
		return c.bindOrSplice(cond.Val)

	case qspec.OpNot:
		return c.renderNot(cond)

	case qspec.OpBetween, qspec.OpNotBetween:
		return c.renderBetween(cond)

	case qspec.OpRegexp:
		c.w.WriteString(" REGEXP ")
		c.param(cond.Val)
		return nil
	}

	return c.renderEq(cond)
}

// leafCol writes the condition's column. A token containing parentheses is
// a raw function call and passes through unquoted.
func (c *compilerContext) leafCol(cond *qspec.Cond) error {
	if cond.IsFunc {
		c.w.WriteString(cond.Col)
		return nil
	}
	return c.col(cond.Col)
}

func cmpToken(op qspec.Op) string {
	switch op {
	case qspec.OpGte:
		return ">="
	case qspec.OpLt:
		return "<"
	case qspec.OpLte:
		return "<="
	}
	return ">"
}

func (c *compilerContext) renderEq(cond *qspec.Cond) error {
	switch v := cond.Val.(type) {
	case nil:
		c.w.WriteString(" IS NULL")
	case []any:
		c.w.WriteString(" IN ")
		c.paramList(v)
	case qspec.Raw:
		c.w.WriteString(" = ")
		return c.splice(v)
	case bool:
		c.w.WriteString(" = ")
		c.param(boolParam(v))
	default:
		c.w.WriteString(" = ")
		c.param(v)
	}
	return nil
}

func (c *compilerContext) renderNot(cond *qspec.Cond) error {
	switch v := cond.Val.(type) {
	case nil:
		c.w.WriteString(" IS NOT NULL")
	case []any:
		c.w.WriteString(" NOT IN ")
		c.paramList(v)
	case qspec.Raw:
		c.w.WriteString(" != ")
		return c.splice(v)
	case bool:
		c.w.WriteString(" != ")
		c.param(boolParam(v))
	default:
		c.w.WriteString(" != ")
		c.param(v)
	}
	return nil
}

// renderLike writes one LIKE per pattern, grouping multiple patterns in
// parentheses joined by the value's relationship keyword.
func (c *compilerContext) renderLike(cond *qspec.Cond) error {
	patterns, ok := cond.Val.([]any)
	if !ok || len(patterns) == 0 {
		return fmt.Errorf("%q has no patterns: %w", cond.Col, qspec.ErrMalformedCondition)
	}

	kw := " LIKE "
	if cond.Op == qspec.OpNotLike {
		kw = " NOT LIKE "
	}

	if len(patterns) > 1 {
		c.w.WriteByte('(')
	}
	for i, p := range patterns {
		if i != 0 {
			c.w.WriteByte(' ')
			c.w.WriteString(cond.LikeRel.String())
			c.w.WriteByte(' ')
		}
		if err := c.leafCol(cond); err != nil {
			return err
		}
		c.w.WriteString(kw)
		c.param(likePattern(p))
	}
	if len(patterns) > 1 {
		c.w.WriteByte(')')
	}
	return nil
}

func (c *compilerContext) renderBetween(cond *qspec.Cond) error {
	list, ok := cond.Val.([]any)
	if !ok || len(list) != 2 {
		return fmt.Errorf("%q requires a two element list: %w",
			cond.Col, qspec.ErrMalformedCondition)
	}
	if cond.Op == qspec.OpNotBetween {
		c.w.WriteString(" NOT BETWEEN ")
	} else {
		c.w.WriteString(" BETWEEN ")
	}
	c.param(list[0])
	c.w.WriteString(" AND ")
	c.param(list[1])
	return nil
}

// bindOrSplice binds a value as a parameter unless it is a raw fragment.
func (c *compilerContext) bindOrSplice(v any) error {
	if raw, ok := v.(qspec.Raw); ok {
		return c.splice(raw)
	}
	c.param(v)
	return nil
}

func (c *compilerContext) paramList(vals []any) {
	c.w.WriteByte('(')
	for i, v := range vals {
		if i != 0 {
			c.w.WriteByte(',')
		}
		c.param(v)
	}
	c.w.WriteByte(')')
}

// likePattern wraps a pattern in %...% unless it already carries wildcard
// or anchor syntax.
func likePattern(v any) string {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, "%_[]!^") {
		return s
	}
	return "%" + s + "%"
}

// boolParam binds booleans the way the wire protocol stores them.
func boolParam(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
