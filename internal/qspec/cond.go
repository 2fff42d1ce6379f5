package qspec

import (
	"fmt"
	"strings"
)

// CondKind discriminates the condition node variants.
type CondKind int8

const (
	CondLeaf CondKind = iota
	CondGroup
	CondGroupList
	CondColCmp
)

// Cond is one node of a parsed condition tree.
type Cond struct {
	Kind CondKind

	// leaf: column, operator and the still unbound value
	Col     string
	IsFunc  bool
	Op      Op
	Val     any
	LikeRel LogicOp

	// group: children joined by Logic, list form keeps one slice per subtree
	Logic    LogicOp
	Children []*Cond
	Groups   [][]*Cond

	// column to column comparison
	LeftCol  string
	RightCol string
	CmpOp    Op
}

// Where is a parsed condition set plus its structural clauses.
type Where struct {
	Conds  []*Cond
	Group  []GroupItem
	Having []*Cond

	// HavingRaw set means Having was a raw fragment and bypasses the
	// condition compiler entirely.
	HavingRaw *Raw

	Order []OrderItem
	Limit *Limit
	Match *Match

	// Whole set means the caller supplied one raw fragment in place of the
	// whole clause; its text is spliced verbatim and must carry its own
	// WHERE keyword.
	Whole *Raw
}

// Empty reports whether nothing at all was specified.
func (w *Where) Empty() bool {
	return w == nil || (len(w.Conds) == 0 && len(w.Group) == 0 &&
		len(w.Having) == 0 && w.HavingRaw == nil && len(w.Order) == 0 &&
		w.Limit == nil && w.Match == nil && w.Whole == nil)
}

// GroupItem is one GROUP BY element, a column or a raw fragment.
type GroupItem struct {
	Col string
	Raw *Raw
}

// OrderItem is one ORDER BY element. Values set means a custom value order
// rendered with FIELD. Raw set splices the fragment.
type OrderItem struct {
	Col    string
	Dir    string
	Values []any
	Raw    *Raw
}

// Limit caps the row count, optionally after an offset.
type Limit struct {
	Count     int64
	Offset    int64
	HasOffset bool
}

// Match is a full text search predicate appended to the WHERE clause.
type Match struct {
	Columns []string
	Keyword string
	Mode    string
}

// Structural keys are reserved and never read as conditions. LIKE is
// accepted and dropped for compatibility with the legacy shorthand.
func reservedKey(k string) bool {
	switch k {
	case "GROUP", "HAVING", "ORDER", "LIMIT", "LIKE", "MATCH":
		return true
	}
	return false
}

// ParseWhere splits the structural keys off a condition tree and parses
// both halves. A nil input yields an empty Where. A Raw input becomes the
// whole clause.
func ParseWhere(v any) (*Where, error) {
	w := &Where{}
	if v == nil {
		return w, nil
	}
	if raw, ok := v.(Raw); ok {
		w.Whole = &raw
		return w, nil
	}

	tree, ok := treeOf(v)
	if !ok {
		return nil, fmt.Errorf("conditions must be a map or entry list, got %T: %w",
			v, ErrMalformedCondition)
	}

	conds := make(Tree, 0, len(tree))
	for _, e := range tree {
		if !reservedKey(e.Key) {
			conds = append(conds, e)
			continue
		}

		var err error
		switch e.Key {
		case "GROUP":
			w.Group, err = parseGroup(e.Val)
		case "HAVING":
			err = parseHaving(w, e.Val)
		case "ORDER":
			w.Order, err = parseOrder(e.Val)
		case "LIMIT":
			w.Limit, err = parseLimit(e.Val)
		case "MATCH":
			w.Match, err = parseMatch(e.Val)
		}
		if err != nil {
			return nil, err
		}
	}

	var err error
	if w.Conds, err = ParseConds(conds); err != nil {
		return nil, err
	}
	return w, nil
}

// ParseConds normalizes a condition tree into typed nodes.
func ParseConds(tree Tree) ([]*Cond, error) {
	conds := make([]*Cond, 0, len(tree))

	for _, e := range tree {
		cond, err := parseCondEntry(e)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func parseCondEntry(e Entry) (*Cond, error) {
	// entries without a key hold column to column comparisons
	if e.Key == "" {
		s, ok := e.Val.(string)
		if !ok {
			return nil, fmt.Errorf("positional condition must be a string, got %T: %w",
				e.Val, ErrMalformedCondition)
		}
		return parseColCmp(s)
	}

	key, err := parseCondKey(e.Key)
	if err != nil {
		return nil, err
	}
	if key.logic {
		return parseLogicEntry(key.rel, e.Val)
	}
	return parseLeaf(key, e.Val)
}

// condKey is a parsed condition key.
type condKey struct {
	logic bool
	rel   LogicOp
	col   string
	op    Op
}

// parseCondKey reads "column", "column[op]", "AND" or "OR". A trailing
// " #comment" disambiguates repeated keys and is discarded.
func parseCondKey(s string) (condKey, error) {
	if i := strings.Index(s, " #"); i >= 0 {
		s = strings.TrimRight(s[:i], " ")
	}

	switch s {
	case "AND":
		return condKey{logic: true, rel: LogicAnd}, nil
	case "OR":
		return condKey{logic: true, rel: LogicOr}, nil
	}

	col, op := s, OpEq
	if strings.HasSuffix(s, "]") {
		i := strings.LastIndex(s, "[")
		if i <= 0 {
			return condKey{}, fmt.Errorf("key %q: %w", s, ErrMalformedCondition)
		}
		tok, ok := parseOpToken(s[i+1 : len(s)-1])
		if !ok {
			return condKey{}, fmt.Errorf("key %q has an unknown operator: %w",
				s, ErrMalformedCondition)
		}
		col, op = strings.TrimRight(s[:i], " "), tok
	}
	if col == "" {
		return condKey{}, fmt.Errorf("key %q: %w", s, ErrMalformedCondition)
	}
	return condKey{col: col, op: op}, nil
}

// parseLogicEntry handles AND and OR keys. A nested tree joins its children
// with the keyword. A list of trees compiles each subtree with AND and
// joins the parenthesized groups with the keyword.
func parseLogicEntry(rel LogicOp, v any) (*Cond, error) {
	if tree, ok := treeOf(v); ok {
		children, err := ParseConds(tree)
		if err != nil {
			return nil, err
		}
		return &Cond{Kind: CondGroup, Logic: rel, Children: children}, nil
	}

	if list, ok := listOf(v); ok {
		groups := make([][]*Cond, 0, len(list))
		for _, item := range list {
			tree, ok := treeOf(item)
			if !ok {
				return nil, fmt.Errorf("%s group element must be a map, got %T: %w",
					rel, item, ErrMalformedCondition)
			}
			group, err := ParseConds(tree)
			if err != nil {
				return nil, err
			}
			groups = append(groups, group)
		}
		return &Cond{Kind: CondGroupList, Logic: rel, Groups: groups}, nil
	}

	return nil, fmt.Errorf("%s must hold a map or a list of maps, got %T: %w",
		rel, v, ErrMalformedCondition)
}

func parseLeaf(key condKey, v any) (*Cond, error) {
	cond := &Cond{
		Kind:   CondLeaf,
		Col:    key.col,
		IsFunc: strings.ContainsRune(key.col, '('),
		Op:     key.op,
		Val:    v,
	}

	switch key.op {
	case OpEq, OpNot:
		// an empty list would render IN () which no backend accepts
		if list, ok := listOf(v); ok && len(list) == 0 {
			return nil, fmt.Errorf("%q requires at least one list value: %w",
				key.col, ErrMalformedCondition)
		}

	case OpBetween, OpNotBetween:
		list, ok := listOf(v)
		if !ok || len(list) != 2 {
			return nil, fmt.Errorf("%q requires a two element list: %w",
				key.col, ErrMalformedCondition)
		}

	case OpLike, OpNotLike:
		vals, rel, err := parseLikeValue(key.col, v)
		if err != nil {
			return nil, err
		}
		cond.Val, cond.LikeRel = vals, rel
	}
	return cond, nil
}

// parseLikeValue coerces a pattern value to a list and picks up an explicit
// AND or OR relationship wrapping it.
func parseLikeValue(col string, v any) ([]any, LogicOp, error) {
	rel := LogicOr

	if tree, ok := treeOf(v); ok {
		if len(tree) != 1 || (tree[0].Key != "AND" && tree[0].Key != "OR") {
			return nil, rel, fmt.Errorf(
				"%q pattern map must hold a single AND or OR key: %w",
				col, ErrMalformedCondition)
		}
		if tree[0].Key == "AND" {
			rel = LogicAnd
		}
		v = tree[0].Val
	}

	list, ok := listOf(v)
	if !ok {
		list = []any{v}
	}
	if len(list) == 0 {
		return nil, rel, fmt.Errorf("%q requires at least one pattern: %w",
			col, ErrMalformedCondition)
	}
	return list, rel, nil
}

// parseColCmp reads a "left[op]right" comparison between two columns.
func parseColCmp(s string) (*Cond, error) {
	i := strings.Index(s, "[")
	j := strings.Index(s, "]")
	if i <= 0 || j < i+2 || j == len(s)-1 {
		return nil, fmt.Errorf("column comparison %q: %w", s, ErrMalformedCondition)
	}
	op, ok := parseCmpToken(s[i+1 : j])
	if !ok {
		return nil, fmt.Errorf("column comparison %q has an unknown operator: %w",
			s, ErrMalformedCondition)
	}
	return &Cond{
		Kind:     CondColCmp,
		LeftCol:  s[:i],
		RightCol: s[j+1:],
		CmpOp:    op,
	}, nil
}

func parseGroup(v any) ([]GroupItem, error) {
	switch g := v.(type) {
	case string:
		return []GroupItem{{Col: g}}, nil
	case Raw:
		return []GroupItem{{Raw: &g}}, nil
	case []any:
		items := make([]GroupItem, 0, len(g))
		for _, item := range g {
			switch col := item.(type) {
			case string:
				items = append(items, GroupItem{Col: col})
			case Raw:
				items = append(items, GroupItem{Raw: &col})
			default:
				return nil, fmt.Errorf("GROUP element must be a column name, got %T: %w",
					item, ErrMalformedCondition)
			}
		}
		return items, nil
	}
	return nil, fmt.Errorf("GROUP must be a column, list or raw fragment, got %T: %w",
		v, ErrMalformedCondition)
}

func parseHaving(w *Where, v any) error {
	if raw, ok := v.(Raw); ok {
		w.HavingRaw = &raw
		return nil
	}
	tree, ok := treeOf(v)
	if !ok {
		return fmt.Errorf("HAVING must be a condition map, got %T: %w",
			v, ErrMalformedCondition)
	}
	having, err := ParseConds(tree)
	if err != nil {
		return err
	}
	w.Having = having
	return nil
}

func parseOrder(v any) ([]OrderItem, error) {
	switch o := v.(type) {
	case string:
		return []OrderItem{{Col: o}}, nil
	case Raw:
		return []OrderItem{{Raw: &o}}, nil
	case []any:
		items := make([]OrderItem, 0, len(o))
		for _, item := range o {
			col, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("ORDER list element must be a column, got %T: %w",
					item, ErrMalformedCondition)
			}
			items = append(items, OrderItem{Col: col})
		}
		return items, nil
	}

	tree, ok := treeOf(v)
	if !ok {
		return nil, fmt.Errorf("ORDER must be a column, list or map, got %T: %w",
			v, ErrMalformedCondition)
	}

	items := make([]OrderItem, 0, len(tree))
	for _, e := range tree {
		switch val := e.Val.(type) {
		case string:
			if val != "ASC" && val != "DESC" {
				return nil, fmt.Errorf("ORDER direction for %q must be ASC or DESC: %w",
					e.Key, ErrMalformedCondition)
			}
			items = append(items, OrderItem{Col: e.Key, Dir: val})
		case []any:
			if len(val) == 0 {
				return nil, fmt.Errorf("ORDER custom list for %q is empty: %w",
					e.Key, ErrMalformedCondition)
			}
			items = append(items, OrderItem{Col: e.Key, Values: val})
		default:
			return nil, fmt.Errorf("ORDER value for %q must be a direction or list, got %T: %w",
				e.Key, val, ErrMalformedCondition)
		}
	}
	return items, nil
}

func parseLimit(v any) (*Limit, error) {
	if n, ok := toInt64(v); ok {
		return &Limit{Count: n}, nil
	}

	list, ok := listOf(v)
	if ok && len(list) == 2 {
		offset, ok1 := toInt64(list[0])
		count, ok2 := toInt64(list[1])
		if ok1 && ok2 {
			return &Limit{Count: count, Offset: offset, HasOffset: true}, nil
		}
	}
	return nil, fmt.Errorf("LIMIT must be a count or [offset, count] pair: %w",
		ErrMalformedCondition)
}

var matchModes = map[string]string{
	"natural":       "IN NATURAL LANGUAGE MODE",
	"natural+query": "IN NATURAL LANGUAGE MODE WITH QUERY EXPANSION",
	"boolean":       "IN BOOLEAN MODE",
	"query":         "WITH QUERY EXPANSION",
}

func parseMatch(v any) (*Match, error) {
	tree, ok := treeOf(v)
	if !ok {
		return nil, fmt.Errorf("MATCH must be a map with columns and keyword: %w",
			ErrMalformedCondition)
	}

	m := &Match{}
	for _, e := range tree {
		switch e.Key {
		case "columns":
			list, ok := listOf(e.Val)
			if !ok {
				return nil, fmt.Errorf("MATCH columns must be a list: %w", ErrMalformedCondition)
			}
			for _, item := range list {
				col, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("MATCH column must be a string, got %T: %w",
						item, ErrMalformedCondition)
				}
				m.Columns = append(m.Columns, col)
			}
		case "keyword":
			kw, ok := e.Val.(string)
			if !ok {
				return nil, fmt.Errorf("MATCH keyword must be a string, got %T: %w",
					e.Val, ErrMalformedCondition)
			}
			m.Keyword = kw
		case "mode":
			mode, ok := e.Val.(string)
			if !ok || matchModes[mode] == "" {
				return nil, fmt.Errorf("MATCH mode %v is not supported: %w",
					e.Val, ErrMalformedCondition)
			}
			m.Mode = matchModes[mode]
		}
	}

	if len(m.Columns) == 0 || m.Keyword == "" {
		return nil, fmt.Errorf("MATCH requires columns and a keyword: %w",
			ErrMalformedCondition)
	}
	return m, nil
}
