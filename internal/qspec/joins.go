package qspec

import (
	"fmt"
	"strings"
)

// JoinKind maps the direction tag of a join key to a SQL join type.
type JoinKind int8

const (
	JoinLeft JoinKind = iota
	JoinRight
	JoinFull
	JoinInner
)

// SQL returns the join keywords.
func (k JoinKind) SQL() string {
	switch k {
	case JoinRight:
		return "RIGHT JOIN"
	case JoinFull:
		return "FULL JOIN"
	case JoinInner:
		return "INNER JOIN"
	}
	return "LEFT JOIN"
}

func parseJoinTag(s string) (JoinKind, bool) {
	switch s {
	case ">":
		return JoinLeft, true
	case "<":
		return JoinRight, true
	case "<>":
		return JoinFull, true
	case "><":
		return JoinInner, true
	}
	return JoinLeft, false
}

// Join is one parsed join clause. Using and On are mutually exclusive.
type Join struct {
	Kind  JoinKind
	Table string
	Alias string
	Using []string
	On    []OnPair
}

// OnPair is one equality predicate of an ON conjunction.
type OnPair struct {
	Left  string
	Right string
}

// ParseJoins normalizes a join spec. Keys follow "[dir]table(alias)" with
// dir one of > < <> ><; anything else fails. Relations are a column name or
// list for USING, or a left to right column map for ON.
func ParseJoins(v any) ([]*Join, error) {
	if v == nil {
		return nil, nil
	}
	tree, ok := treeOf(v)
	if !ok {
		return nil, fmt.Errorf("joins must be a map or entry list, got %T: %w",
			v, ErrMalformedJoinKey)
	}

	joins := make([]*Join, 0, len(tree))
	for _, e := range tree {
		j, err := parseJoinEntry(e)
		if err != nil {
			return nil, err
		}
		joins = append(joins, j)
	}
	return joins, nil
}

func parseJoinEntry(e Entry) (*Join, error) {
	kind, rest, err := parseJoinKey(e.Key)
	if err != nil {
		return nil, err
	}

	j := &Join{Kind: kind}
	if j.Table, j.Alias, err = parseNameAlias(rest); err != nil {
		return nil, fmt.Errorf("join key %q: %w", e.Key, ErrMalformedJoinKey)
	}

	switch rel := e.Val.(type) {
	case string:
		j.Using = []string{rel}
		return j, nil

	case []any:
		for _, el := range rel {
			col, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("join %q USING column must be a string, got %T: %w",
					e.Key, el, ErrMalformedJoinKey)
			}
			j.Using = append(j.Using, col)
		}
		if len(j.Using) == 0 {
			return nil, fmt.Errorf("join %q has an empty USING list: %w",
				e.Key, ErrMalformedJoinKey)
		}
		return j, nil
	}

	tree, ok := treeOf(e.Val)
	if !ok || len(tree) == 0 {
		return nil, fmt.Errorf("join %q relation must be a column, list or map, got %T: %w",
			e.Key, e.Val, ErrMalformedJoinKey)
	}
	for _, rel := range tree {
		right, ok := rel.Val.(string)
		if !ok {
			return nil, fmt.Errorf("join %q ON value must be a column name, got %T: %w",
				e.Key, rel.Val, ErrMalformedJoinKey)
		}
		j.On = append(j.On, OnPair{Left: rel.Key, Right: right})
	}
	return j, nil
}

// parseJoinKey splits the "[dir]" prefix off a join key. A key without a
// direction tag is an error, not a silent skip.
func parseJoinKey(s string) (JoinKind, string, error) {
	if !strings.HasPrefix(s, "[") {
		return 0, "", fmt.Errorf("join key %q has no direction tag: %w",
			s, ErrMalformedJoinKey)
	}
	i := strings.IndexByte(s, ']')
	if i < 0 {
		return 0, "", fmt.Errorf("join key %q: %w", s, ErrMalformedJoinKey)
	}
	kind, ok := parseJoinTag(s[1:i])
	if !ok {
		return 0, "", fmt.Errorf("join key %q has an unknown direction %q: %w",
			s, s[1:i], ErrMalformedJoinKey)
	}
	return kind, s[i+1:], nil
}
