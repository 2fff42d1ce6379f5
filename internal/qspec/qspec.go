// Package qspec parses the map based query grammar into typed nodes.
//
// Input specs arrive as ordered entry lists (Tree) or plain Go maps. The
// parser normalizes them into Query, Columns, Cond and Join values that the
// SQL generator renders. Parsing never mutates its input and never touches
// parameter state; all value binding happens later in the generator.
package qspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Entry is one ordered key value pair of a spec tree.
type Entry struct {
	Key string
	Val any
}

// Tree is an ordered mapping. Plain map[string]any values are accepted
// anywhere a Tree is and are normalized with sorted keys so compilation
// stays deterministic.
type Tree []Entry

// Raw is a trusted SQL fragment with its own named parameters. The text may
// reference tables and columns as <table> or <table.column> placeholders
// which are quoted during splicing. Params keys may carry a leading colon.
type Raw struct {
	SQL    string
	Params map[string]any
}

// Query is a fully parsed read request.
type Query struct {
	Table      string
	TableAlias string
	Joins      []*Join
	Columns    *Columns
	Where      *Where
}

// BuildQuery parses the loose table, join, column and condition inputs into
// a typed query. Joins being present switches the column parser into strict
// mode where wildcard selections are rejected.
func BuildQuery(table string, joins, columns, where any) (*Query, error) {
	name, alias, err := ParseTable(table)
	if err != nil {
		return nil, err
	}

	q := &Query{Table: name, TableAlias: alias}

	if q.Joins, err = ParseJoins(joins); err != nil {
		return nil, err
	}
	if q.Columns, err = ParseColumns(columns, len(q.Joins) != 0); err != nil {
		return nil, err
	}
	if q.Where, err = ParseWhere(where); err != nil {
		return nil, err
	}
	return q, nil
}

// ParseTable splits a table token of the form "name" or "name (alias)".
func ParseTable(s string) (name, alias string, err error) {
	name, alias, err = parseNameAlias(s)
	if err != nil {
		return "", "", fmt.Errorf("table %q: %w", s, ErrInvalidIdentifier)
	}
	return name, alias, nil
}

// parseNameAlias reads an identifier optionally followed by a
// parenthesized alias, tolerating spaces between the two.
func parseNameAlias(s string) (name, alias string, err error) {
	i := 0
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	if i == 0 {
		return "", "", errBadToken
	}
	name = s[:i]

	rest := skipSpaces(s, i)
	if rest == len(s) {
		return name, "", nil
	}
	if s[rest] != '(' {
		return "", "", errBadToken
	}
	j := rest + 1
	for j < len(s) && isIdentChar(s[j]) {
		j++
	}
	if j == rest+1 || j == len(s) || s[j] != ')' {
		return "", "", errBadToken
	}
	alias = s[rest+1 : j]
	if skipSpaces(s, j+1) != len(s) {
		return "", "", errBadToken
	}
	return name, alias, nil
}

func isIdentChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func skipSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

// MarshalJSON renders a Tree as a JSON object in entry order.
func (t Tree) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range t {
		if i != 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Val)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// TreeOf converts ordered trees and plain maps into a Tree. Map keys are
// sorted so unordered input compiles the same way every time.
func TreeOf(v any) (Tree, bool) {
	return treeOf(v)
}

func treeOf(v any) (Tree, bool) {
	switch t := v.(type) {
	case Tree:
		return t, true
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		tree := make(Tree, 0, len(keys))
		for _, k := range keys {
			tree = append(tree, Entry{Key: k, Val: t[k]})
		}
		return tree, true
	}
	return nil, false
}

// listOf returns the value as a slice when it is one.
func listOf(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// toInt64 accepts the numeric types JSON and YAML decoding produce.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
