package qspec

import (
	"fmt"
	"strings"
)

// ColKind discriminates column spec items.
type ColKind int8

const (
	ColRef ColKind = iota
	ColRaw
	ColNested
)

// ColumnRef is one parsed column token of the form
// "column", "table.column", with optional "(alias)" and "[Type]" suffixes.
type ColumnRef struct {
	Table   string
	Name    string // "*" selects every column of Table
	Alias   string
	Type    TypeTag
	HasType bool
}

// OutName is the column name the database reports for this selection.
func (r ColumnRef) OutName() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Name
}

// ColItem is one entry of a column spec.
type ColItem struct {
	Kind ColKind

	Ref ColumnRef

	// raw columns are aliased by their map key, which may carry a [Type]
	// suffix read into Type
	Key  string
	Type TypeTag
	Raw  *Raw

	// nested specs shape results; at the root a single nested item also
	// scopes its unqualified columns under Key
	Nested *Columns

	// NestedIsList marks the index keyed grouping form where the nested
	// spec arrived as a list under the key
	NestedIsList bool
}

// Columns is a parsed column spec.
type Columns struct {
	Star  bool
	Items []ColItem
}

// ParseColumns normalizes a column spec. A nil or "*" spec selects every
// column. With joins present any wildcard selection is rejected since column
// names are ambiguous across the joined tables.
func ParseColumns(v any, isJoin bool) (*Columns, error) {
	if v == nil {
		v = "*"
	}
	if s, ok := v.(string); ok && s == "*" {
		if isJoin {
			return nil, fmt.Errorf("%w", ErrAmbiguousWildcard)
		}
		return &Columns{Star: true}, nil
	}

	items, err := parseColItems(v, isJoin)
	if err != nil {
		return nil, err
	}
	return &Columns{Items: items}, nil
}

func parseColItems(v any, isJoin bool) ([]ColItem, error) {
	switch spec := v.(type) {
	case string:
		ref, err := parseColumnRef(spec, isJoin)
		if err != nil {
			return nil, err
		}
		return []ColItem{{Kind: ColRef, Ref: ref}}, nil

	case []any:
		items := make([]ColItem, 0, len(spec))
		for _, el := range spec {
			switch col := el.(type) {
			case string:
				ref, err := parseColumnRef(col, isJoin)
				if err != nil {
					return nil, err
				}
				items = append(items, ColItem{Kind: ColRef, Ref: ref})

			case Raw:
				return nil, fmt.Errorf(
					"raw columns need an alias key, wrap the fragment in a map: %w",
					ErrInvalidIdentifier)

			default:
				if tree, ok := treeOf(el); ok {
					nested, err := parseColEntries(tree, isJoin)
					if err != nil {
						return nil, err
					}
					items = append(items, nested...)
					continue
				}
				return nil, fmt.Errorf("column element must be a string or map, got %T: %w",
					el, ErrInvalidIdentifier)
			}
		}
		return items, nil
	}

	if tree, ok := treeOf(v); ok {
		return parseColEntries(tree, isJoin)
	}
	return nil, fmt.Errorf("columns must be a string, list or map, got %T: %w",
		v, ErrInvalidIdentifier)
}

func parseColEntries(tree Tree, isJoin bool) ([]ColItem, error) {
	items := make([]ColItem, 0, len(tree))
	for _, e := range tree {
		item, err := parseColEntry(e, isJoin)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func parseColEntry(e Entry, isJoin bool) (ColItem, error) {
	if raw, ok := e.Val.(Raw); ok {
		key, typ, _ := splitTypeSuffix(e.Key)
		if key == "" {
			return ColItem{}, fmt.Errorf("raw column key %q: %w", e.Key, ErrInvalidIdentifier)
		}
		return ColItem{Kind: ColRaw, Key: key, Type: typ, Raw: &raw}, nil
	}

	key, _, _ := splitTypeSuffix(e.Key)
	if key == "" {
		return ColItem{}, fmt.Errorf("nested column key %q: %w", e.Key, ErrInvalidIdentifier)
	}

	_, isList := e.Val.([]any)
	nested, err := ParseColumns(e.Val, isJoin)
	if err != nil {
		return ColItem{}, err
	}

	item := ColItem{Kind: ColNested, Key: key, Nested: nested, NestedIsList: isList}
	if isList {
		// the grouping key names a real column; parse it so the renderer
		// can select it and the mapper can index rows by it
		if item.Ref, err = parseColumnRef(e.Key, isJoin); err != nil {
			return ColItem{}, err
		}
	}
	return item, nil
}

// parseColumnRef reads the column token grammar from the right: an optional
// bracketed type cast, then an optional parenthesized alias, then the
// dotted column path.
func parseColumnRef(s string, isJoin bool) (ColumnRef, error) {
	if isJoin && strings.ContainsRune(s, '*') {
		return ColumnRef{}, fmt.Errorf("column %q: %w", s, ErrAmbiguousWildcard)
	}

	ref := ColumnRef{}
	rest, typ, hasType := splitTypeSuffix(s)
	ref.Type, ref.HasType = typ, hasType

	if strings.HasSuffix(rest, ")") {
		i := strings.LastIndex(rest, "(")
		if i <= 0 {
			return ColumnRef{}, fmt.Errorf("column %q: %w", s, ErrInvalidIdentifier)
		}
		ref.Alias = rest[i+1 : len(rest)-1]
		if !identName(ref.Alias) {
			return ColumnRef{}, fmt.Errorf("column alias in %q: %w", s, ErrInvalidIdentifier)
		}
		rest = strings.TrimRight(rest[:i], " ")
	}

	if i := strings.IndexByte(rest, '.'); i >= 0 {
		ref.Table, ref.Name = rest[:i], rest[i+1:]
		if !identName(ref.Table) || !wildName(ref.Name) {
			return ColumnRef{}, fmt.Errorf("column %q: %w", s, ErrInvalidIdentifier)
		}
	} else {
		ref.Name = rest
		if !wildName(ref.Name) {
			return ColumnRef{}, fmt.Errorf("column %q: %w", s, ErrInvalidIdentifier)
		}
	}
	return ref, nil
}

// splitTypeSuffix strips a trailing [Type] cast off a key, returning the
// declared type or the String default.
func splitTypeSuffix(s string) (string, TypeTag, bool) {
	if strings.HasSuffix(s, "]") {
		if i := strings.LastIndex(s, "["); i > 0 {
			if typ, ok := parseTypeTag(s[i+1 : len(s)-1]); ok {
				return strings.TrimRight(s[:i], " "), typ, true
			}
		}
	}
	return s, TypeString, false
}

func identName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

func wildName(s string) bool {
	return s == "*" || identName(s)
}
