package qmap

import (
	"github.com/qbloq/qmap/internal/qspec"
)

// Pair is one ordered key value entry of a spec.
type Pair struct {
	Key string
	Val any
}

// W is an ordered condition tree, where spec or relation map. A plain
// map[string]any is accepted anywhere a W is; its keys compile in sorted
// order, so use W when entry order matters.
type W []Pair

// Cols is a column spec: "table.column(alias)[Type]" strings, single key
// maps aliasing raw fragments or nesting sub specs, or the string "*".
type Cols []any

// J is a join spec. Keys follow "[dir]table(alias)" with dir one of
// > (left), < (right), <> (full) and >< (inner); values name the USING
// column or columns, or map left columns to right columns for ON.
type J []Pair

// Raw is a trusted SQL fragment with its own named parameters. The text
// may reference identifiers as <table> or <table.column> placeholders,
// which are quoted and prefixed during compilation. Values still only ever
// bind through Params.
type Raw struct {
	SQL    string
	Params map[string]any
}

// RawSQL builds a raw fragment.
func RawSQL(sql string, params ...map[string]any) Raw {
	r := Raw{SQL: sql}
	if len(params) > 0 {
		r.Params = params[0]
	}
	return r
}

// lower rewrites the public input grammar into the parser's types,
// recursing through maps, lists and nested specs. Inputs are never
// mutated.
func lower(v any) any {
	switch t := v.(type) {
	case Raw:
		return qspec.Raw{SQL: t.SQL, Params: t.Params}

	case W:
		return lowerPairs(t)
	case J:
		return lowerPairs(t)
	case Pair:
		return qspec.Tree{{Key: t.Key, Val: lower(t.Val)}}

	case Cols:
		return lowerList(t)
	case []any:
		return lowerList(t)

	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = lower(val)
		}
		return out
	}
	return v
}

func lowerPairs(pairs []Pair) qspec.Tree {
	tree := make(qspec.Tree, 0, len(pairs))
	for _, p := range pairs {
		tree = append(tree, qspec.Entry{Key: p.Key, Val: lower(p.Val)})
	}
	return tree
}

func lowerList(list []any) []any {
	out := make([]any, 0, len(list))
	for _, el := range list {
		out = append(out, lower(el))
	}
	return out
}
