package qmap

import (
	"context"
	"strconv"

	"github.com/qbloq/qmap/internal/sqlgen"
)

// AggFunc selects the function Aggregate applies.
type AggFunc = sqlgen.AggFunc

const (
	AggCount = sqlgen.AggCount
	AggSum   = sqlgen.AggSum
	AggAvg   = sqlgen.AggAvg
	AggMin   = sqlgen.AggMin
	AggMax   = sqlgen.AggMax
)

// Select compiles and runs a read over one table, returning every matching
// row mapped per the column spec.
func (g *QMap) Select(c context.Context, table string, columns, where any) (*Result, error) {
	gm := g.Load().(*qmapEngine)
	return gm.selectQuery(c, table, nil, columns, where)
}

// SelectJoin is Select with join clauses. Wildcard selections are rejected
// while joining.
func (g *QMap) SelectJoin(c context.Context, table string, joins, columns, where any) (*Result, error) {
	gm := g.Load().(*qmapEngine)
	return gm.selectQuery(c, table, joins, columns, where)
}

// Get returns the first matching row, forcing LIMIT 1. ErrNotFound when
// nothing matches.
func (g *QMap) Get(c context.Context, table string, columns, where any) (map[string]any, error) {
	gm := g.Load().(*qmapEngine)
	return gm.getQuery(c, table, nil, columns, where)
}

// GetJoin is Get with join clauses.
func (g *QMap) GetJoin(c context.Context, table string, joins, columns, where any) (map[string]any, error) {
	gm := g.Load().(*qmapEngine)
	return gm.getQuery(c, table, joins, columns, where)
}

// Has reports whether any row matches, via SELECT EXISTS.
func (g *QMap) Has(c context.Context, table string, where any) (bool, error) {
	gm := g.Load().(*qmapEngine)
	return gm.hasQuery(c, table, nil, where)
}

// HasJoin is Has with join clauses.
func (g *QMap) HasJoin(c context.Context, table string, joins, where any) (bool, error) {
	gm := g.Load().(*qmapEngine)
	return gm.hasQuery(c, table, joins, where)
}

// Count returns the number of matching rows. An empty column counts with *.
func (g *QMap) Count(c context.Context, table string, column string, where any) (int64, error) {
	gm := g.Load().(*qmapEngine)
	v, err := gm.aggregate(c, OpCount, table, nil, column, where)
	if err != nil {
		return 0, err
	}
	n, _ := toInt64(v)
	return n, nil
}

// Sum returns the sum of a column over the matching rows.
func (g *QMap) Sum(c context.Context, table string, column string, where any) (float64, error) {
	return g.aggFloat(c, OpSum, table, column, where)
}

// Avg returns the average of a column over the matching rows.
func (g *QMap) Avg(c context.Context, table string, column string, where any) (float64, error) {
	return g.aggFloat(c, OpAvg, table, column, where)
}

// Min returns the smallest value of a column over the matching rows.
func (g *QMap) Min(c context.Context, table string, column string, where any) (any, error) {
	gm := g.Load().(*qmapEngine)
	return gm.aggregate(c, OpMin, table, nil, column, where)
}

// Max returns the largest value of a column over the matching rows.
func (g *QMap) Max(c context.Context, table string, column string, where any) (any, error) {
	gm := g.Load().(*qmapEngine)
	return gm.aggregate(c, OpMax, table, nil, column, where)
}

// Aggregate runs one aggregate function over the matching rows. The
// driver's raw value comes back unconverted; the Count/Sum/Avg/Min/Max
// wrappers convert for the common cases.
func (g *QMap) Aggregate(c context.Context, table string, fn AggFunc, column string, where any) (any, error) {
	gm := g.Load().(*qmapEngine)
	return gm.aggregate(c, aggKind(fn), table, nil, column, where)
}

func aggKind(fn AggFunc) OpKind {
	switch fn {
	case AggSum:
		return OpSum
	case AggAvg:
		return OpAvg
	case AggMin:
		return OpMin
	case AggMax:
		return OpMax
	}
	return OpCount
}

func (g *QMap) aggFloat(c context.Context, kind OpKind, table, column string, where any) (float64, error) {
	gm := g.Load().(*qmapEngine)
	v, err := gm.aggregate(c, kind, table, nil, column, where)
	if err != nil {
		return 0, err
	}
	f, _ := toFloat64(v)
	return f, nil
}

// Insert writes one or more rows. The column list comes from the first
// row's keys.
func (g *QMap) Insert(c context.Context, table string, rows ...map[string]any) (*Result, error) {
	gm := g.Load().(*qmapEngine)
	return gm.insert(c, table, rows)
}

// Update modifies the matching rows. Data keys may carry an arithmetic
// suffix, for example "views[+]": 1.
func (g *QMap) Update(c context.Context, table string, data, where any) (*Result, error) {
	gm := g.Load().(*qmapEngine)
	return gm.update(c, table, data, where)
}

// Delete removes the matching rows.
func (g *QMap) Delete(c context.Context, table string, where any) (*Result, error) {
	gm := g.Load().(*qmapEngine)
	return gm.delete(c, table, where)
}

// Replace rewrites column substrings on the matching rows, one REPLACE
// call per old to new swap.
func (g *QMap) Replace(c context.Context, table string, swaps, where any) (*Result, error) {
	gm := g.Load().(*qmapEngine)
	return gm.replace(c, table, swaps, where)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
