package qmap

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/qbloq/qmap/internal/sqlgen"
)

// OpKind tags one batch operation.
type OpKind int8

const (
	OpSelect OpKind = iota
	OpGet
	OpHas
	OpCount
	OpSum
	OpAvg
	OpMin
	OpMax
	OpInsert
	OpUpdate
	OpDelete
	OpReplace
)

func (k OpKind) agg() sqlgen.AggFunc {
	switch k {
	case OpSum:
		return sqlgen.AggSum
	case OpAvg:
		return sqlgen.AggAvg
	case OpMin:
		return sqlgen.AggMin
	case OpMax:
		return sqlgen.AggMax
	}
	return sqlgen.AggCount
}

// Op is one operation of a batch. Fields beyond Kind and Table apply per
// kind: Joins/Columns/Where for reads, Data for writes, Column for
// aggregates.
type Op struct {
	Kind    OpKind
	Table   string
	Joins   any
	Columns any
	Where   any
	Data    any    // insert rows, update data or replace swaps
	Column  string // aggregate column
}

// OpResult is the outcome of one batch operation, in the same position as
// its Op.
type OpResult struct {
	Data     any
	Affected int64
	LastID   int64
}

// Batch runs the operations concurrently and returns their results in
// order. The first failure cancels the rest and is returned.
func (g *QMap) Batch(c context.Context, ops []Op) ([]OpResult, error) {
	results := make([]OpResult, len(ops))

	eg, c := errgroup.WithContext(c)
	for i, op := range ops {
		i, op := i, op
		eg.Go(func() error {
			res, err := g.runOp(c, op)
			if err != nil {
				return fmt.Errorf("batch op %d on %q: %w", i, op.Table, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *QMap) runOp(c context.Context, op Op) (OpResult, error) {
	switch op.Kind {
	case OpSelect:
		res, err := g.SelectJoin(c, op.Table, op.Joins, op.Columns, op.Where)
		if err != nil {
			return OpResult{}, err
		}
		return OpResult{Data: res.Data}, nil

	case OpGet:
		row, err := g.GetJoin(c, op.Table, op.Joins, op.Columns, op.Where)
		if err != nil {
			return OpResult{}, err
		}
		return OpResult{Data: row}, nil

	case OpHas:
		ok, err := g.HasJoin(c, op.Table, op.Joins, op.Where)
		if err != nil {
			return OpResult{}, err
		}
		return OpResult{Data: ok}, nil

	case OpCount, OpSum, OpAvg, OpMin, OpMax:
		gm := g.Load().(*qmapEngine)
		v, err := gm.aggregate(c, op.Kind, op.Table, op.Joins, op.Column, op.Where)
		if err != nil {
			return OpResult{}, err
		}
		return OpResult{Data: v}, nil

	case OpInsert:
		rows, err := insertRows(op.Data)
		if err != nil {
			return OpResult{}, err
		}
		res, err := g.Insert(c, op.Table, rows...)
		if err != nil {
			return OpResult{}, err
		}
		return OpResult{Affected: res.Affected, LastID: res.LastID}, nil

	case OpUpdate:
		res, err := g.Update(c, op.Table, op.Data, op.Where)
		if err != nil {
			return OpResult{}, err
		}
		return OpResult{Affected: res.Affected}, nil

	case OpDelete:
		res, err := g.Delete(c, op.Table, op.Where)
		if err != nil {
			return OpResult{}, err
		}
		return OpResult{Affected: res.Affected}, nil

	case OpReplace:
		res, err := g.Replace(c, op.Table, op.Data, op.Where)
		if err != nil {
			return OpResult{}, err
		}
		return OpResult{Affected: res.Affected}, nil
	}

	return OpResult{}, fmt.Errorf("unknown operation kind %d", op.Kind)
}

func insertRows(data any) ([]map[string]any, error) {
	switch rows := data.(type) {
	case map[string]any:
		return []map[string]any{rows}, nil
	case []map[string]any:
		return rows, nil
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			row, ok := r.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("insert row must be a map, got %T: %w",
					r, ErrMalformedCondition)
			}
			out = append(out, row)
		}
		return out, nil
	}
	return nil, fmt.Errorf("insert data must be a map or list of maps, got %T: %w",
		data, ErrMalformedCondition)
}
