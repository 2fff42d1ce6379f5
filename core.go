package qmap

import (
	"context"
	"database/sql"
	"fmt"
	_log "log"
	"sync/atomic"

	"github.com/qbloq/qmap/internal/qspec"
	"github.com/qbloq/qmap/internal/rowmap"
	"github.com/qbloq/qmap/internal/sqlgen"
)

// qmapEngine is one built engine instance. Everything except the parameter
// sequence is read only after construction.
type qmapEngine struct {
	conf  *Config
	db    *sql.DB
	log   *_log.Logger
	exec  Executor
	co    *sqlgen.Compiler
	seq   atomic.Int64
	cache *Cache
	qlog  *queryLog
	opts  []Option
}

func newQMapEngine(conf *Config, db *sql.DB, options ...Option) (*qmapEngine, error) {
	if conf == nil {
		conf = &Config{}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	gm := &qmapEngine{
		conf: conf,
		db:   db,
		log:  defaultLogger,
		qlog: newQueryLog(conf.QueryLogSize),
		opts: options,
	}
	gm.co = sqlgen.NewCompiler(conf.TablePrefix, &gm.seq)

	for _, op := range options {
		if err := op(gm); err != nil {
			return nil, err
		}
	}

	if gm.exec == nil {
		if db == nil {
			return nil, fmt.Errorf("no database handle and no executor configured")
		}
		gm.exec = &dbExecutor{db: db, dbtype: conf.DBType}
	}
	gm.co.SetEscapeFunc(gm.exec.EscapeLiteral)

	if conf.EnableCache {
		var err error
		if gm.cache, err = newCache(conf.CacheSize); err != nil {
			return nil, err
		}
	}
	return gm, nil
}

// compiled is the per call compilation artifact: the statement plus the
// parsed column spec the result mapper walks.
type compiled struct {
	st   Statement
	cols *qspec.Columns
}

func (gm *qmapEngine) compileSelect(kind OpKind, table string, joins, columns, where any,
	forceLimit1 bool, agg sqlgen.AggFunc, aggCol string,
) (compiled, error) {
	key, cached, ok := gm.cacheLookup(kind, table, joins, columns, where, forceLimit1, aggCol)
	if ok {
		return cached, nil
	}

	var q *qspec.Query
	var err error
	if kind == OpSelect || kind == OpGet {
		q, err = qspec.BuildQuery(table, lower(joins), lower(columns), lower(where))
	} else {
		// exists and aggregate queries render no projection, so the
		// wildcard under join restriction does not apply
		q, err = buildUnprojected(table, lower(joins), lower(where))
	}
	if err != nil {
		return compiled{}, err
	}
	if forceLimit1 {
		if q.Where == nil {
			q.Where = &qspec.Where{}
		}
		q.Where.Limit = &qspec.Limit{Count: 1}
	}

	var md sqlgen.Metadata
	var sqlText string
	switch kind {
	case OpHas:
		md, sqlText, err = gm.co.CompileExists(q)
	case OpCount, OpSum, OpAvg, OpMin, OpMax:
		md, sqlText, err = gm.co.CompileAggregate(q, agg, aggCol)
	default:
		md, sqlText, err = gm.co.CompileQuery(q)
	}
	if err != nil {
		return compiled{}, err
	}

	cp := compiled{st: newStatement(sqlText, md), cols: q.Columns}
	gm.cacheStore(key, cp)
	return cp, nil
}

func buildUnprojected(table string, joins, where any) (*qspec.Query, error) {
	name, alias, err := qspec.ParseTable(table)
	if err != nil {
		return nil, err
	}
	q := &qspec.Query{Table: name, TableAlias: alias, Columns: &qspec.Columns{Star: true}}
	if q.Joins, err = qspec.ParseJoins(joins); err != nil {
		return nil, err
	}
	if q.Where, err = qspec.ParseWhere(where); err != nil {
		return nil, err
	}
	return q, nil
}

// run hands a statement to the executor, recording it in the query log
// first so dry runs and failures still show up there.
func (gm *qmapEngine) run(c context.Context, st Statement) (ExecResult, error) {
	gm.qlog.add(st)
	if gm.conf.Debug {
		gm.log.Printf("query: %s %v", st.SQL, st.Params)
	}
	return gm.exec.Execute(c, st)
}

func (gm *qmapEngine) selectQuery(c context.Context, table string, joins, columns, where any) (*Result, error) {
	cp, err := gm.compileSelect(OpSelect, table, joins, columns, where, false, 0, "")
	if err != nil {
		return nil, err
	}
	res, err := gm.run(c, cp.st)
	if err != nil {
		return nil, err
	}

	cmap := rowmap.BuildColumnMap(cp.cols)
	return &Result{Data: rowmap.MapRows(res.Rows, cp.cols, cmap)}, nil
}

func (gm *qmapEngine) getQuery(c context.Context, table string, joins, columns, where any) (map[string]any, error) {
	cp, err := gm.compileSelect(OpGet, table, joins, columns, where, true, 0, "")
	if err != nil {
		return nil, err
	}
	res, err := gm.run(c, cp.st)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, ErrNotFound
	}

	cmap := rowmap.BuildColumnMap(cp.cols)
	return rowmap.MapRow(res.Rows[0], cp.cols, cmap), nil
}

func (gm *qmapEngine) hasQuery(c context.Context, table string, joins, where any) (bool, error) {
	cp, err := gm.compileSelect(OpHas, table, joins, "*", where, false, 0, "")
	if err != nil {
		return false, err
	}
	res, err := gm.run(c, cp.st)
	if err != nil {
		return false, err
	}
	if len(res.Rows) == 0 {
		return false, nil
	}
	for _, v := range res.Rows[0] {
		return truthy(v), nil
	}
	return false, nil
}

func (gm *qmapEngine) aggregate(c context.Context, kind OpKind, table string, joins any,
	column string, where any,
) (any, error) {
	cp, err := gm.compileSelect(kind, table, joins, "*", where, false, kind.agg(), column)
	if err != nil {
		return nil, err
	}
	res, err := gm.run(c, cp.st)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	for _, v := range res.Rows[0] {
		if b, ok := v.([]byte); ok {
			return string(b), nil
		}
		return v, nil
	}
	return nil, nil
}

func (gm *qmapEngine) insert(c context.Context, table string, rows []map[string]any) (*Result, error) {
	trees := make([]qspec.Tree, 0, len(rows))
	for _, row := range rows {
		tree, _ := qspec.TreeOf(lower(row))
		trees = append(trees, tree)
	}
	md, sqlText, err := gm.co.CompileInsert(table, trees)
	if err != nil {
		return nil, err
	}
	return gm.exec1(c, sqlText, md)
}

func (gm *qmapEngine) update(c context.Context, table string, data, where any) (*Result, error) {
	tree, ok := qspec.TreeOf(lower(data))
	if !ok {
		return nil, fmt.Errorf("update data must be a map, got %T: %w", data, ErrMalformedCondition)
	}
	w, err := qspec.ParseWhere(lower(where))
	if err != nil {
		return nil, err
	}
	md, sqlText, err := gm.co.CompileUpdate(table, tree, w)
	if err != nil {
		return nil, err
	}
	return gm.exec1(c, sqlText, md)
}

func (gm *qmapEngine) delete(c context.Context, table string, where any) (*Result, error) {
	w, err := qspec.ParseWhere(lower(where))
	if err != nil {
		return nil, err
	}
	md, sqlText, err := gm.co.CompileDelete(table, w)
	if err != nil {
		return nil, err
	}
	return gm.exec1(c, sqlText, md)
}

func (gm *qmapEngine) replace(c context.Context, table string, swaps, where any) (*Result, error) {
	tree, ok := qspec.TreeOf(lower(swaps))
	if !ok {
		return nil, fmt.Errorf("replace swaps must be a map, got %T: %w", swaps, ErrMalformedCondition)
	}
	w, err := qspec.ParseWhere(lower(where))
	if err != nil {
		return nil, err
	}
	md, sqlText, err := gm.co.CompileReplace(table, tree, w)
	if err != nil {
		return nil, err
	}
	return gm.exec1(c, sqlText, md)
}

func (gm *qmapEngine) exec1(c context.Context, sqlText string, md sqlgen.Metadata) (*Result, error) {
	res, err := gm.run(c, newStatement(sqlText, md))
	if err != nil {
		return nil, err
	}
	return &Result{Affected: res.Affected, LastID: res.LastID}, nil
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case int:
		return b != 0
	case float64:
		return b != 0
	case []byte:
		return len(b) > 0 && b[0] != '0' && b[0] != 'f' && b[0] != 'F'
	case string:
		return len(b) > 0 && b[0] != '0' && b[0] != 'f' && b[0] != 'F'
	}
	return v != nil
}
