package qmap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/qbloq/qmap/internal/sqlgen"
)

// Param is one named statement parameter in generation order.
type Param struct {
	Name  string
	Value any
}

// Statement is a compiled SQL statement: text with :name placeholder
// tokens plus the ordered parameters behind them.
type Statement struct {
	SQL    string
	Params []Param
}

func newStatement(sqlText string, md sqlgen.Metadata) Statement {
	ps := md.Params()
	params := make([]Param, 0, len(ps))
	for _, p := range ps {
		params = append(params, Param{Name: p.Name, Value: p.Value})
	}
	return Statement{SQL: sqlText, Params: params}
}

// ExecResult is what an executor reports back.
type ExecResult struct {
	Rows     []map[string]any
	Affected int64
	LastID   int64
}

// Executor runs compiled statements. The engine ships a database/sql
// implementation and a recording dry run one; anything matching this
// interface plugs in via OptionSetExecutor.
type Executor interface {
	Execute(c context.Context, st Statement) (ExecResult, error)
	EscapeLiteral(v any) string
}

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(c context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(c context.Context, query string, args ...any) (sql.Result, error)
}

// dbExecutor runs statements against database/sql, substituting the named
// placeholders to the driver's native style.
type dbExecutor struct {
	db     queryer
	dbtype string
}

func (e *dbExecutor) Execute(c context.Context, st Statement) (ExecResult, error) {
	sqlText, args := bindArgs(st, bindStyle(e.dbtype))

	if isReadStatement(st.SQL) {
		rows, err := e.db.QueryContext(c, sqlText, args...)
		if err != nil {
			return ExecResult{}, fmt.Errorf("%w: %s", ErrExecution, err)
		}
		defer rows.Close() //nolint:errcheck

		out, err := scanRows(rows)
		if err != nil {
			return ExecResult{}, fmt.Errorf("%w: %s", ErrExecution, err)
		}
		return ExecResult{Rows: out}, nil
	}

	res, err := e.db.ExecContext(c, sqlText, args...)
	if err != nil {
		return ExecResult{}, fmt.Errorf("%w: %s", ErrExecution, err)
	}

	er := ExecResult{}
	er.Affected, _ = res.RowsAffected()
	// not every driver reports an insert id
	er.LastID, _ = res.LastInsertId()
	return er, nil
}

func (e *dbExecutor) EscapeLiteral(v any) string {
	return sqlgen.EscapeLiteral(v)
}

func isReadStatement(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 6 && strings.EqualFold(s[:6], "SELECT")
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// dryRunExecutor records nothing and returns nothing; the query log holds
// the generated statements.
type dryRunExecutor struct{}

func (e *dryRunExecutor) Execute(c context.Context, st Statement) (ExecResult, error) {
	return ExecResult{}, nil
}

func (e *dryRunExecutor) EscapeLiteral(v any) string {
	return sqlgen.EscapeLiteral(v)
}

// Action runs fn inside one transaction. The engine handed to fn shares
// everything with the parent except its executor, which is bound to the
// transaction; fn returning an error rolls back, nil commits.
func (g *QMap) Action(c context.Context, fn func(c context.Context, tx *QMap) error) error {
	gm := g.Load().(*qmapEngine)
	if gm.db == nil {
		return fmt.Errorf("transactions need a database handle")
	}

	tx, err := gm.db.BeginTx(c, nil)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrExecution, err)
	}

	// the tx engine shares the parent's compiler, so parameter names keep
	// drawing from the same sequence
	txm := &qmapEngine{
		conf:  gm.conf,
		db:    gm.db,
		log:   gm.log,
		exec:  &dbExecutor{db: tx, dbtype: gm.conf.DBType},
		co:    gm.co,
		cache: gm.cache,
		qlog:  gm.qlog,
		opts:  gm.opts,
	}
	txq := &QMap{}
	txq.Store(txm)

	if err := fn(c, txq); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("rollback after %s: %w", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %s", ErrExecution, err)
	}
	return nil
}
