package qmap

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qbloq/qmap/internal/sqlgen"
)

// mockExec records every statement and returns canned rows.
type mockExec struct {
	mu       sync.Mutex
	stmts    []Statement
	rows     []map[string]any
	affected int64
	lastID   int64
	err      error
}

func (m *mockExec) Execute(_ context.Context, st Statement) (ExecResult, error) {
	m.mu.Lock()
	m.stmts = append(m.stmts, st)
	m.mu.Unlock()
	if m.err != nil {
		return ExecResult{}, m.err
	}
	return ExecResult{Rows: m.rows, Affected: m.affected, LastID: m.lastID}, nil
}

func (m *mockExec) EscapeLiteral(v any) string {
	return sqlgen.EscapeLiteral(v)
}

func (m *mockExec) last() Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stmts[len(m.stmts)-1]
}

func newTestEngine(t *testing.T, conf *Config, exec Executor) *QMap {
	t.Helper()
	if conf == nil {
		conf = &Config{DBType: "mysql"}
	}
	qm, err := New(conf, nil, OptionSetExecutor(exec))
	require.NoError(t, err)
	return qm
}

func TestSelectMapsRows(t *testing.T) {
	exec := &mockExec{rows: []map[string]any{
		{"id": "1", "name": []byte("ann")},
		{"id": "2", "name": []byte("bob")},
	}}
	qm := newTestEngine(t, nil, exec)

	res, err := qm.Select(context.Background(), "users",
		Cols{"id[Int]", "name"}, W{{Key: "age[>]", Val: 21}})
	require.NoError(t, err)

	assert.Equal(t, `SELECT "id","name" FROM "users" WHERE "age" > :p1`,
		exec.last().SQL)

	rows := res.List()
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, "ann", rows[0]["name"])
}

func TestSelectIndexKeyedGrouping(t *testing.T) {
	exec := &mockExec{rows: []map[string]any{
		{"uid": int64(1), "name": "ann", "email": "a@x"},
		{"uid": int64(2), "name": "bob", "email": "b@x"},
	}}
	qm := newTestEngine(t, nil, exec)

	res, err := qm.Select(context.Background(), "users",
		W{{Key: "uid", Val: Cols{"name", "email"}}}, nil)
	require.NoError(t, err)

	// the grouping key is a real column the statement must select even
	// though it is not among the nested output columns
	assert.Equal(t, `SELECT "uid","name","email" FROM "users"`, exec.last().SQL)

	m := res.Map()
	require.Len(t, m, 2)
	assert.Equal(t, "ann", m["1"].(map[string]any)["name"])
	assert.Equal(t, "b@x", m["2"].(map[string]any)["email"])
}

func TestGetForcesLimitAndNotFound(t *testing.T) {
	exec := &mockExec{}
	qm := newTestEngine(t, nil, exec)

	_, err := qm.Get(context.Background(), "users", nil, W{{Key: "id", Val: 7}})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, exec.last().SQL, "LIMIT 1")

	exec.rows = []map[string]any{{"id": int64(7)}}
	row, err := qm.Get(context.Background(), "users", nil, W{{Key: "id", Val: 7}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), row["id"])
}

func TestHas(t *testing.T) {
	exec := &mockExec{rows: []map[string]any{{"exists": int64(1)}}}
	qm := newTestEngine(t, nil, exec)

	ok, err := qm.Has(context.Background(), "users", W{{Key: "id", Val: 7}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, exec.last().SQL, "SELECT EXISTS(")

	exec.rows = []map[string]any{{"exists": int64(0)}}
	ok, err = qm.Has(context.Background(), "users", W{{Key: "id", Val: 8}})
	require.NoError(t, err)
	assert.False(t, ok)
}

// Has and the aggregates build their own projection, so the wildcard under
// join restriction must not fire for them.
func TestHasJoinAllowsImplicitStar(t *testing.T) {
	exec := &mockExec{rows: []map[string]any{{"exists": int64(1)}}}
	qm := newTestEngine(t, nil, exec)

	_, err := qm.HasJoin(context.Background(), "users",
		J{{Key: "[>]posts", Val: "user_id"}}, W{{Key: "posts.likes[>]", Val: 10}})
	require.NoError(t, err)
	assert.Contains(t, exec.last().SQL, `LEFT JOIN "posts" USING ("user_id")`)
}

func TestAggregates(t *testing.T) {
	exec := &mockExec{rows: []map[string]any{{"n": int64(3)}}}
	qm := newTestEngine(t, nil, exec)
	c := context.Background()

	n, err := qm.Count(c, "users", "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Contains(t, exec.last().SQL, "SELECT COUNT(*)")

	exec.rows = []map[string]any{{"s": []byte("12.5")}}
	s, err := qm.Sum(c, "orders", "amount", nil)
	require.NoError(t, err)
	assert.Equal(t, 12.5, s)
	assert.Contains(t, exec.last().SQL, `SELECT SUM("amount")`)

	exec.rows = []map[string]any{{"m": int64(99)}}
	v, err := qm.Max(c, "orders", "amount", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(99), v)
	assert.Contains(t, exec.last().SQL, `SELECT MAX("amount")`)

	exec.rows = []map[string]any{{"a": []byte("4.5")}}
	av, err := qm.Aggregate(c, "orders", AggAvg, "amount", nil)
	require.NoError(t, err)
	assert.Equal(t, "4.5", av)
	assert.Contains(t, exec.last().SQL, `SELECT AVG("amount")`)
}

func TestInsertUpdateDeleteReplace(t *testing.T) {
	exec := &mockExec{affected: 2, lastID: 11}
	qm := newTestEngine(t, nil, exec)
	c := context.Background()

	res, err := qm.Insert(c, "users",
		map[string]any{"name": "ann"}, map[string]any{"name": "bob"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Affected)
	assert.Equal(t, int64(11), res.LastID)
	assert.Contains(t, exec.last().SQL, `INSERT INTO "users" ("name") VALUES`)

	_, err = qm.Update(c, "users",
		W{{Key: "views[+]", Val: 1}}, W{{Key: "id", Val: 7}})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" SET "views" = "views" + :p3 WHERE "id" = :p4`,
		exec.last().SQL)

	_, err = qm.Delete(c, "logs", W{{Key: "ts[<]", Val: 1000}})
	require.NoError(t, err)
	assert.Contains(t, exec.last().SQL, `DELETE FROM "logs" WHERE "ts" < :p5`)

	_, err = qm.Replace(c, "pages",
		W{{Key: "url", Val: map[string]any{"http://": "https://"}}}, nil)
	require.NoError(t, err)
	assert.Contains(t, exec.last().SQL, `"url" = REPLACE("url",`)
}

func TestExecutorErrorPropagates(t *testing.T) {
	exec := &mockExec{err: errors.New("boom")}
	qm := newTestEngine(t, nil, exec)

	_, err := qm.Select(context.Background(), "users", nil, nil)
	assert.Error(t, err)
}

func TestCompileErrorsSurfaceBeforeExecution(t *testing.T) {
	exec := &mockExec{}
	qm := newTestEngine(t, nil, exec)
	c := context.Background()

	_, err := qm.SelectJoin(c, "users", J{{Key: "posts", Val: "user_id"}}, nil, nil)
	assert.ErrorIs(t, err, ErrMalformedJoinKey)

	_, err = qm.Select(c, "users; DROP TABLE users", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = qm.Select(c, "users", nil, W{{Key: "age[%]", Val: 1}})
	assert.ErrorIs(t, err, ErrMalformedCondition)

	assert.Empty(t, exec.stmts, "no statement may reach the executor")
}

func TestTablePrefixApplied(t *testing.T) {
	exec := &mockExec{}
	qm := newTestEngine(t, &Config{DBType: "mysql", TablePrefix: "app_"}, exec)

	_, err := qm.Select(context.Background(), "users", "name", nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "name" FROM "app_users"`, exec.last().SQL)
}

func TestStatementCacheReplaysCompilation(t *testing.T) {
	exec := &mockExec{}
	qm := newTestEngine(t, &Config{DBType: "mysql", EnableCache: true}, exec)
	c := context.Background()

	where := map[string]any{"age": 25}
	_, err := qm.Select(c, "users", nil, where)
	require.NoError(t, err)
	_, err = qm.Select(c, "users", nil, where)
	require.NoError(t, err)

	require.Len(t, exec.stmts, 2)
	assert.Equal(t, exec.stmts[0].SQL, exec.stmts[1].SQL,
		"a cache hit must replay the identical statement")

	// a different value is a different cache key and a fresh compilation
	_, err = qm.Select(c, "users", nil, map[string]any{"age": 26})
	require.NoError(t, err)
	assert.NotEqual(t, exec.stmts[0].SQL, exec.stmts[2].SQL)
}

func TestQueryLogRing(t *testing.T) {
	exec := &mockExec{}
	qm := newTestEngine(t, &Config{DBType: "mysql", QueryLogSize: 2}, exec)
	c := context.Background()

	for _, table := range []string{"a", "b", "c"} {
		_, err := qm.Select(c, table, nil, nil)
		require.NoError(t, err)
	}

	last, ok := qm.Last()
	require.True(t, ok)
	assert.Equal(t, `SELECT * FROM "c"`, last.SQL)

	entries := qm.LastQueries(10)
	require.Len(t, entries, 2, "the log keeps only the configured window")
	assert.Equal(t, `SELECT * FROM "b"`, entries[0].SQL)
}

func TestDryRunCompilesWithoutExecuting(t *testing.T) {
	qm, err := New(&Config{DBType: "mysql"}, nil, OptionDryRun())
	require.NoError(t, err)

	res, err := qm.Select(context.Background(), "users", nil,
		W{{Key: "id", Val: 1}})
	require.NoError(t, err)
	assert.Empty(t, res.List())

	st, ok := qm.Last()
	require.True(t, ok)
	assert.Equal(t, `SELECT * FROM "users" WHERE "id" = :p1`, st.SQL)
}

func TestBatchRunsAllOps(t *testing.T) {
	exec := &mockExec{rows: []map[string]any{{"n": int64(1)}}, affected: 1}
	qm := newTestEngine(t, nil, exec)

	ops := []Op{
		{Kind: OpSelect, Table: "users", Where: W{{Key: "active", Val: 1}}},
		{Kind: OpCount, Table: "users"},
		{Kind: OpInsert, Table: "logs", Data: []any{map[string]any{"msg": "hi"}}},
	}
	results, err := qm.Batch(context.Background(), ops)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NotNil(t, results[0].Data)
	assert.EqualValues(t, 1, results[1].Data)
	assert.Equal(t, int64(1), results[2].Affected)
}

func TestBatchFailureCancels(t *testing.T) {
	exec := &mockExec{}
	qm := newTestEngine(t, nil, exec)

	_, err := qm.Batch(context.Background(), []Op{
		{Kind: OpSelect, Table: "users; DROP TABLE users"},
	})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestReloadKeepsOptions(t *testing.T) {
	exec := &mockExec{}
	qm := newTestEngine(t, nil, exec)

	require.NoError(t, qm.Reload())

	_, err := qm.Select(context.Background(), "users", nil, nil)
	require.NoError(t, err)
	assert.Len(t, exec.stmts, 1, "the reloaded engine keeps the executor option")
}

func TestRawWhereSplices(t *testing.T) {
	exec := &mockExec{}
	qm := newTestEngine(t, nil, exec)

	_, err := qm.Select(context.Background(), "users", nil,
		RawSQL("WHERE <users.id> IN (SELECT user_id FROM <access_logs>)", nil))
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM "users" WHERE "users"."id" IN (SELECT user_id FROM "access_logs")`,
		exec.last().SQL)
}
