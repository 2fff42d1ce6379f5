package sqlgen

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/qbloq/qmap/internal/qspec"
)

func newTestCompiler(prefix string) *Compiler {
	seq := &atomic.Int64{}
	return NewCompiler(prefix, seq)
}

func compileSelect(t *testing.T, table string, joins, columns, where any) (Metadata, string) {
	t.Helper()
	q, err := qspec.BuildQuery(table, joins, columns, where)
	if err != nil {
		t.Fatal(err)
	}
	md, sql, err := newTestCompiler("").CompileQuery(q)
	if err != nil {
		t.Fatal(err)
	}
	return md, sql
}

func TestSelectGeneration(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		joins   any
		columns any
		where   any
		sql     string
		params  int
	}{
		{
			name:  "plain equality map",
			table: "users",
			where: map[string]any{"age": 25, "role": "admin"},
			sql:   `SELECT * FROM "users" WHERE "age" = :p1 AND "role" = :p2`,

			params: 2,
		},
		{
			name:   "comparison suffixes",
			table:  "users",
			where:  qspec.Tree{{Key: "age[>]", Val: 21}, {Key: "score[<=]", Val: 100}},
			sql:    `SELECT * FROM "users" WHERE "age" > :p1 AND "score" <= :p2`,
			params: 2,
		},
		{
			name:   "negation and null",
			table:  "users",
			where:  qspec.Tree{{Key: "deleted_at", Val: nil}, {Key: "role[!]", Val: "bot"}},
			sql:    `SELECT * FROM "users" WHERE "deleted_at" IS NULL AND "role" != :p1`,
			params: 1,
		},
		{
			name:   "in and not in",
			table:  "users",
			where:  qspec.Tree{{Key: "id", Val: []any{1, 2, 3}}, {Key: "role[!]", Val: []any{"a", "b"}}},
			sql:    `SELECT * FROM "users" WHERE "id" IN (:p1,:p2,:p3) AND "role" NOT IN (:p4,:p5)`,
			params: 5,
		},
		{
			name:   "between and not between",
			table:  "events",
			where:  qspec.Tree{{Key: "ts[<>]", Val: []any{10, 20}}, {Key: "id[><]", Val: []any{5, 8}}},
			sql:    `SELECT * FROM "events" WHERE "ts" BETWEEN :p1 AND :p2 AND "id" NOT BETWEEN :p3 AND :p4`,
			params: 4,
		},
		{
			name:   "like wraps bare pattern",
			table:  "users",
			where:  map[string]any{"name[~]": "ann"},
			sql:    `SELECT * FROM "users" WHERE "name" LIKE :p1`,
			params: 1,
		},
		{
			name:   "like multi pattern groups",
			table:  "users",
			where:  map[string]any{"name[~]": []any{"ann%", "bob"}},
			sql:    `SELECT * FROM "users" WHERE ("name" LIKE :p1 OR "name" LIKE :p2)`,
			params: 2,
		},
		{
			name:   "not like with and relationship",
			table:  "users",
			where:  map[string]any{"name[!~]": map[string]any{"AND": []any{"a", "b"}}},
			sql:    `SELECT * FROM "users" WHERE ("name" NOT LIKE :p1 AND "name" NOT LIKE :p2)`,
			params: 2,
		},
		{
			name:   "regexp",
			table:  "users",
			where:  map[string]any{"name[REGEXP]": "^a"},
			sql:    `SELECT * FROM "users" WHERE "name" REGEXP :p1`,
			params: 1,
		},
		{
			name:  "or group keeps order",
			table: "users",
			where: qspec.Tree{
				{Key: "active", Val: true},
				{Key: "OR", Val: qspec.Tree{{Key: "role", Val: "admin"}, {Key: "level[>]", Val: 9}}},
			},
			sql:    `SELECT * FROM "users" WHERE "active" = :p1 AND ("role" = :p2 OR "level" > :p3)`,
			params: 3,
		},
		{
			name:  "or over and groups",
			table: "users",
			where: qspec.Tree{
				{Key: "OR", Val: []any{
					qspec.Tree{{Key: "role", Val: "admin"}, {Key: "active", Val: 1}},
					qspec.Tree{{Key: "level[>]", Val: 9}},
				}},
			},
			sql:    `SELECT * FROM "users" WHERE (("role" = :p1 AND "active" = :p2) OR ("level" > :p3))`,
			params: 3,
		},
		{
			name:  "comment disambiguates repeated logic keys",
			table: "users",
			where: qspec.Tree{
				{Key: "OR #one", Val: qspec.Tree{{Key: "a", Val: 1}, {Key: "b", Val: 2}}},
				{Key: "OR #two", Val: qspec.Tree{{Key: "c", Val: 3}, {Key: "d", Val: 4}}},
			},
			sql:    `SELECT * FROM "users" WHERE ("a" = :p1 OR "b" = :p2) AND ("c" = :p3 OR "d" = :p4)`,
			params: 4,
		},
		{
			name:   "column to column comparison",
			table:  "orders",
			where:  qspec.Tree{{Key: "", Val: "orders.paid[>=]orders.due"}},
			sql:    `SELECT * FROM "orders" WHERE "orders"."paid" >= "orders"."due"`,
			params: 0,
		},
		{
			name:   "function column passes unquoted",
			table:  "logs",
			where:  map[string]any{"DATE(created_at)[>]": "2026-01-01"},
			sql:    `SELECT * FROM "logs" WHERE DATE(created_at) > :p1`,
			params: 1,
		},
		{
			name:    "explicit columns with alias and cast",
			table:   "users",
			columns: []any{"id[Int]", "name (full_name)", "users.email"},
			sql:     `SELECT "id","name" AS "full_name","users"."email" FROM "users"`,
		},
		{
			name:    "table alias",
			table:   "users (u)",
			columns: "u.name",
			sql:     `SELECT "u"."name" FROM "users" AS "u"`,
		},
		{
			name:   "order group limit",
			table:  "posts",
			where:  qspec.Tree{{Key: "GROUP", Val: "type"}, {Key: "ORDER", Val: map[string]any{"score": "DESC"}}, {Key: "LIMIT", Val: 10}},
			sql:    `SELECT * FROM "posts" GROUP BY "type" ORDER BY "score" DESC LIMIT 10`,
			params: 0,
		},
		{
			name:   "limit with offset",
			table:  "posts",
			where:  map[string]any{"LIMIT": []any{20, 10}},
			sql:    `SELECT * FROM "posts" LIMIT 10 OFFSET 20`,
			params: 0,
		},
		{
			name:  "having over aggregate",
			table: "orders",
			where: qspec.Tree{
				{Key: "GROUP", Val: "user_id"},
				{Key: "HAVING", Val: map[string]any{"COUNT(id)[>]": 5}},
			},
			sql:    `SELECT * FROM "orders" GROUP BY "user_id" HAVING COUNT(id) > :p1`,
			params: 1,
		},
		{
			name:   "order by custom value list escapes literals",
			table:  "tickets",
			where:  map[string]any{"ORDER": map[string]any{"state": []any{"open", "hold", "done"}}},
			sql:    `SELECT * FROM "tickets" ORDER BY FIELD("state",'open','hold','done')`,
			params: 0,
		},
		{
			name:   "order by custom numeric list stays verbatim",
			table:  "tickets",
			where:  map[string]any{"ORDER": map[string]any{"id": []any{3, 1, 2}}},
			sql:    `SELECT * FROM "tickets" ORDER BY FIELD("id",3,1,2)`,
			params: 0,
		},
		{
			name:  "fulltext match appended with and",
			table: "posts",
			where: qspec.Tree{
				{Key: "published", Val: 1},
				{Key: "MATCH", Val: map[string]any{
					"columns": []any{"title", "body"},
					"keyword": "golang",
					"mode":    "boolean",
				}},
			},
			sql:    `SELECT * FROM "posts" WHERE "published" = :p1 AND MATCH ("title","body") AGAINST (:p2 IN BOOLEAN MODE)`,
			params: 2,
		},
		{
			name:   "boolean binds as flag",
			table:  "users",
			where:  map[string]any{"active": true},
			sql:    `SELECT * FROM "users" WHERE "active" = :p1`,
			params: 1,
		},
		{
			name:    "join using",
			table:   "users",
			joins:   qspec.Tree{{Key: "[>]posts", Val: "user_id"}},
			columns: []any{"users.name", "posts.title"},
			sql:     `SELECT "users"."name","posts"."title" FROM "users" LEFT JOIN "posts" USING ("user_id")`,
		},
		{
			name:    "join on equality map",
			table:   "users",
			joins:   qspec.Tree{{Key: "[><]posts (p)", Val: map[string]any{"id": "user_id"}}},
			columns: []any{"users.name", "p.title"},
			sql:     `SELECT "users"."name","p"."title" FROM "users" INNER JOIN "posts" AS "p" ON "users"."id" = "p"."user_id"`,
		},
		{
			name:    "join on dotted left side",
			table:   "a",
			joins:   qspec.Tree{{Key: "[<]b", Val: map[string]any{"c.x": "y"}}},
			columns: "a.id",
			sql:     `SELECT "a"."id" FROM "a" RIGHT JOIN "b" ON "c"."x" = "b"."y"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, sql := compileSelect(t, tt.table, tt.joins, tt.columns, tt.where)
			if sql != tt.sql {
				t.Errorf("got  %s\nwant %s", sql, tt.sql)
			}
			if n := len(md.Params()); n != tt.params {
				t.Errorf("got %d params, want %d", n, tt.params)
			}
		})
	}
}

func TestSelectErrors(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		joins   any
		columns any
		where   any
		err     error
	}{
		{
			name:  "wildcard under join",
			table: "users",
			joins: qspec.Tree{{Key: "[>]posts", Val: "user_id"}},
			err:   qspec.ErrAmbiguousWildcard,
		},
		{
			name:  "table wildcard under join",
			table: "users",
			joins: qspec.Tree{{Key: "[>]posts", Val: "user_id"}},

			columns: "posts.*",
			err:     qspec.ErrAmbiguousWildcard,
		},
		{
			name:  "join key without direction",
			table: "users",
			joins: map[string]any{"posts": "user_id"},
			err:   qspec.ErrMalformedJoinKey,
		},
		{
			name:  "join key with unknown direction",
			table: "users",
			joins: map[string]any{"[>>]posts": "user_id"},
			err:   qspec.ErrMalformedJoinKey,
		},
		{
			name:  "unknown operator",
			table: "users",
			where: map[string]any{"age[%]": 1},
			err:   qspec.ErrMalformedCondition,
		},
		{
			name:  "between needs two elements",
			table: "users",
			where: map[string]any{"age[<>]": []any{1}},
			err:   qspec.ErrMalformedCondition,
		},
		{
			name:  "bad table name",
			table: "users; DROP TABLE users",
			err:   qspec.ErrInvalidIdentifier,
		},
		{
			name:    "bad column name",
			table:   "users",
			columns: "name,email",
			err:     qspec.ErrInvalidIdentifier,
		},
		{
			name:  "limit must be numeric",
			table: "users",
			where: map[string]any{"LIMIT": "ten"},
			err:   qspec.ErrMalformedCondition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := qspec.BuildQuery(tt.table, tt.joins, tt.columns, tt.where)
			if err == nil {
				_, _, err = newTestCompiler("").CompileQuery(q)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("got %v, want %v", err, tt.err)
			}
		})
	}
}

func TestTablePrefix(t *testing.T) {
	q, err := qspec.BuildQuery("users",
		qspec.Tree{{Key: "[>]posts", Val: map[string]any{"id": "user_id"}}},
		[]any{"users.name", "posts.title"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, sql, err := newTestCompiler("app_").CompileQuery(q)
	if err != nil {
		t.Fatal(err)
	}

	want := `SELECT "app_users"."name","app_posts"."title" FROM "app_users" ` +
		`LEFT JOIN "app_posts" ON "app_users"."id" = "app_posts"."user_id"`
	if sql != want {
		t.Errorf("got  %s\nwant %s", sql, want)
	}
}

func TestNestedScopeQualifiesColumns(t *testing.T) {
	_, sql := compileSelect(t, "users", nil,
		qspec.Tree{{Key: "users", Val: map[string]any{"profile": []any{"id", "name"}}}}, nil)

	want := `SELECT "users"."id","users"."name" FROM "users"`
	if sql != want {
		t.Errorf("got  %s\nwant %s", sql, want)
	}
}

// A single root key holding a list is the grouping form: the key is a real
// column and must be selected ahead of the nested columns so rows can be
// indexed by it.
func TestIndexKeyGroupingSelectsKeyColumn(t *testing.T) {
	_, sql := compileSelect(t, "users", nil,
		qspec.Tree{{Key: "uid", Val: []any{"name", "email"}}}, nil)

	want := `SELECT "uid","name","email" FROM "users"`
	if sql != want {
		t.Errorf("got  %s\nwant %s", sql, want)
	}
}

func TestCompileExists(t *testing.T) {
	q, err := qspec.BuildQuery("users", nil, nil, map[string]any{"id": 7})
	if err != nil {
		t.Fatal(err)
	}
	_, sql, err := newTestCompiler("").CompileExists(q)
	if err != nil {
		t.Fatal(err)
	}
	want := `SELECT EXISTS(SELECT * FROM "users" WHERE "id" = :p1)`
	if sql != want {
		t.Errorf("got  %s\nwant %s", sql, want)
	}
}

func TestCompileAggregate(t *testing.T) {
	q, err := qspec.BuildQuery("orders", nil, nil, map[string]any{"status": "paid"})
	if err != nil {
		t.Fatal(err)
	}

	co := newTestCompiler("")

	_, sql, err := co.CompileAggregate(q, AggCount, "")
	if err != nil {
		t.Fatal(err)
	}
	if want := `SELECT COUNT(*) FROM "orders" WHERE "status" = :p1`; sql != want {
		t.Errorf("got  %s\nwant %s", sql, want)
	}

	_, sql, err = co.CompileAggregate(q, AggSum, "amount")
	if err != nil {
		t.Fatal(err)
	}
	if want := `SELECT SUM("amount") FROM "orders" WHERE "status" = :p2`; sql != want {
		t.Errorf("got  %s\nwant %s", sql, want)
	}
}

// The parameter sequence is engine wide, so parallel compilations must get
// distinct names.
func TestParamNamesUniqueAcrossCompilations(t *testing.T) {
	co := newTestCompiler("")
	seen := make(map[string]bool)

	for i := 0; i < 3; i++ {
		q, err := qspec.BuildQuery("users", nil, nil, map[string]any{"a": 1, "b": 2})
		if err != nil {
			t.Fatal(err)
		}
		md, _, err := co.CompileQuery(q)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range md.Params() {
			if seen[p.Name] {
				t.Fatalf("parameter name %q reused", p.Name)
			}
			seen[p.Name] = true
		}
	}
}
