package qmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindArgsPostgresNumbersDistinctNamesOnce(t *testing.T) {
	st := Statement{
		SQL: `SELECT * FROM "t" WHERE "a" = :p1 AND ("b" = :p2 OR "c" = :p1)`,
		Params: []Param{
			{Name: "p1", Value: 1},
			{Name: "p2", Value: 2},
		},
	}

	sql, args := bindArgs(st, '$')
	assert.Equal(t, `SELECT * FROM "t" WHERE "a" = $1 AND ("b" = $2 OR "c" = $1)`, sql)
	assert.Equal(t, []any{1, 2}, args)
}

func TestBindArgsQuestionRepeatsValues(t *testing.T) {
	st := Statement{
		SQL: `SELECT * FROM "t" WHERE "a" = :p1 AND "b" = :p1`,
		Params: []Param{
			{Name: "p1", Value: 7},
		},
	}

	sql, args := bindArgs(st, '?')
	assert.Equal(t, `SELECT * FROM "t" WHERE "a" = ? AND "b" = ?`, sql)
	assert.Equal(t, []any{7, 7}, args)
}

func TestBindArgsSkipsCasts(t *testing.T) {
	st := Statement{
		SQL:    `SELECT "ts"::text FROM "t" WHERE "id" = :p1`,
		Params: []Param{{Name: "p1", Value: 1}},
	}

	sql, args := bindArgs(st, '$')
	assert.Equal(t, `SELECT "ts"::text FROM "t" WHERE "id" = $1`, sql)
	assert.Len(t, args, 1)
}

func TestBindArgsLeavesUnknownTokens(t *testing.T) {
	st := Statement{
		SQL:    `SELECT * FROM "t" WHERE "a" = :nope`,
		Params: nil,
	}

	sql, args := bindArgs(st, '?')
	assert.Equal(t, `SELECT * FROM "t" WHERE "a" = :nope`, sql)
	assert.Empty(t, args)
}

func TestBindStyle(t *testing.T) {
	assert.Equal(t, byte('$'), bindStyle("postgres"))
	assert.Equal(t, byte('$'), bindStyle(""))
	assert.Equal(t, byte('?'), bindStyle("mysql"))
	assert.Equal(t, byte('?'), bindStyle("sqlite"))
}

func TestInlineSQL(t *testing.T) {
	st := Statement{
		SQL: `SELECT * FROM "t" WHERE "name" = :p1 AND "age" = :p2 AND "gone" = :p3`,
		Params: []Param{
			{Name: "p1", Value: "o'brien"},
			{Name: "p2", Value: 30},
			{Name: "p3", Value: nil},
		},
	}

	assert.Equal(t,
		`SELECT * FROM "t" WHERE "name" = 'o''brien' AND "age" = '30' AND "gone" = NULL`,
		InlineSQL(st))
}
