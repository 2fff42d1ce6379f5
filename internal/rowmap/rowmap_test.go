package rowmap

import (
	"reflect"
	"testing"

	"github.com/qbloq/qmap/internal/qspec"
)

func mustColumns(t *testing.T, v any) *qspec.Columns {
	t.Helper()
	cols, err := qspec.ParseColumns(v, false)
	if err != nil {
		t.Fatal(err)
	}
	return cols
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   any
		typ  qspec.TypeTag
		want any
	}{
		{name: "string int", in: "7", typ: qspec.TypeInt, want: int64(7)},
		{name: "float int", in: 7.0, typ: qspec.TypeInt, want: int64(7)},
		{name: "bytes int", in: []byte("42"), typ: qspec.TypeInt, want: int64(42)},
		{name: "string number", in: "3.5", typ: qspec.TypeNumber, want: 3.5},
		{name: "int number", in: int64(3), typ: qspec.TypeNumber, want: 3.0},
		{name: "bool from one", in: int64(1), typ: qspec.TypeBool, want: true},
		{name: "bool from zero string", in: "0", typ: qspec.TypeBool, want: false},
		{name: "bool from f", in: "f", typ: qspec.TypeBool, want: false},
		{name: "bool from t", in: "t", typ: qspec.TypeBool, want: true},
		{name: "string stays", in: "x", typ: qspec.TypeString, want: "x"},
		{name: "bytes read as string", in: []byte("x"), typ: qspec.TypeString, want: "x"},
		{name: "nil passes through", in: nil, typ: qspec.TypeInt, want: nil},
		{name: "unparsable int stays", in: "abc", typ: qspec.TypeInt, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coerce(tt.in, tt.typ)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v (%T), want %v", got, got, tt.want)
			}
		})
	}
}

func TestCoerceJSON(t *testing.T) {
	got := Coerce(`{"a":1}`, qspec.TypeJSON)
	m, ok := got.(map[string]any)
	if !ok || m["a"] != 1.0 {
		t.Errorf("got %v (%T)", got, got)
	}

	// corrupt payloads degrade to the raw string instead of erroring
	got = Coerce(`{"a":`, qspec.TypeJSON)
	if got != `{"a":` {
		t.Errorf("got %v", got)
	}
}

func TestBuildColumnMap(t *testing.T) {
	cols := mustColumns(t, []any{"id[Int]", "name (nick)", "meta[JSON]"})
	cmap := BuildColumnMap(cols)

	if f := cmap["id"]; f.Type != qspec.TypeInt {
		t.Errorf("id: %+v", f)
	}
	if f, ok := cmap["nick"]; !ok || f.Type != qspec.TypeString {
		t.Errorf("nick: %+v", f)
	}
	if f := cmap["meta"]; f.Type != qspec.TypeJSON {
		t.Errorf("meta: %+v", f)
	}

	if BuildColumnMap(mustColumns(t, "*")) != nil {
		t.Error("star spec should have no column map")
	}
}

func TestMapRowsStarCopies(t *testing.T) {
	rows := []map[string]any{{"id": int64(1), "name": []byte("ann")}}
	out := MapRows(rows, mustColumns(t, "*"), nil)

	list, ok := out.([]map[string]any)
	if !ok || len(list) != 1 {
		t.Fatalf("got %T", out)
	}
	if list[0]["name"] != "ann" {
		t.Errorf("bytes should read as string: %v", list[0]["name"])
	}

	// the copy must not alias the driver row
	list[0]["id"] = int64(99)
	if rows[0]["id"] != int64(1) {
		t.Error("mapped row aliases the source row")
	}
}

func TestMapRowsCoercesDeclaredTypes(t *testing.T) {
	cols := mustColumns(t, []any{"id[Int]", "score[Number]", "active[Bool]"})
	cmap := BuildColumnMap(cols)

	rows := []map[string]any{
		{"id": "7", "score": "9.5", "active": int64(1)},
	}
	out := MapRows(rows, cols, cmap).([]map[string]any)

	row := out[0]
	if row["id"] != int64(7) || row["score"] != 9.5 || row["active"] != true {
		t.Errorf("got %+v", row)
	}
}

func TestMapRowsNestedShape(t *testing.T) {
	cols := mustColumns(t, []any{
		"id[Int]",
		map[string]any{"author": map[string]any{"profile": []any{"name"}}},
	})
	cmap := BuildColumnMap(cols)

	rows := []map[string]any{{"id": int64(1), "name": "ann"}}
	out := MapRows(rows, cols, cmap).([]map[string]any)

	author, ok := out[0]["author"].(map[string]any)
	if !ok {
		t.Fatalf("got %+v", out[0])
	}
	profile, ok := author["profile"].(map[string]any)
	if !ok || profile["name"] != "ann" {
		t.Errorf("got %+v", author)
	}
}

// A single top level key holding a list groups the result set into a map
// keyed by that column's value per row. The key column is selected by the
// generated SQL but is not among the output columns.
func TestMapRowsIndexKeyedGrouping(t *testing.T) {
	cols := mustColumns(t, qspec.Tree{
		{Key: "uid", Val: []any{"name", "email"}},
	})
	cmap := BuildColumnMap(cols)

	rows := []map[string]any{
		{"uid": int64(1), "name": "ann", "email": "a@x"},
		{"uid": int64(2), "name": "bob", "email": "b@x"},
	}
	out := MapRows(rows, cols, cmap)

	grouped, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("got %T", out)
	}
	if len(grouped) != 2 {
		t.Fatalf("got %d entries: %+v", len(grouped), grouped)
	}
	one, ok := grouped["1"].(map[string]any)
	if !ok || one["name"] != "ann" {
		t.Errorf("got %+v", grouped)
	}
	if _, ok := one["uid"]; ok {
		t.Error("index column must not appear among the output columns")
	}
	two, ok := grouped["2"].(map[string]any)
	if !ok || two["email"] != "b@x" {
		t.Errorf("got %+v", grouped)
	}
}

// An aliased grouping key indexes rows by the alias, since that is the
// column name the driver hands back.
func TestMapRowsGroupingKeyAlias(t *testing.T) {
	cols := mustColumns(t, qspec.Tree{
		{Key: "user_id (uid)", Val: []any{"name"}},
	})

	rows := []map[string]any{{"uid": "7", "name": "ann"}}
	out := MapRows(rows, cols, BuildColumnMap(cols))

	grouped, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("got %T", out)
	}
	if _, ok := grouped["7"]; !ok {
		t.Errorf("got %+v", grouped)
	}
}
