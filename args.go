package qmap

import (
	"strconv"
	"strings"

	"github.com/qbloq/qmap/internal/sqlgen"
)

// bindArgs rewrites :name placeholder tokens to the driver's native style
// and materializes the value list in text order, so values always line up
// one to one with the placeholders they were generated for.
func bindArgs(st Statement, style byte) (string, []any) {
	index := paramIndex(st)

	var w strings.Builder
	var args []any
	numbered := map[string]int{}

	walkPlaceholders(st.SQL, &w, func(name string) {
		i, ok := index[name]
		if !ok {
			// unknown token compiles through untouched
			w.WriteByte(':')
			w.WriteString(name)
			return
		}

		switch style {
		case '$':
			// postgres numbers distinct parameters once
			n, ok := numbered[name]
			if !ok {
				args = append(args, st.Params[i].Value)
				n = len(args)
				numbered[name] = n
			}
			w.WriteByte('$')
			w.WriteString(strconv.Itoa(n))
		default:
			args = append(args, st.Params[i].Value)
			w.WriteByte('?')
		}
	})

	return w.String(), args
}

// InlineSQL renders a statement with its parameters inlined as escaped
// literals, for display only. Never send the result to a database.
func InlineSQL(st Statement) string {
	index := paramIndex(st)

	var w strings.Builder
	walkPlaceholders(st.SQL, &w, func(name string) {
		i, ok := index[name]
		if !ok {
			w.WriteByte(':')
			w.WriteString(name)
			return
		}
		v := st.Params[i].Value
		if v == nil {
			w.WriteString("NULL")
			return
		}
		w.WriteString(sqlgen.EscapeLiteral(v))
	})
	return w.String()
}

func paramIndex(st Statement) map[string]int {
	index := make(map[string]int, len(st.Params))
	for i, p := range st.Params {
		index[p.Name] = i
	}
	return index
}

// walkPlaceholders scans SQL text for :name tokens, copying everything
// else through. A doubled colon is a cast and passes untouched.
func walkPlaceholders(s string, w *strings.Builder, emit func(name string)) {
	for i := 0; i < len(s); {
		j := strings.IndexByte(s[i:], ':')
		if j < 0 {
			w.WriteString(s[i:])
			return
		}
		j += i
		w.WriteString(s[i:j])

		if j+1 < len(s) && s[j+1] == ':' {
			w.WriteString("::")
			i = j + 2
			continue
		}

		k := j + 1
		for k < len(s) && isNameChar(s[k]) {
			k++
		}
		if k == j+1 {
			w.WriteByte(':')
			i = j + 1
			continue
		}

		emit(s[j+1 : k])
		i = k
	}
}

func isNameChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// bindStyle picks the placeholder style for a database type.
func bindStyle(dbtype string) byte {
	if dbtype == "" || dbtype == "postgres" {
		return '$'
	}
	return '?'
}
