package sqlgen

import (
	"sort"
	"strings"

	"github.com/qbloq/qmap/internal/qspec"
)

// splice expands a raw fragment into the statement. <table> and
// <table.column> placeholders are quoted; everything else passes through
// verbatim. The fragment's named parameters merge into the statement
// metadata.
func (c *compilerContext) splice(raw qspec.Raw) error {
	s := raw.SQL

	for i := 0; i < len(s); {
		j := strings.IndexByte(s[i:], '<')
		if j < 0 {
			c.w.WriteString(s[i:])
			break
		}
		j += i
		c.w.WriteString(s[i:j])

		k := strings.IndexByte(s[j:], '>')
		if k < 0 {
			c.w.WriteString(s[j:])
			break
		}
		k += j

		token := s[j+1 : k]
		if !columnRe.MatchString(token) {
			c.w.WriteByte('<')
			i = j + 1
			continue
		}

		// a placeholder the caller already wrapped in quotes stays as is
		if (j > 0 && s[j-1] == '"') || (k+1 < len(s) && s[k+1] == '"') {
			c.w.WriteString(s[j : k+1])
			i = k + 1
			continue
		}

		var err error
		if !strings.ContainsRune(token, '.') && tableKeywordBefore(s[:j]) {
			err = c.table(token)
		} else {
			err = c.col(token)
		}
		if err != nil {
			return err
		}
		i = k + 1
	}

	return c.mergeParams(raw.Params)
}

func (c *compilerContext) mergeParams(params map[string]any) error {
	if len(params) == 0 {
		return nil
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := c.addNamedParam(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

// tableKeywordBefore reports whether the text ends with a keyword that
// introduces a table reference.
func tableKeywordBefore(s string) bool {
	s = strings.TrimRight(s, " \t\n")
	i := len(s)
	for i > 0 && isWordChar(s[i-1]) {
		i--
	}
	switch strings.ToUpper(s[i:]) {
	case "FROM", "TABLE", "INTO", "UPDATE", "JOIN":
		return true
	}
	return false
}

func isWordChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
