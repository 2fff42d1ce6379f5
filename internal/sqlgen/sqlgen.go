// Package sqlgen renders parsed query specs into parameterized SQL.
//
// The compiler writes statements into a bytes.Buffer through a per call
// compilerContext while collecting named parameters into a Metadata value.
// Generated parameter names come from an atomic sequence owned by the
// Compiler, so concurrent compilations never collide. User values only ever
// enter a statement through a parameter or a caller supplied raw fragment.
package sqlgen

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/qbloq/qmap/internal/qspec"
)

// Param is one named statement parameter. Params is ordered by generation,
// which is also the order placeholders appear in the statement text.
type Param struct {
	Name  string
	Value any
}

// Metadata is the per statement parameter state.
type Metadata struct {
	params []Param
	pindex map[string]int
}

// Params returns the ordered parameter list.
func (md *Metadata) Params() []Param {
	return md.params
}

// Compiler renders query specs for one engine. The parameter sequence is
// the only mutable state and is shared by every compilation the engine runs.
type Compiler struct {
	prefix string
	seq    *atomic.Int64
	esc    func(any) string
}

// NewCompiler creates a compiler with a table name prefix and the engine's
// parameter name sequence.
func NewCompiler(prefix string, seq *atomic.Int64) *Compiler {
	return &Compiler{prefix: prefix, seq: seq, esc: EscapeLiteral}
}

// SetEscapeFunc installs the literal escape hook used by the ORDER BY
// custom value list, the single place a value is inlined into SQL text.
func (co *Compiler) SetEscapeFunc(esc func(any) string) {
	if esc != nil {
		co.esc = esc
	}
}

type compilerContext struct {
	md *Metadata
	w  *bytes.Buffer
	*Compiler
}

func (co *Compiler) newContext() *compilerContext {
	return &compilerContext{
		md:       &Metadata{pindex: make(map[string]int)},
		w:        &bytes.Buffer{},
		Compiler: co,
	}
}

// param binds a value under a fresh generated name and writes the
// placeholder token.
func (c *compilerContext) param(v any) {
	name := "p" + strconv.FormatInt(c.seq.Add(1), 10)
	c.md.pindex[name] = len(c.md.params)
	c.md.params = append(c.md.params, Param{Name: name, Value: v})
	c.w.WriteByte(':')
	c.w.WriteString(name)
}

// addNamedParam merges a raw fragment parameter into the statement.
// Re-merging the same name with the same value is a no-op; a different
// value under an existing name is an invariant violation.
func (c *compilerContext) addNamedParam(name string, v any) error {
	name = strings.TrimPrefix(name, ":")
	if i, ok := c.md.pindex[name]; ok {
		if !reflect.DeepEqual(c.md.params[i].Value, v) {
			return fmt.Errorf("parameter %q bound twice with different values: %w",
				name, qspec.ErrDuplicateParameter)
		}
		return nil
	}
	c.md.pindex[name] = len(c.md.params)
	c.md.params = append(c.md.params, Param{Name: name, Value: v})
	return nil
}

// EscapeLiteral is the default single quoted literal escape, doubling any
// embedded quote.
func EscapeLiteral(v any) string {
	s := fmt.Sprint(v)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
