package qmap

import "sync"

// queryLog is a ring of the last N generated statements, kept for
// debugging and the dry run surface.
type queryLog struct {
	mu      sync.Mutex
	max     int
	entries []Statement
}

func newQueryLog(max int) *queryLog {
	return &queryLog{max: max}
}

func (l *queryLog) add(st Statement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, st)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Last returns the most recently generated statement.
func (g *QMap) Last() (Statement, bool) {
	gm := g.Load().(*qmapEngine)
	gm.qlog.mu.Lock()
	defer gm.qlog.mu.Unlock()
	if len(gm.qlog.entries) == 0 {
		return Statement{}, false
	}
	return gm.qlog.entries[len(gm.qlog.entries)-1], true
}

// LastQueries returns up to n recently generated statements, newest last.
func (g *QMap) LastQueries(n int) []Statement {
	gm := g.Load().(*qmapEngine)
	gm.qlog.mu.Lock()
	defer gm.qlog.mu.Unlock()

	entries := gm.qlog.entries
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	out := make([]Statement, len(entries))
	copy(out, entries)
	return out
}
