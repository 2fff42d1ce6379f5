// Package qmap compiles declarative, nested query descriptions into
// parameterized SQL and maps the flat rows that come back into typed,
// possibly nested result objects.
package qmap

import (
	"database/sql"
	_log "log"
	"os"
	"sync/atomic"
)

// QMap is the public engine handle. The running engine lives behind an
// atomic.Value so a Reload swaps it without interrupting in flight calls.
type QMap struct {
	atomic.Value
}

// Option modifies the engine while it is being built.
type Option func(*qmapEngine) error

// New creates a QMap engine over a database handle. A nil db is allowed
// when an executor is supplied via OptionSetExecutor or OptionDryRun.
func New(conf *Config, db *sql.DB, options ...Option) (*QMap, error) {
	g := &QMap{}
	if err := g.newEngine(conf, db, options...); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *QMap) newEngine(conf *Config, db *sql.DB, options ...Option) error {
	gm, err := newQMapEngine(conf, db, options...)
	if err != nil {
		return err
	}
	g.Store(gm)
	return nil
}

// Reload rebuilds the engine from its saved config and options and swaps
// it in.
func (g *QMap) Reload() error {
	gm := g.Load().(*qmapEngine)
	return g.newEngine(gm.conf, gm.db, gm.opts...)
}

// OptionSetLogger sets the logger the engine writes debug statements to.
func OptionSetLogger(logger *_log.Logger) Option {
	return func(gm *qmapEngine) error {
		gm.log = logger
		return nil
	}
}

// OptionSetExecutor replaces the default database/sql executor.
func OptionSetExecutor(exec Executor) Option {
	return func(gm *qmapEngine) error {
		gm.exec = exec
		return nil
	}
}

// OptionDryRun compiles statements without executing them. Reads return
// empty results; the generated SQL lands in the query log.
func OptionDryRun() Option {
	return func(gm *qmapEngine) error {
		gm.exec = &dryRunExecutor{}
		return nil
	}
}

var defaultLogger = _log.New(os.Stdout, "", 0)
