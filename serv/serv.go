// Package serv wraps a qmap engine in an HTTP service with config
// loading, structured logging, middleware and hot reload on config
// changes.
package serv

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/qbloq/qmap"
	"github.com/qbloq/qmap/serv/internal/util"
	"go.uber.org/zap"
)

var version = "unknown"

const (
	serverName = "qmap"
	defaultHP  = "0.0.0.0:8080"
)

// HttpService is the public service handle. The running service lives
// behind an atomic.Value so a config reload swaps it whole.
type HttpService struct {
	atomic.Value
}

type qmapService struct {
	conf     *Config
	db       *sql.DB
	qm       *qmap.QMap
	log      *zap.SugaredLogger
	zlog     *zap.Logger
	logLevel int
	srv      *http.Server
	resCache *resCache
	closeFn  func()
}

// Option modifies the service while it is being built.
type Option func(*qmapService) error

// OptionSetZapLogger replaces the service logger.
func OptionSetZapLogger(zlog *zap.Logger) Option {
	return func(s *qmapService) error {
		s.zlog = zlog
		s.log = zlog.Sugar()
		return nil
	}
}

// OptionSetDB replaces the database handle, skipping driver init.
func OptionSetDB(db *sql.DB) Option {
	return func(s *qmapService) error {
		s.db = db
		return nil
	}
}

// NewQMapService creates the service from a config.
func NewQMapService(conf *Config, options ...Option) (*HttpService, error) {
	s1 := &HttpService{}
	if err := s1.init(conf, options...); err != nil {
		return nil, err
	}
	return s1, nil
}

func (s1 *HttpService) init(conf *Config, options ...Option) error {
	zlevel := zap.DebugLevel
	if conf.Serv.Production {
		zlevel = zap.InfoLevel
	}
	zlog := util.NewLoggerLevel(conf.ShouldUseJSONLogs(), zlevel)

	s := &qmapService{
		conf: conf,
		zlog: zlog,
		log:  zlog.Sugar(),
	}
	initLogLevel(s)

	for _, op := range options {
		if err := op(s); err != nil {
			return err
		}
	}

	if s.db == nil {
		db, err := NewDB(conf, true, s.log)
		if err != nil {
			return fmt.Errorf("database init: %w", err)
		}
		s.db = db
	}

	qm, err := qmap.New(&conf.Core, s.db)
	if err != nil {
		return err
	}
	s.qm = qm

	if conf.Caching.Enable {
		s.resCache = newResCache(conf.Caching)
	}

	s1.Store(s)
	return nil
}

// Start runs the HTTP server until interrupted.
func (s1 *HttpService) Start() error {
	s := s1.Load().(*qmapService)
	if s.conf.WatchAndReload && !s.conf.Serv.Production {
		initConfigWatcher(s1)
	}
	startHTTP(s1)
	return nil
}

// Attach mounts the service routes under the router of a larger app.
func (s1 *HttpService) Attach(mux Mux) error {
	_, err := routesHandler(s1, mux)
	return err
}

func startHTTP(s1 *HttpService) {
	s := s1.Load().(*qmapService)

	r := chi.NewRouter()
	routes, err := routesHandler(s1, r)
	if err != nil {
		s.log.Fatalf("error setting up routes: %s", err)
	}

	hp := s.conf.hostPort
	if hp == "" {
		hp = s.conf.HostPort
	}
	if hp == "" {
		hp = defaultHP
	}

	s.srv = &http.Server{
		Addr:              hp,
		Handler:           routes,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		if err := s.srv.Shutdown(context.Background()); err != nil {
			s.log.Warn("shutdown signal received")
		}
		close(idleConnsClosed)
	}()

	s.srv.RegisterOnShutdown(func() {
		if s.closeFn != nil {
			s.closeFn()
		}
		if s.db != nil {
			s.db.Close() //nolint:errcheck
		}
	})

	s.log.Infof("%s started, version: %s, host: %s", serverName, version, s.srv.Addr)

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		s.log.Fatalf("server stopped: %s", err)
	}
	<-idleConnsClosed
}

func setServerHeader(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", serverName)
		h.ServeHTTP(w, r)
	})
}
