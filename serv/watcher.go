package serv

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/qbloq/qmap"
)

// initConfigWatcher starts the config file watcher. Disabled in
// production since a live swap of the engine is a dev convenience.
func initConfigWatcher(s1 *HttpService) {
	s := s1.Load().(*qmapService)
	if s.conf.Serv.Production {
		return
	}

	go func() {
		err := startConfigWatcher(s1)
		if err != nil {
			s.log.Fatalf("error in config file watcher: %s", err)
		}
	}()
}

func startConfigWatcher(s1 *HttpService) error {
	s := s1.Load().(*qmapService)

	cf := s.conf.vi.ConfigFileUsed()
	if cf == "" {
		return fmt.Errorf("no config file to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close() //nolint:errcheck

	// Editors replace files on save, so watch the directory and match
	// events against the config file name.
	if err := w.Add(filepath.Dir(cf)); err != nil {
		return err
	}

	var last time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(cf) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(last) < 500*time.Millisecond {
				continue
			}
			last = time.Now()

			if err := reloadService(s1, cf); err != nil {
				s.log.Errorf("config reload failed: %s", err)
			} else {
				s.log.Infof("config reloaded: %s", cf)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warnf("config watcher: %s", err)
		}
	}
}

// reloadService re-reads the config and swaps in a rebuilt service.
// The HTTP server and database handle carry over.
func reloadService(s1 *HttpService, configFile string) error {
	old := s1.Load().(*qmapService)

	conf, err := ReadInConfig(configFile)
	if err != nil {
		return err
	}

	s := &qmapService{
		conf:     conf,
		db:       old.db,
		zlog:     old.zlog,
		log:      old.log,
		logLevel: old.logLevel,
		srv:      old.srv,
		closeFn:  old.closeFn,
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
