package main

import (
	"database/sql"
	"os"
	"path"
	"path/filepath"

	"github.com/qbloq/qmap/serv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// These variables are set using -ldflags
	version string
	commit  string
	date    string
)

var (
	log      *zap.SugaredLogger
	db       *sql.DB
	dbOpened bool
	conf     *serv.Config
	cpath    string
)

// Cmd is the entry point for the CLI
func Cmd() {
	log = newLogger(false).Sugar()

	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:   "qmap",
		Short: BuildDetails(),
	}

	rootCmd.PersistentFlags().StringVar(&cpath,
		"path", "./config", "path to config files")

	rootCmd.AddCommand(newCmd())
	rootCmd.AddCommand(servCmd())
	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%s", err)
	}
}

// setup is a helper function to read the config file
func setup(cpath string) {
	if conf != nil {
		return
	}

	cp, err := filepath.Abs(cpath)
	if err != nil {
		log.Fatal(err)
	}

	cn := serv.GetConfigName()

	if conf, err = serv.ReadInConfig(path.Join(cp, cn+".yml")); err != nil {
		log.Fatal(err)
	}
}

// initDB is a helper function to initialize the database connection
func initDB(openDB bool) {
	var err error

	if db != nil && openDB == dbOpened {
		return
	}
	if db, err = serv.NewDB(conf, openDB, log); err != nil {
		log.Fatalf("Failed to connect to database: %s", err)
	}
	dbOpened = openDB
}

// newLogger creates a new logger
func newLogger(json bool) *zap.Logger {
	return newLoggerWithOutput(json, os.Stdout)
}

// newLoggerWithOutput creates a new logger with a custom output
func newLoggerWithOutput(json bool, output zapcore.WriteSyncer) *zap.Logger {
	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var core zapcore.Core

	if json {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(econf), output, zap.DebugLevel)
	} else {
		econf.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(econf), output, zap.DebugLevel)
	}
	return zap.New(core)
}
