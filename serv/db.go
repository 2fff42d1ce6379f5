package serv

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

type dbConf struct {
	driverName string
	connString string
}

// NewDB opens the configured database with a retry loop, since the
// service often races its database at startup.
func NewDB(conf *Config, openDB bool, log *zap.SugaredLogger) (*sql.DB, error) {
	dc, err := initDBDriver(conf, openDB)
	if err != nil {
		return nil, err
	}

	for i := 0; ; {
		db, err := sql.Open(dc.driverName, dc.connString)
		if err == nil {
			db.SetMaxIdleConns(conf.DB.PoolSize)
			db.SetMaxOpenConns(conf.DB.MaxConnections)
			db.SetConnMaxIdleTime(conf.DB.MaxConnIdleTime)
			db.SetConnMaxLifetime(conf.DB.MaxConnLifeTime)

			if err := db.Ping(); err == nil {
				return db, nil
			} else {
				db.Close() //nolint:errcheck
				log.Warnf("database ping: %s", err)
			}
		} else {
			log.Warnf("database open: %s", err)
		}

		time.Sleep(time.Duration(i*100) * time.Millisecond)

		retries := conf.DB.ConnectRetries
		if retries == 0 {
			retries = 50
		}
		if i > retries {
			return nil, err
		}
		i++
	}
}

// detectDBType detects the database type from the connection string
func detectDBType(conf *Config) {
	if cs := conf.DB.ConnString; cs != "" {
		if strings.HasPrefix(cs, "postgres://") || strings.HasPrefix(cs, "postgresql://") {
			conf.DB.Type = "postgres"
		}
		if strings.HasPrefix(cs, "mysql://") {
			conf.DB.Type = "mysql"
			conf.DB.ConnString = strings.TrimPrefix(cs, "mysql://")
		}
		if strings.HasPrefix(cs, "sqlite://") {
			conf.DB.Type = "sqlite"
			conf.DB.ConnString = strings.TrimPrefix(cs, "sqlite://")
		}
	}
}

func initDBDriver(conf *Config, openDB bool) (*dbConf, error) {
	detectDBType(conf)
	if conf.DB.Type != "" {
		conf.DBType = strings.ToLower(conf.DB.Type)
	}

	switch conf.DBType {
	case "", "postgres":
		conf.DBType = "postgres"
		return initPostgres(conf, openDB)
	case "mysql", "mariadb":
		return initMysql(conf, openDB)
	case "sqlite":
		return initSqlite(conf)
	}
	return nil, fmt.Errorf("unsupported database type %q: supported types are postgres, mysql, mariadb, sqlite", conf.DBType)
}

// initPostgres registers a pgx connection config and returns its driver
// handle.
func initPostgres(conf *Config, openDB bool) (*dbConf, error) {
	db := conf.DB

	cs := db.ConnString
	if cs == "" {
		cs = fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			db.User, db.Password, db.Host, db.Port, dbName(conf, openDB))
	}

	config, err := pgx.ParseConfig(cs)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	config.RuntimeParams = map[string]string{
		"application_name": conf.AppName,
		"search_path":      "public",
	}

	return &dbConf{
		driverName: "pgx",
		connString: stdlib.RegisterConnConfig(config),
	}, nil
}

func initMysql(conf *Config, openDB bool) (*dbConf, error) {
	db := conf.DB

	cs := db.ConnString
	if cs == "" {
		cs = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
			db.User, db.Password, db.Host, db.Port, dbName(conf, openDB))
	}
	return &dbConf{driverName: "mysql", connString: cs}, nil
}

func initSqlite(conf *Config) (*dbConf, error) {
	cs := conf.DB.ConnString
	if cs == "" {
		cs = conf.DB.DBName
	}
	if cs == "" {
		cs = ":memory:"
	}
	return &dbConf{driverName: "sqlite", connString: cs}, nil
}

func dbName(conf *Config, openDB bool) string {
	if !openDB {
		return ""
	}
	return conf.DB.DBName
}
