// Package database opens and migrates the SQL database backing the local key/value store.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/raulpleon95-ctrl/SECUNDARIA/assets"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
)

const (
	EngineSQLite   = "sqlite3"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

func dsn(dbName string, admin bool, sc core.StorageConfig) (string, error) {
	switch sc.Engine {
	case EngineSQLite:
		return "file:" + sc.Path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", nil

	case EnginePostgres:
		user := url.UserPassword(sc.User, sc.Password)
		if admin && sc.AdminUser != "" {
			user = url.UserPassword(sc.AdminUser, sc.AdminPass)
		}

		sslMode := "require"
		if sc.DisableTLS {
			sslMode = "disable"
		}
		q := make(url.Values)
		q.Set("sslmode", sslMode)
		q.Set("timezone", "utc")

		u := url.URL{
			Scheme:   sc.Engine,
			User:     user,
			Host:     sc.Address(),
			Path:     dbName,
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	}
	return "", errors.Errorf("unsupported storage engine %q", sc.Engine)
}

func open(dbName string, admin bool, sc core.StorageConfig) (*sqlx.DB, error) {
	source, err := dsn(dbName, admin, sc)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(sc.Engine, source)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if sc.Engine == EngineSQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Open connects to the configured database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Storage.Name, false, conf.Storage)
	if err != nil {
		return nil, err
	}
	if err := ping(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	err := db.Get(&found, query, name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

func createAppUser(db *sqlx.DB, sc core.StorageConfig) error {
	if sc.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", sc.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		// identifiers and passwords cannot be bound parameters in DDL
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s", pq.QuoteIdentifier(sc.User), pq.QuoteLiteral(sc.Password))
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, sc core.StorageConfig) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", sc.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(sc.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the postgres role and database of the app.
// SQLite databases are created on first open.
func CreateIfNotExist(conf *core.Config) error {
	sc := conf.Storage
	if sc.Engine != EnginePostgres {
		return nil
	}

	// connect as admin
	db, err := open("postgres", true, sc)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err = ping(db.DB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, sc); err != nil {
		return err
	}

	// create DB as app user
	appDB, err := open("postgres", false, sc)
	if err != nil {
		return err
	}
	defer func() { _ = appDB.Close() }()
	return createDB(appDB, sc)
}

// Migrate runs the goose command `cmd` ("up", "down", "status", ...) with the
// embedded migrations of the database dialect.
func Migrate(db *sqlx.DB, cmd string, args ...string) error {
	goose.SetBaseFS(assets.Migrations)
	if err := goose.SetDialect(db.DriverName()); err != nil {
		return errors.Wrap(err, "selecting migration dialect")
	}
	if err := goose.Run(cmd, db.DB, "migrations/"+db.DriverName(), args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", cmd)
	}
	return nil
}
