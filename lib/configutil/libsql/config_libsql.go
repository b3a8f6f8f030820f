package configlibsql

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	devenv "rosteretl/dev/env"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct describes either a local sqlite file or a remote libsql server.
type Struct struct {
	File      string `json:"file"`
	URL       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// String describes the database without leaking the auth token.
func (config Struct) String() string {
	if config.URL != "" {
		return config.URL
	}
	return config.File
}

func (config Struct) openRemote() (*sql.DB, error) {
	dsn := config.URL
	if config.AuthToken != "" {
		u, err := url.Parse(config.URL)
		if err != nil {
			return nil, fmt.Errorf("parse libsql url: %w", err)
		}
		q := u.Query()
		q.Set("authToken", config.AuthToken)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}
	return sql.Open("libsql", dsn)
}

func (config Struct) OpenDB() (*sql.DB, error) {
	if config.URL != "" {
		return config.openRemote()
	}
	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	dbpath, statErr := devenv.ResolvePath(config.File)
	if statErr != nil {
		return nil, statErr
	}

	_, statErr = os.Stat(dbpath)
	isNewDb := os.IsNotExist(statErr)
	if isNewDb {
		err := os.MkdirAll(filepath.Dir(dbpath), 0777)
		if err != nil {
			return nil, err
		}
		f, err := os.Create(dbpath)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
