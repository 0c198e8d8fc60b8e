package sqlite

import (
	"database/sql"
	"path/filepath"

	// import sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/thrasher-corp/twapper/database"
)

// Connect opens a connection to sqlite database and attaches it to the
// supplied instance
func Connect(i *database.Instance) error {
	cfg := i.GetConfig()
	if cfg == nil || cfg.Database == "" {
		return database.ErrNoDatabaseProvided
	}

	location := cfg.Database
	if location != ":memory:" {
		location = filepath.Join(i.DataPath, cfg.Database)
	}

	dbConn, err := sql.Open(database.DBSQLite3, location)
	if err != nil {
		return err
	}
	return i.SetSQLiteConnection(dbConn)
}
