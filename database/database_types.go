package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"sync"

	"github.com/thrasher-corp/twapper/database/drivers"
)

// Supported database drivers
const (
	DBSQLite3    = "sqlite3"
	DBPostgreSQL = "postgres"

	// DefaultSQLiteDatabase is the file used when no sqlite3 database is set
	DefaultSQLiteDatabase = "twapper.db"
)

var (
	// MigrationDir is the default folder of goose migrations, one folder per
	// version holding a <driver>.sql file each
	MigrationDir = filepath.Join("database", "migrations")

	// SupportedDrivers defines a list of supported database drivers
	SupportedDrivers = []string{DBSQLite3, DBPostgreSQL}

	// ErrNoDatabaseProvided is returned when a driver has no database name
	ErrNoDatabaseProvided = errors.New("no database provided")
	// ErrDatabaseNotConnected is returned when the instance has no live connection
	ErrDatabaseNotConnected = errors.New("database is not connected")
	// ErrUnsupportedDriver is returned for drivers outside SupportedDrivers
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	errNilInstance = errors.New("database instance is nil")
	errNilConfig   = errors.New("received nil database config")
	errNilSQL      = errors.New("database SQL connection is nil")
)

// Instance holds all information for a database instance
type Instance struct {
	SQL       *sql.DB
	DataPath  string
	config    *Config
	connected bool
	m         sync.RWMutex
}

// Config holds all database configurable options including enable/disabled & DSN settings
type Config struct {
	Enabled                   bool   `json:"enabled" mapstructure:"enabled"`
	Verbose                   bool   `json:"verbose" mapstructure:"verbose"`
	Driver                    string `json:"driver" mapstructure:"driver"`
	MigrationDir              string `json:"migrationDir,omitempty" mapstructure:"migrationDir"`
	drivers.ConnectionDetails `mapstructure:",squash"`
}
