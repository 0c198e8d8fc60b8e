package postgres

import (
	"database/sql"
	"fmt"

	// import postgres driver
	_ "github.com/lib/pq"
	"github.com/thrasher-corp/twapper/database"
)

// Connect opens a connection to a postgres database and attaches it to the
// supplied instance
func Connect(i *database.Instance) error {
	cfg := i.GetConfig()
	if cfg == nil || cfg.Database == "" {
		return database.ErrNoDatabaseProvided
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	dbConn, err := sql.Open(database.DBPostgreSQL, DSN(cfg))
	if err != nil {
		return err
	}
	if err = i.SetPostgresConnection(dbConn); err != nil {
		_ = dbConn.Close()
		return err
	}
	return nil
}

// DSN builds a lib/pq connection string from config
func DSN(cfg *database.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode)
}
