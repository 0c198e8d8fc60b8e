package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/thrasher-corp/goose"
	"github.com/thrasher-corp/twapper/config"
	"github.com/thrasher-corp/twapper/database"
	dbpsql "github.com/thrasher-corp/twapper/database/drivers/postgres"
	dbsqlite3 "github.com/thrasher-corp/twapper/database/drivers/sqlite3"
	"github.com/urfave/cli/v2"
)

var errDatabaseDisabled = errors.New("database support is disabled")

var (
	configFile   string
	envFile      string
	migrationDir string
	command      string
	args         string
)

func openDBConnection(cfg *config.Config) (*database.Instance, error) {
	i := &database.Instance{DataPath: cfg.GetDataPath("database")}
	if err := i.SetConfig(&cfg.Database); err != nil {
		return nil, err
	}
	var err error
	switch cfg.Database.Driver {
	case database.DBPostgreSQL:
		err = dbpsql.Connect(i)
	case database.DBSQLite3:
		if err = os.MkdirAll(i.DataPath, 0o770); err != nil {
			return nil, err
		}
		err = dbsqlite3.Connect(i)
	default:
		return nil, fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("database failed to connect: %w", err)
	}
	return i, nil
}

func main() {
	app := cli.NewApp()
	app.Name = "dbmigrate"
	app.Usage = "applies the execution journal migrations"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "command",
			Value:       "status",
			Usage:       "command to run status|up|up-by-one|up-to|down|down-to|redo|reset|version",
			Destination: &command,
		},
		&cli.StringFlag{
			Name:        "args",
			Usage:       "arguments to pass to goose",
			Destination: &args,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "config file to load (json, yaml or toml)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "env",
			Value:       config.EnvFile,
			Usage:       "dotenv file to load before the config",
			Destination: &envFile,
		},
		&cli.StringFlag{
			Name:        "migrationdir",
			Usage:       "overrides the configured migration folder",
			Destination: &migrationDir,
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cli.Context) error {
	// exchange credentials are not needed to migrate
	if err := os.Setenv(config.EnvPrefix+"_EXCHANGE_PAPER", "true"); err != nil {
		return err
	}
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Database.Enabled {
		return errDatabaseDisabled
	}
	dir := cfg.Database.MigrationDir
	if migrationDir != "" {
		dir = migrationDir
	}
	if dir == "" {
		dir = database.MigrationDir
	}

	dbConn, err := openDBConnection(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbConn.CloseConnection(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}()

	if cfg.Database.Driver == database.DBSQLite3 {
		fmt.Printf("Database file: %s\n", cfg.Database.Database)
	} else {
		fmt.Printf("Connected to: %s\n", cfg.Database.Host)
	}
	return goose.Run(command, dbConn.SQL, cfg.Database.Driver, dir, args)
}
