package databaseconnection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thrasher-corp/twapper/database"
	dbpsql "github.com/thrasher-corp/twapper/database/drivers/postgres"
	dbsqlite3 "github.com/thrasher-corp/twapper/database/drivers/sqlite3"
	"github.com/thrasher-corp/twapper/database/repository/execution"
	"github.com/thrasher-corp/twapper/log"
	"github.com/thrasher-corp/twapper/subsystems"
)

// Name is an exported subsystem name
const Name = "database"

const defaultCheckInterval = 30 * time.Second

var (
	errNilConfig        = errors.New("received nil database config")
	errDatabaseDisabled = errors.New("database support disabled")
)

// Manager holds the database connection, its journal and its status
type Manager struct {
	started       int32
	shutdown      chan struct{}
	config        database.Config
	checkInterval time.Duration
	dbConn        *database.Instance
	journal       *execution.Journal
}

// IsRunning returns whether the database connection manager is running
func (m *Manager) IsRunning() bool {
	if m == nil {
		return false
	}
	return atomic.LoadInt32(&m.started) == 1
}

// Setup returns a manager for the supplied config. dataPath is where sqlite3
// database files are stored.
func Setup(cfg *database.Config, dataPath string) (*Manager, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	m := &Manager{
		shutdown:      make(chan struct{}),
		config:        *cfg,
		checkInterval: defaultCheckInterval,
		dbConn:        &database.Instance{DataPath: dataPath},
	}
	if err := m.dbConn.SetConfig(&m.config); err != nil {
		return nil, err
	}
	return m, nil
}

// Start connects, migrates the execution journal and starts the connection
// health check
func (m *Manager) Start(_ context.Context, wg *sync.WaitGroup) (err error) {
	if m == nil {
		return subsystems.ErrNilSubsystem
	}
	if !m.config.Enabled {
		return errDatabaseDisabled
	}
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return fmt.Errorf("database manager %w", subsystems.ErrSubSystemAlreadyStarted)
	}
	defer func() {
		if err != nil {
			atomic.CompareAndSwapInt32(&m.started, 1, 0)
		}
	}()

	log.Debugln(log.DatabaseMgr, "Database manager starting...")
	m.shutdown = make(chan struct{})

	switch m.config.Driver {
	case database.DBPostgreSQL:
		log.Debugf(log.DatabaseMgr,
			"Attempting to establish database connection to host %s/%s utilising %s driver",
			m.config.Host,
			m.config.Database,
			m.config.Driver)
		err = dbpsql.Connect(m.dbConn)
	case database.DBSQLite3:
		log.Debugf(log.DatabaseMgr,
			"Attempting to establish database connection to %s utilising %s driver",
			m.config.Database,
			m.config.Driver)
		if err = os.MkdirAll(m.dbConn.DataPath, 0o770); err != nil {
			return err
		}
		err = dbsqlite3.Connect(m.dbConn)
	default:
		return fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, m.config.Driver)
	}
	if err != nil {
		return fmt.Errorf("%w: %v, execution journal will be unavailable", database.ErrDatabaseNotConnected, err)
	}

	journal, err := execution.New(m.dbConn)
	if err != nil {
		m.closeConnection()
		return err
	}
	if err = journal.Migrate(m.config.MigrationDir); err != nil {
		m.closeConnection()
		return err
	}
	m.journal = journal

	wg.Add(1)
	go m.run(wg)
	return nil
}

// Stop stops the database manager and closes the connection
func (m *Manager) Stop() error {
	if m == nil {
		return subsystems.ErrNilSubsystem
	}
	if atomic.LoadInt32(&m.started) == 0 {
		return fmt.Errorf("%s %w", Name, subsystems.ErrSubSystemNotStarted)
	}
	defer func() {
		atomic.CompareAndSwapInt32(&m.started, 1, 0)
	}()
	m.closeConnection()
	close(m.shutdown)
	return nil
}

// Journal returns the execution journal of a running manager
func (m *Manager) Journal() (*execution.Journal, error) {
	if m == nil {
		return nil, subsystems.ErrNilSubsystem
	}
	if !m.IsRunning() || m.journal == nil {
		return nil, fmt.Errorf("%s %w", Name, subsystems.ErrSubSystemNotStarted)
	}
	return m.journal, nil
}

func (m *Manager) closeConnection() {
	if err := m.dbConn.CloseConnection(); err != nil {
		log.Errorf(log.DatabaseMgr, "Failed to close database: %v", err)
	}
}

func (m *Manager) run(wg *sync.WaitGroup) {
	log.Debugln(log.DatabaseMgr, "Database manager started.")
	t := time.NewTicker(m.checkInterval)

	defer func() {
		t.Stop()
		wg.Done()
		log.Debugln(log.DatabaseMgr, "Database manager shutdown.")
	}()

	healthy := true
	for {
		select {
		case <-m.shutdown:
			return
		case <-t.C:
			err := m.checkConnection()
			switch {
			case err != nil && healthy:
				log.Errorln(log.DatabaseMgr, "Database connection error:", err)
				healthy = false
			case err == nil && !healthy:
				log.Infoln(log.DatabaseMgr, "Database connection reestablished")
				healthy = true
			}
		}
	}
}

func (m *Manager) checkConnection() error {
	if m == nil {
		return subsystems.ErrNilSubsystem
	}
	if atomic.LoadInt32(&m.started) == 0 {
		return fmt.Errorf("%s %w", Name, subsystems.ErrSubSystemNotStarted)
	}
	return m.dbConn.Ping()
}
