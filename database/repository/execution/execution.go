package execution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thrasher-corp/goose"
	"github.com/thrasher-corp/twapper/database"
	"github.com/thrasher-corp/twapper/log"
)

const runningStatus = "running"

// Journal persists executions and their events
type Journal struct {
	db     *sql.DB
	driver string
}

// New returns a journal bound to a connected database instance
func New(i *database.Instance) (*Journal, error) {
	db, err := i.GetSQL()
	if err != nil {
		return nil, err
	}
	driver := i.Driver()
	switch driver {
	case database.DBSQLite3, database.DBPostgreSQL:
	default:
		return nil, fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, driver)
	}
	return &Journal{db: db, driver: driver}, nil
}

// Migrate applies every pending migration in dir to the journal database
func (j *Journal) Migrate(dir string) error {
	if dir == "" {
		dir = database.MigrationDir
	}
	if err := goose.Run("up", j.db, j.driver, dir, ""); err != nil {
		return fmt.Errorf("%w: %s: %v", errMigrationFailed, dir, err)
	}
	return nil
}

// Start records a new running execution
func (j *Journal) Start(ctx context.Context, e *Execution) error {
	if e == nil {
		return errNilExecution
	}
	if e.ID == "" {
		return errIDIsEmpty
	}
	if e.Status == "" {
		e.Status = runningStatus
	}
	_, err := j.db.ExecContext(ctx, j.rebind(`INSERT INTO execution
		(id, instrument, percent, slices, interval_seconds, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Instrument, e.Percent, e.Slices, e.IntervalSeconds, e.Status, e.StartedAt.UTC())
	return err
}

// Append records an event against its execution
func (j *Journal) Append(ctx context.Context, ev *Event) error {
	if ev == nil {
		return errNilEvent
	}
	if ev.ExecutionID == "" {
		return errIDIsEmpty
	}
	if ev.Status == "" {
		return errStatusIsEmpty
	}
	_, err := j.db.ExecContext(ctx, j.rebind(`INSERT INTO execution_event
		(execution_id, sequence, status, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		ev.ExecutionID, ev.Sequence, ev.Status, string(ev.Payload), ev.CreatedAt.UTC())
	return err
}

// Finish stores the terminal status of an execution
func (j *Journal) Finish(ctx context.Context, id, status string, at time.Time) error {
	if id == "" {
		return errIDIsEmpty
	}
	if status == "" {
		return errStatusIsEmpty
	}
	res, err := j.db.ExecContext(ctx, j.rebind(`UPDATE execution SET status = ?, finished_at = ? WHERE id = ?`),
		status, at.UTC(), id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
	}
	return nil
}

// List returns the most recent executions, newest first
func (j *Journal) List(ctx context.Context, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx, j.rebind(`SELECT id, instrument, percent, slices, interval_seconds, status, started_at, finished_at
		FROM execution ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var resp []Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		resp = append(resp, *e)
	}
	return resp, rows.Err()
}

// Get returns a single execution by ID
func (j *Journal) Get(ctx context.Context, id string) (*Execution, error) {
	if id == "" {
		return nil, errIDIsEmpty
	}
	row := j.db.QueryRowContext(ctx, j.rebind(`SELECT id, instrument, percent, slices, interval_seconds, status, started_at, finished_at
		FROM execution WHERE id = ?`), id)
	e, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
	}
	return e, err
}

// Events returns every event of an execution in emission order
func (j *Journal) Events(ctx context.Context, id string) ([]Event, error) {
	if id == "" {
		return nil, errIDIsEmpty
	}
	rows, err := j.db.QueryContext(ctx, j.rebind(`SELECT execution_id, sequence, status, payload, created_at
		FROM execution_event WHERE execution_id = ? ORDER BY sequence ASC`), id)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var resp []Event
	for rows.Next() {
		var (
			ev      Event
			payload string
		)
		if err = rows.Scan(&ev.ExecutionID, &ev.Sequence, &ev.Status, &payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Payload = []byte(payload)
		resp = append(resp, ev)
	}
	return resp, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExecution(s scanner) (*Execution, error) {
	var (
		e        Execution
		finished sql.NullTime
	)
	if err := s.Scan(&e.ID, &e.Instrument, &e.Percent, &e.Slices, &e.IntervalSeconds, &e.Status, &e.StartedAt, &finished); err != nil {
		return nil, err
	}
	if finished.Valid {
		e.FinishedAt = finished.Time
	}
	return &e, nil
}

// rebind converts ? placeholders into $n for postgres
func (j *Journal) rebind(query string) string {
	if j.driver != database.DBPostgreSQL {
		return query
	}
	var sb strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Errorf(log.DatabaseMgr, "Closing journal rows: %v", err)
	}
}
