// Package recorder persists vehicle telemetry and sent commands to sqlite.
package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/procdrive"
	"github.com/banshee-data/procdrive/internal/monitoring"
)

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
	"foreign_keys(ON)",
}

type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	for i, p := range pragmas {
		if i > 0 {
			dsn += "&"
		}
		dsn += "_pragma=" + p
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db := &DB{DB: sqlDB, path: path}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Session is one recorded connection to a vehicle.
type Session struct {
	ID        string
	VehicleID int
	Link      string
	StartedAt time.Time
	// EndedAt is zero while the session is still open.
	EndedAt time.Time
}

// Command is one line sent to the vehicle.
type Command struct {
	Time time.Time
	Line string
}

// ErrNoSession is returned when a session lookup finds nothing.
var ErrNoSession = errors.New("recorder: no such session")

// SessionRecorder records into one session row. It implements
// procdrive.Recorder.
type SessionRecorder struct {
	db *DB
	id string
}

var _ procdrive.Recorder = (*SessionRecorder)(nil)

// StartSession creates a session row and returns a recorder bound to it.
func (db *DB) StartSession(vehicleID int, link string, at time.Time) (*SessionRecorder, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, vehicle_id, link, started_unix_nano) VALUES (?, ?, ?, ?)`,
		id, vehicleID, link, at.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	monitoring.Debugf("recorder: session %s started for vehicle %d", id, vehicleID)
	return &SessionRecorder{db: db, id: id}, nil
}

// ID returns the session id.
func (r *SessionRecorder) ID() string { return r.id }

// SetVehicle updates the vehicle id once the connection picked one.
func (r *SessionRecorder) SetVehicle(vehicleID int) error {
	_, err := r.db.Exec(`UPDATE sessions SET vehicle_id = ? WHERE session_id = ?`, vehicleID, r.id)
	return err
}

func (r *SessionRecorder) RecordSample(s procdrive.Sample) error {
	_, err := r.db.Exec(
		`INSERT INTO samples (
			session_id, ts_unix_nano, kind, road_piece_id, piece_index,
			offset_mm, speed_mm_s, battery_mv
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.id, s.Time.UnixNano(), s.Kind, s.RoadPieceID, s.PieceIndex,
		s.Offset, s.Speed, s.MilliVolts,
	)
	return err
}

func (r *SessionRecorder) RecordCommand(at time.Time, line string) error {
	_, err := r.db.Exec(
		`INSERT INTO commands (session_id, ts_unix_nano, line) VALUES (?, ?, ?)`,
		r.id, at.UnixNano(), line,
	)
	return err
}

// End marks the session finished.
func (r *SessionRecorder) End(at time.Time) error {
	_, err := r.db.Exec(`UPDATE sessions SET ended_unix_nano = ? WHERE session_id = ?`, at.UnixNano(), r.id)
	return err
}

// Sessions returns the recorded sessions, newest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(`SELECT session_id, vehicle_id, link, started_unix_nano, ended_unix_nano
		FROM sessions ORDER BY started_unix_nano DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// LookupSession returns the session with id, or the newest session when id
// is empty.
func (db *DB) LookupSession(id string) (Session, error) {
	query := `SELECT session_id, vehicle_id, link, started_unix_nano, ended_unix_nano FROM sessions`
	var args []any
	if id == "" {
		query += ` ORDER BY started_unix_nano DESC LIMIT 1`
	} else {
		query += ` WHERE session_id = ?`
		args = append(args, id)
	}
	s, err := scanSession(db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSession
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		s       Session
		started int64
		ended   sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.VehicleID, &s.Link, &started, &ended); err != nil {
		return Session{}, err
	}
	s.StartedAt = time.Unix(0, started)
	if ended.Valid {
		s.EndedAt = time.Unix(0, ended.Int64)
	}
	return s, nil
}

// Samples returns the samples of one session in time order. An empty kind
// returns every kind.
func (db *DB) Samples(sessionID, kind string) ([]procdrive.Sample, error) {
	query := `SELECT ts_unix_nano, kind, road_piece_id, piece_index, offset_mm, speed_mm_s, battery_mv
		FROM samples WHERE session_id = ?`
	args := []any{sessionID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY ts_unix_nano, sample_id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []procdrive.Sample
	for rows.Next() {
		var (
			s  procdrive.Sample
			ts int64
		)
		if err := rows.Scan(&ts, &s.Kind, &s.RoadPieceID, &s.PieceIndex, &s.Offset, &s.Speed, &s.MilliVolts); err != nil {
			return nil, err
		}
		s.Time = time.Unix(0, ts)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// Commands returns the commands sent during one session in order.
func (db *DB) Commands(sessionID string) ([]Command, error) {
	rows, err := db.Query(`SELECT ts_unix_nano, line FROM commands WHERE session_id = ? ORDER BY command_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []Command
	for rows.Next() {
		var (
			c  Command
			ts int64
		)
		if err := rows.Scan(&ts, &c.Line); err != nil {
			return nil, err
		}
		c.Time = time.Unix(0, ts)
		commands = append(commands, c)
	}
	return commands, rows.Err()
}
