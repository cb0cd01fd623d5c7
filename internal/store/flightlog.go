// Package store persists controller events to sqlite for post-flight
// analysis: state transitions, published trajectories and safety events,
// grouped by flight session.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/kinoreplan/internal/monitoring"
	"github.com/banshee-data/kinoreplan/internal/plan"
)

// FlightLog wraps the sqlite handle together with the current session id.
// It implements plan.Recorder; recording is best-effort and never surfaces
// an error into the controller — a failed insert is logged and dropped.
type FlightLog struct {
	*sql.DB
	sessionID string
}

// Open opens (or creates) the flight log database at path and starts a new
// flight session.
func Open(path string) (*FlightLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS transitions (
			session_id TEXT,
			from_state TEXT,
			to_state TEXT,
			caller TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE TABLE IF NOT EXISTS trajectories (
			session_id TEXT,
			trajectory_id BIGINT,
			start_time TIMESTAMP,
			payload TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE TABLE IF NOT EXISTS safety_events (
			session_id TEXT,
			kind TEXT,
			detail TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	fl := &FlightLog{DB: db, sessionID: fmt.Sprintf("fly_%s", uuid.NewString())}
	if _, err := db.Exec("INSERT INTO sessions (session_id) VALUES (?)", fl.sessionID); err != nil {
		db.Close()
		return nil, err
	}
	return fl, nil
}

// OpenLatest opens the flight log at path bound to its most recent session,
// without starting a new one. Intended for post-flight readers.
func OpenLatest(path string) (*FlightLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	var sessionID string
	err = db.QueryRow(
		"SELECT session_id FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT 1").
		Scan(&sessionID)
	if err != nil {
		db.Close()
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no flight sessions in %s", path)
		}
		return nil, err
	}
	return &FlightLog{DB: db, sessionID: sessionID}, nil
}

// SessionID returns the id of the current flight session.
func (fl *FlightLog) SessionID() string { return fl.sessionID }

// RecordTransition stores one FSM transition.
func (fl *FlightLog) RecordTransition(from, to plan.State, caller string) {
	_, err := fl.Exec(
		"INSERT INTO transitions (session_id, from_state, to_state, caller) VALUES (?, ?, ?, ?)",
		fl.sessionID, string(from), string(to), caller)
	if err != nil {
		monitoring.Logf("flightlog: record transition: %v", err)
	}
}

// RecordTrajectory stores a published trajectory message as JSON.
func (fl *FlightLog) RecordTrajectory(msg *plan.TrajectoryMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		monitoring.Logf("flightlog: marshal trajectory %d: %v", msg.TrajectoryID, err)
		return
	}
	_, err = fl.Exec(
		"INSERT INTO trajectories (session_id, trajectory_id, start_time, payload) VALUES (?, ?, ?, ?)",
		fl.sessionID, msg.TrajectoryID, msg.StartTime, string(payload))
	if err != nil {
		monitoring.Logf("flightlog: record trajectory: %v", err)
	}
}

// RecordSafetyEvent stores one safety monitor event.
func (fl *FlightLog) RecordSafetyEvent(kind, detail string) {
	_, err := fl.Exec(
		"INSERT INTO safety_events (session_id, kind, detail) VALUES (?, ?, ?)",
		fl.sessionID, kind, detail)
	if err != nil {
		monitoring.Logf("flightlog: record safety event: %v", err)
	}
}

// Transition is one persisted FSM transition.
type Transition struct {
	FromState string
	ToState   string
	Caller    string
	Timestamp time.Time
}

func (tr *Transition) String() string {
	return fmt.Sprintf("[%s]: from %s to %s", tr.Caller, tr.FromState, tr.ToState)
}

// Transitions returns the most recent transitions of the current session,
// newest first, capped at limit.
func (fl *FlightLog) Transitions(limit int) ([]Transition, error) {
	rows, err := fl.Query(
		`SELECT from_state, to_state, caller, timestamp FROM transitions
		 WHERE session_id = ? ORDER BY rowid DESC LIMIT ?`,
		fl.sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var tr Transition
		if err := rows.Scan(&tr.FromState, &tr.ToState, &tr.Caller, &tr.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Trajectories returns the published trajectory payloads of the current
// session in publish order.
func (fl *FlightLog) Trajectories() ([]plan.TrajectoryMessage, error) {
	rows, err := fl.Query(
		`SELECT payload FROM trajectories WHERE session_id = ? ORDER BY trajectory_id ASC`,
		fl.sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []plan.TrajectoryMessage
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var msg plan.TrajectoryMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("corrupt trajectory payload: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// SafetyEventCount returns the number of safety events of the given kind in
// the current session.
func (fl *FlightLog) SafetyEventCount(kind string) (int, error) {
	var n int
	err := fl.QueryRow(
		"SELECT COUNT(*) FROM safety_events WHERE session_id = ? AND kind = ?",
		fl.sessionID, kind).Scan(&n)
	return n, err
}
