// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package store persists recording sessions and their samples to
// SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/session"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("store: session not found")

// Store wraps the database handle.
type Store struct {
	*sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			name         TEXT,
			started_at   BIGINT,
			ended_at     BIGINT,
			sample_rate  INTEGER
		);
		CREATE TABLE IF NOT EXISTS samples (
			session_id   TEXT,
			role         TEXT,
			travel       INTEGER,
			at           BIGINT,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);
		CREATE INDEX IF NOT EXISTS samples_by_session ON samples(session_id, role, at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db}, nil
}

// CreateSession records a new session row. A zero end time marks the
// session as still recording.
func (s *Store) CreateSession(sess session.Session) error {
	_, err := s.Exec(
		`INSERT INTO sessions (id, name, started_at, ended_at, sample_rate) VALUES (?, ?, ?, ?, ?)`,
		sess.ID.String(), sess.Name, sess.StartedAt.UnixNano(), endedNanos(sess.EndedAt), sess.SampleRate,
	)
	return err
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(id uuid.UUID, at time.Time) error {
	_, err := s.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, at.UnixNano(), id.String())
	return err
}

// AppendSamples stores a batch of samples for the session in one
// transaction.
func (s *Store) AppendSamples(id uuid.UUID, samples []session.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO samples (session_id, role, travel, at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, smp := range samples {
		if _, err := stmt.Exec(id.String(), string(smp.Role), int64(smp.Travel), smp.At.UnixNano()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Sessions returns the recorded sessions, newest first.
func (s *Store) Sessions() ([]session.Session, error) {
	rows, err := s.Query(`SELECT id, name, started_at, ended_at, sample_rate FROM sessions ORDER BY started_at DESC LIMIT 500`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Session returns one session by id, or ErrNotFound.
func (s *Store) Session(id uuid.UUID) (session.Session, error) {
	row := s.QueryRow(`SELECT id, name, started_at, ended_at, sample_rate FROM sessions WHERE id = ?`, id.String())
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, ErrNotFound
	}
	return sess, err
}

// Roles returns the roles that produced samples in the session, in
// name order.
func (s *Store) Roles(id uuid.UUID) ([]sensor.Role, error) {
	rows, err := s.Query(`SELECT DISTINCT role FROM samples WHERE session_id = ? ORDER BY role`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []sensor.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, sensor.Role(role))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return roles, nil
}

// Samples returns one role's samples for the session in time order.
func (s *Store) Samples(id uuid.UUID, role sensor.Role) ([]session.Sample, error) {
	rows, err := s.Query(
		`SELECT role, travel, at FROM samples WHERE session_id = ? AND role = ? ORDER BY at`,
		id.String(), string(role),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []session.Sample
	for rows.Next() {
		var (
			r      string
			travel int64
			at     int64
		)
		if err := rows.Scan(&r, &travel, &at); err != nil {
			return nil, err
		}
		samples = append(samples, session.Sample{
			Role:   sensor.Role(r),
			Travel: uint16(travel),
			At:     time.Unix(0, at).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(sc scanner) (session.Session, error) {
	var (
		id      string
		name    string
		started int64
		ended   int64
		rate    int
	)
	if err := sc.Scan(&id, &name, &started, &ended, &rate); err != nil {
		return session.Session{}, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return session.Session{}, fmt.Errorf("store: bad session id %q: %w", id, err)
	}
	sess := session.Session{
		ID:         uid,
		Name:       name,
		StartedAt:  time.Unix(0, started).UTC(),
		SampleRate: rate,
	}
	if ended != 0 {
		sess.EndedAt = time.Unix(0, ended).UTC()
	}
	return sess, nil
}

func endedNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
