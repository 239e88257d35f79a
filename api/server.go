// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package api serves recorded sessions over HTTP: JSON listings and
// summaries plus rendered trace and histogram artifacts.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"

	"github.com/google/uuid"

	"github.com/opensusp/travelmetry/monitoring"
	"github.com/opensusp/travelmetry/render"
	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/session"
	"github.com/opensusp/travelmetry/store"
)

type Server struct {
	store *store.Store
	cals  map[sensor.Role]session.Calibration
}

func NewServer(st *store.Store, cals map[sensor.Role]session.Calibration) *Server {
	return &Server{
		store: st,
		cals:  cals,
	}
}

// ServeMux returns the API routes, intended to be mounted under /api.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions", s.listSessions)
	mux.HandleFunc("GET /sessions/{id}", s.getSession)
	mux.HandleFunc("GET /sessions/{id}/samples", s.getSamples)
	mux.HandleFunc("GET /sessions/{id}/summary", s.getSummary)
	mux.HandleFunc("GET /sessions/{id}/chart", s.getChart)
	mux.HandleFunc("GET /sessions/{id}/trace.png", s.getTrace)
	mux.HandleFunc("GET /sessions/{id}/histogram.png", s.getHistogram)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("api: encoding response failed: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		monitoring.Logf("api: encoding error response failed: %v", err)
	}
}

// sessionFromPath loads the session named by the {id} path segment. It
// writes the error response itself when the id is bad or unknown.
func (s *Server) sessionFromPath(w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid session id")
		return session.Session{}, false
	}
	sess, err := s.store.Session(id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "session not found")
		return session.Session{}, false
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load session: %v", err))
		return session.Session{}, false
	}
	return sess, true
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.Sessions()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	s.writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) getSamples(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	roles, err := s.sampleRoles(sess, r.URL.Query().Get("role"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	samples := []session.Sample{}
	for _, role := range roles {
		batch, err := s.store.Samples(sess.ID, role)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load samples: %v", err))
			return
		}
		samples = append(samples, batch...)
	}
	s.writeJSON(w, http.StatusOK, samples)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	roles, err := s.store.Roles(sess.ID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list roles: %v", err))
		return
	}
	summaries := []session.Summary{}
	for _, role := range roles {
		samples, err := s.store.Samples(sess.ID, role)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load samples: %v", err))
			return
		}
		summaries = append(summaries, session.Summarize(role, samples, s.cals[role]))
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	series, err := s.series(sess)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load samples: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.SessionChart(w, sess, series); err != nil {
		monitoring.Logf("api: rendering chart failed: %v", err)
	}
}

func (s *Server) getTrace(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	series, err := s.series(sess)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load samples: %v", err))
		return
	}
	img := render.Trace(sess.Name, series)
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		monitoring.Logf("api: encoding trace failed: %v", err)
	}
}

func (s *Server) getHistogram(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromPath(w, r)
	if !ok {
		return
	}
	roles, err := s.sampleRoles(sess, r.URL.Query().Get("role"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(roles) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "session has no samples")
		return
	}
	role := roles[0]
	samples, err := s.store.Samples(sess.ID, role)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load samples: %v", err))
		return
	}
	sum := session.Summarize(role, samples, s.cals[role])
	img := render.Histogram(fmt.Sprintf("%s %s", sess.Name, role), sum)
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		monitoring.Logf("api: encoding histogram failed: %v", err)
	}
}

// sampleRoles resolves the role query parameter: empty means every role
// that produced samples in the session.
func (s *Server) sampleRoles(sess session.Session, param string) ([]sensor.Role, error) {
	if param == "" {
		return s.store.Roles(sess.ID)
	}
	role, err := sensor.ParseRole(param)
	if err != nil {
		return nil, err
	}
	return []sensor.Role{role}, nil
}

func (s *Server) series(sess session.Session) ([]render.Series, error) {
	roles, err := s.store.Roles(sess.ID)
	if err != nil {
		return nil, err
	}
	var series []render.Series
	for _, role := range roles {
		samples, err := s.store.Samples(sess.ID, role)
		if err != nil {
			return nil, err
		}
		series = append(series, render.NewSeries(sess.StartedAt, role, samples, s.cals[role]))
	}
	return series, nil
}
