// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command travelreport renders a recorded session into shareable files:
// a travel trace PNG, a per-role histogram PNG and an interactive HTML
// chart, plus a summary per role on stdout.
//
//	travelreport -list
//	travelreport -id 6d2c... -out reports/
//
// Without -id the most recent session is used. Travel is reported in
// millimetres for roles with a calibration in the config, raw counts
// otherwise.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	"github.com/google/uuid"

	"github.com/opensusp/travelmetry/config"
	"github.com/opensusp/travelmetry/render"
	"github.com/opensusp/travelmetry/session"
	"github.com/opensusp/travelmetry/store"
)

func main() {
	fs := flag.NewFlagSet("travelreport", flag.ExitOnError)
	id := fs.String("id", "", "Session id to report on (defaults to the most recent)")
	out := fs.String("out", ".", "Directory for the generated files")
	list := fs.Bool("list", false, "List recorded sessions and exit")

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatalf("open store %q: %v", cfg.StorePath, err)
	}
	defer st.Close()

	if *list {
		if err := listSessions(st); err != nil {
			log.Fatal(err)
		}
		return
	}

	sess, err := pickSession(st, *id)
	if err != nil {
		log.Fatal(err)
	}
	roles, err := st.Roles(sess.ID)
	if err != nil {
		log.Fatal(err)
	}
	if len(roles) == 0 {
		log.Fatalf("session %s has no samples", sess.ID)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatal(err)
	}

	cals := cfg.Calibrations()
	series := make([]render.Series, 0, len(roles))
	for _, role := range roles {
		samples, err := st.Samples(sess.ID, role)
		if err != nil {
			log.Fatal(err)
		}
		cal := cals[role]
		ser := render.NewSeries(sess.StartedAt, role, samples, cal)
		series = append(series, ser)

		sum := session.Summarize(role, samples, cal)
		fmt.Printf("%s: %d samples, %d missed, max %.4g %s, p95 %.4g %s, avg %.4g %s\n",
			role, sum.Count, sum.Misses,
			sum.MaxTravel, ser.Unit, sum.P95Travel, ser.Unit, sum.AvgTravel, ser.Unit)

		hist := render.Histogram(fmt.Sprintf("%s %s", sess.Name, role), sum)
		path := filepath.Join(*out, fmt.Sprintf("%s-histogram.png", role))
		if err := gg.SavePNG(path, hist); err != nil {
			log.Fatal(err)
		}
	}

	trace := render.Trace(sess.Name, series)
	if err := gg.SavePNG(filepath.Join(*out, "trace.png"), trace); err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(filepath.Join(*out, "session.html"))
	if err != nil {
		log.Fatal(err)
	}
	if err := render.SessionChart(f, sess, series); err != nil {
		f.Close()
		log.Fatal(err)
	}
	if err := f.Close(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("report for %q written to %s\n", sess.Name, *out)
}

func pickSession(st *store.Store, id string) (session.Session, error) {
	if id == "" {
		ss, err := st.Sessions()
		if err != nil {
			return session.Session{}, err
		}
		if len(ss) == 0 {
			return session.Session{}, fmt.Errorf("store has no sessions")
		}
		return ss[0], nil
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return session.Session{}, fmt.Errorf("invalid session id %q: %v", id, err)
	}
	return st.Session(u)
}

func listSessions(st *store.Store) error {
	ss, err := st.Sessions()
	if err != nil {
		return err
	}
	for _, s := range ss {
		dur := "running"
		if !s.EndedAt.IsZero() {
			dur = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("%s  %s  %-9s  %q\n", s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), dur, s.Name)
	}
	return nil
}
