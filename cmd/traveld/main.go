// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command traveld records suspension travel. It polls the configured
// sensors at a fixed rate, persists every sample to the session store,
// fans batches out to the configured outputs and serves the recorded
// sessions plus a live travel chart over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/opensusp/travelmetry/api"
	"github.com/opensusp/travelmetry/config"
	"github.com/opensusp/travelmetry/i2cbus"
	"github.com/opensusp/travelmetry/i2cbus/periphbus"
	"github.com/opensusp/travelmetry/linpot"
	"github.com/opensusp/travelmetry/liveview"
	"github.com/opensusp/travelmetry/monitoring"
	"github.com/opensusp/travelmetry/output"
	"github.com/opensusp/travelmetry/output/console"
	"github.com/opensusp/travelmetry/output/mqtt"
	"github.com/opensusp/travelmetry/poll"
	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/session"
	"github.com/opensusp/travelmetry/store"
)

// buildRegistry opens each configured bus once and wires a sensor per
// enabled role. Roles may share a bus.
func buildRegistry(cfg config.Config) (*sensor.Registry, map[string]*periphbus.Bus, error) {
	reg := sensor.NewRegistry()
	buses := map[string]*periphbus.Bus{}
	for _, rc := range cfg.Roles {
		bus, ok := buses[rc.Bus]
		if !ok {
			opened, err := periphbus.Open(rc.Bus)
			if err != nil {
				return nil, buses, fmt.Errorf("open bus %q: %w", rc.Bus, err)
			}
			buses[rc.Bus] = opened
			bus = opened
		}
		dev := linpot.New(bus, sensor.Role(rc.Role), &linpot.Opts{
			Addr: rc.Address,
			Bus: i2cbus.Config{
				Frequency: physic.MegaHertz,
				SDAPin:    rc.SDAPin,
				SCLPin:    rc.SCLPin,
			},
		})
		reg.Add(sensor.Role(rc.Role), dev)
	}
	return reg, buses, nil
}

// startSensors configures every sensor and adopts the calibrated
// baselines. Unreachable sensors are reported and left registered;
// they contribute the no-reading sentinel until they answer.
func startSensors(cfg config.Config, reg *sensor.Registry) {
	for _, role := range reg.Roles() {
		s := reg.Lookup(role)
		s.Init()
		rc, _ := cfg.Role(role)
		if !s.Start(rc.Baseline, rc.Inverted) {
			log.Printf("%s: sensor unavailable, readings will be dropped", role)
			continue
		}
		log.Printf("%s: started with baseline %d", role, rc.Baseline)
	}
}

func buildOutputs(cfg config.Config) ([]output.Output, error) {
	var outs []output.Output
	for _, oc := range cfg.Outputs {
		switch strings.ToLower(oc.Type) {
		case "console":
			outs = append(outs, console.NewConsole())
		case "mqtt":
			var mc config.MQTTConfig
			if oc.MQTT != nil {
				mc = *oc.MQTT
			}
			out, err := mqtt.NewMQTT(mc, cfg.Calibrations())
			if err != nil {
				return outs, fmt.Errorf("mqtt output: %w", err)
			}
			outs = append(outs, out)
		}
	}
	return outs, nil
}

func fullScales(cfg config.Config) map[sensor.Role]uint16 {
	out := make(map[sensor.Role]uint16, len(cfg.Roles))
	for _, rc := range cfg.Roles {
		out[sensor.Role(rc.Role)] = rc.FullScaleCounts()
	}
	return out
}

func main() {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	monitoring.EnableDebug(cfg.Debug)

	reg, buses, err := buildRegistry(cfg)
	if err != nil {
		log.Fatalf("failed to build sensor registry: %v", err)
	}
	defer func() {
		for name, bus := range buses {
			if err := bus.Close(); err != nil {
				log.Printf("closing bus %q: %v", name, err)
			}
		}
	}()

	startSensors(cfg, reg)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	defer st.Close()

	name := cfg.Session
	if name == "" {
		name = time.Now().Format("2006-01-02 15:04:05")
	}
	sess := session.New(name, cfg.PollHz, time.Now())
	if err := st.CreateSession(sess); err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	log.Printf("recording session %s (%q) at %d Hz", sess.ID, sess.Name, cfg.PollHz)

	outputs, err := buildOutputs(cfg)
	if err != nil {
		log.Fatalf("failed to build outputs: %v", err)
	}
	defer func() {
		for _, out := range outputs {
			if err := out.Close(); err != nil {
				log.Printf("closing output: %v", err)
			}
		}
	}()

	live := liveview.New(&liveview.Options{
		Width:     640,
		Height:    320,
		FullScale: fullScales(cfg),
	})

	loop, err := poll.New(reg, cfg.PollInterval(), poll.Opts{
		Outputs: outputs,
		Handler: func(batch []session.Sample) {
			if err := st.AppendSamples(sess.ID, batch); err != nil {
				monitoring.Logf("failed to append samples: %v", err)
			}
			live.Push(batch)
		},
	})
	if err != nil {
		log.Fatalf("failed to build poll loop: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the sampling loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("poll loop failed: %v", err)
		}
		log.Print("poll loop terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", api.NewServer(st, cfg.Calibrations()).ServeMux()))
		mux.Handle("/live", live)

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			monitoring.Debugf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    cfg.Listen,
			Handler: h,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		if err := live.Close(); err != nil {
			log.Printf("live view close error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()

	if err := st.EndSession(sess.ID, time.Now()); err != nil {
		log.Printf("failed to end session: %v", err)
	}
	log.Printf("session %s ended", sess.ID)
}
