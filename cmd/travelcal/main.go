// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Command travelcal calibrates one suspension sensor and optionally
// watches it live on a terminal travel gauge.
//
// Capture the baseline with the element fully extended:
//
//	travelcal -role fork -expanded
//
// then copy the printed baseline into the role's config entry. The
// -watch flag follows the calibration with a live readout, useful for
// verifying the element sweeps its full range.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/opensusp/travelmetry/config"
	"github.com/opensusp/travelmetry/i2cbus"
	"github.com/opensusp/travelmetry/i2cbus/periphbus"
	"github.com/opensusp/travelmetry/linpot"
	"github.com/opensusp/travelmetry/monitoring"
	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/travelbar"
)

func main() {
	fs := flag.NewFlagSet("travelcal", flag.ExitOnError)
	flagRole := fs.String("role", "fork", "Role to calibrate")
	expanded := fs.Bool("expanded", false, "Capture the fully extended baseline")
	compressed := fs.Bool("compressed", false, "Record the fully compressed position")
	watch := fs.Duration("watch", 0, "Watch live travel for this duration")

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	monitoring.EnableDebug(cfg.Debug)

	if !*expanded && !*compressed && *watch == 0 {
		log.Fatal("nothing to do: pass -expanded, -compressed or -watch")
	}

	role, err := sensor.ParseRole(*flagRole)
	if err != nil {
		log.Fatal(err)
	}
	rc, ok := cfg.Role(role)
	if !ok {
		log.Fatalf("role %q is not configured", role)
	}

	bus, err := periphbus.Open(rc.Bus)
	if err != nil {
		log.Fatalf("open bus %q: %v", rc.Bus, err)
	}
	defer bus.Close()

	dev := linpot.New(bus, role, &linpot.Opts{
		Addr: rc.Address,
		Bus: i2cbus.Config{
			Frequency: physic.MegaHertz,
			SDAPin:    rc.SDAPin,
			SCLPin:    rc.SCLPin,
		},
	})
	dev.Init()
	if !dev.CheckAvailability() {
		log.Fatalf("%s converter not answering at %#02x on bus %q", role, rc.Address, rc.Bus)
	}

	if *expanded {
		dev.CalibrateExpanded()
		if dev.Baseline() == sensor.NoReading {
			log.Fatal("calibration failed: converter did not produce a reading")
		}
		fmt.Printf("baseline %d captured; set it as roles[%s].baseline in the config\n", dev.Baseline(), role)
	}
	if *compressed {
		dev.CalibrateCompressed()
		fmt.Println("compressed position recorded")
	}

	if *watch > 0 {
		// A fresh expanded calibration already holds the baseline;
		// otherwise adopt the configured one.
		if !*expanded && !dev.Start(rc.Baseline, rc.Inverted) {
			log.Fatalf("%s did not start", role)
		}
		if err := watchTravel(dev, rc, cfg.PollInterval(), *watch); err != nil {
			log.Fatal(err)
		}
	}
}

func watchTravel(dev *linpot.Dev, rc config.RoleConfig, interval, duration time.Duration) error {
	bar := travelbar.New(&travelbar.Opts{Max: rc.FullScaleCounts()})
	defer bar.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.After(duration)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case <-ticker.C:
			if err := bar.Update(dev.Measure()); err != nil {
				return err
			}
		}
	}
}
