// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the daemon configuration from an optional JSON
// file with flag overrides. Flags beat the file, the file beats the
// defaults.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/session"
)

// RoleConfig wires one suspension role to its converter.
type RoleConfig struct {
	// Role is the suspension element name: "fork" or "shock".
	Role string `json:"role"`
	// Bus names the I²C bus in the host registry (e.g. "1" or
	// "/dev/i2c-1"). Roles may share a bus.
	Bus string `json:"bus"`
	// Address is the converter's 7-bit bus address.
	Address uint16 `json:"address"`
	// SDAPin and SCLPin optionally name pins to pull up during bus
	// bring-up. Leave empty on hosts with a fixed pin mux.
	SDAPin string `json:"sda_pin,omitempty"`
	SCLPin string `json:"scl_pin,omitempty"`
	// Baseline is the fully extended position in converter counts,
	// captured with travelcal.
	Baseline uint16 `json:"baseline"`
	// Inverted marks sensors mounted to read backwards.
	Inverted bool `json:"inverted"`
	// CountsPerMM and MaxTravelMM calibrate the reporting side
	// millimetre conversion. The sensor core itself stays in raw
	// counts.
	CountsPerMM float64 `json:"counts_per_mm"`
	MaxTravelMM float64 `json:"max_travel_mm"`
}

// Calibration returns the reporting side calibration for this role.
func (rc RoleConfig) Calibration() session.Calibration {
	return session.Calibration{CountsPerMM: rc.CountsPerMM, MaxTravelMM: rc.MaxTravelMM}
}

// FullScaleCounts returns the element's full mechanical travel in
// converter counts, capped to the positive signed range, or zero when
// the role has no calibration.
func (rc RoleConfig) FullScaleCounts() uint16 {
	counts := rc.CountsPerMM * rc.MaxTravelMM
	if counts <= 0 {
		return 0
	}
	if counts > 0x7fff {
		counts = 0x7fff
	}
	return uint16(counts)
}

// MQTTConfig configures one MQTT output.
type MQTTConfig struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

// OutputConfig selects one publication sink.
type OutputConfig struct {
	Type string      `json:"type"` // "console" or "mqtt"
	MQTT *MQTTConfig `json:"mqtt,omitempty"`
}

// Config is the full daemon configuration.
type Config struct {
	Roles     []RoleConfig   `json:"roles"`
	PollHz    int            `json:"poll_hz"`
	Listen    string         `json:"listen"`
	StorePath string         `json:"store_path"`
	Session   string         `json:"session"`
	Outputs   []OutputConfig `json:"outputs"`
	Debug     bool           `json:"debug"`
}

// DefaultConfig returns the configuration for the usual dual sensor
// setup: the fork on bus 0 and the shock on bus 1, both at the
// converter's ground strapped address, with the count resolutions of a
// 200mm fork element and a 75mm shock element at ±4.096V full scale on
// a 3.3V reference.
func DefaultConfig() Config {
	return Config{
		Roles: []RoleConfig{
			{Role: "fork", Bus: "0", Address: 0x48, CountsPerMM: 132, MaxTravelMM: 200},
			{Role: "shock", Bus: "1", Address: 0x48, CountsPerMM: 352, MaxTravelMM: 75},
		},
		PollHz:    100,
		Listen:    ":8080",
		StorePath: "travelmetry.db",
		Outputs:   []OutputConfig{{Type: "console"}},
	}
}

// Load loads configuration from a JSON file (optional) and the flags
// it registers on fs. Flags override values present in the JSON file.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	cfgPath := fs.String("config", "", "Path to JSON config file")
	flagListen := fs.String("listen", "", "HTTP listen address")
	flagStore := fs.String("store", "", "Path to the SQLite session store")
	flagPollHz := fs.Int("poll-hz", -1, "Sensor poll rate in Hz")
	flagSession := fs.String("session", "", "Session name for this recording run")
	flagRoles := fs.String("roles", "", "Comma-separated roles to enable (default: all configured)")
	flagAddress := fs.String("i2c-address", "", "Converter address for all roles (decimal or 0x hex)")
	flagOutputs := fs.String("outputs", "", "Comma-separated outputs (console,mqtt)")
	flagMQTTServer := fs.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := fs.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := fs.String("mqtt-pass", "", "MQTT password")
	flagClientID := fs.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := fs.String("mqtt-topic", "", "MQTT topic base")
	flagDebug := fs.Bool("debug", false, "Enable the debug log channel")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if *flagListen != "" {
		cfg.Listen = *flagListen
	}
	if *flagStore != "" {
		cfg.StorePath = *flagStore
	}
	if *flagPollHz != -1 {
		cfg.PollHz = *flagPollHz
	}
	if *flagSession != "" {
		cfg.Session = *flagSession
	}
	if *flagRoles != "" {
		keep := map[string]bool{}
		for _, r := range parseCSV(*flagRoles) {
			keep[r] = true
		}
		var roles []RoleConfig
		for _, rc := range cfg.Roles {
			if keep[rc.Role] {
				roles = append(roles, rc)
			}
		}
		cfg.Roles = roles
	}
	if *flagAddress != "" {
		v, err := parseIntOrHex(*flagAddress)
		if err != nil {
			return cfg, fmt.Errorf("i2c-address: %w", err)
		}
		for i := range cfg.Roles {
			cfg.Roles[i].Address = uint16(v)
		}
	}
	if *flagOutputs != "" {
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: p})
		}
		cfg.Outputs = outs
	}
	// Map MQTT flags onto every mqtt output; create one if missing.
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" {
		applied := false
		for i := range cfg.Outputs {
			if strings.ToLower(cfg.Outputs[i].Type) == "mqtt" {
				applyMQTTFlags(&cfg.Outputs[i], *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagClientID, *flagTopic)
				applied = true
			}
		}
		if !applied {
			out := OutputConfig{Type: "mqtt"}
			applyMQTTFlags(&out, *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagClientID, *flagTopic)
			cfg.Outputs = append(cfg.Outputs, out)
		}
	}
	if *flagDebug {
		cfg.Debug = true
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyMQTTFlags(out *OutputConfig, server, user, pass, clientID, topic string) {
	if out.MQTT == nil {
		out.MQTT = &MQTTConfig{}
	}
	if server != "" {
		out.MQTT.Server = server
	}
	if user != "" {
		out.MQTT.Username = user
	}
	if pass != "" {
		out.MQTT.Password = pass
	}
	if clientID != "" {
		out.MQTT.ClientID = clientID
	}
	if topic != "" {
		out.MQTT.Topic = topic
	}
}

func (c Config) validate() error {
	if c.PollHz <= 0 {
		return errors.New("config: poll-hz must be positive")
	}
	seen := map[string]bool{}
	for _, rc := range c.Roles {
		if _, err := sensor.ParseRole(rc.Role); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if seen[rc.Role] {
			return fmt.Errorf("config: role %q configured twice", rc.Role)
		}
		seen[rc.Role] = true
	}
	for _, oc := range c.Outputs {
		switch strings.ToLower(oc.Type) {
		case "console", "mqtt":
		default:
			return fmt.Errorf("config: unknown output type %q", oc.Type)
		}
	}
	return nil
}

// PollInterval returns the sampling interval implied by PollHz.
func (c Config) PollInterval() time.Duration {
	return time.Second / time.Duration(c.PollHz)
}

// Role returns the configuration for the named role.
func (c Config) Role(role sensor.Role) (RoleConfig, bool) {
	for _, rc := range c.Roles {
		if rc.Role == string(role) {
			return rc, true
		}
	}
	return RoleConfig{}, false
}

// Calibrations returns the reporting side calibration per configured
// role.
func (c Config) Calibrations() map[sensor.Role]session.Calibration {
	out := make(map[sensor.Role]session.Calibration, len(c.Roles))
	for _, rc := range c.Roles {
		out[sensor.Role(rc.Role)] = rc.Calibration()
	}
	return out
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIntOrHex(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 32)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	return v, err
}
