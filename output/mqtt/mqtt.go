// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mqtt publishes samples to an MQTT broker, one topic per
// suspension role.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/opensusp/travelmetry/config"
	"github.com/opensusp/travelmetry/output"
	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/session"
)

const (
	DefaultServer   = "tcp://localhost:1883"
	DefaultClientID = "travelmetry"
	DefaultTopic    = "travelmetry/travel"
)

type MQTTOutput struct {
	client mqtt.Client
	topic  string
	cals   map[sensor.Role]session.Calibration
}

// NewMQTT connects to the broker in cfg. When cals is non-nil the
// payloads carry a millimetre conversion next to the raw counts.
func NewMQTT(cfg config.MQTTConfig, cals map[sensor.Role]session.Calibration) (output.Output, error) {
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts := mqtt.NewClientOptions().AddBroker(server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTOutput{client: client, topic: topic, cals: cals}, nil
}

// payload is the published message body.
type payload struct {
	Role      string    `json:"role"`
	Travel    uint16    `json:"travel"`
	TravelMM  *float64  `json:"travel_mm,omitempty"`
	NoReading bool      `json:"no_reading"`
	At        time.Time `json:"at"`
}

func (m *MQTTOutput) Publish(samples []session.Sample) error {
	for _, s := range samples {
		b, err := m.encode(s)
		if err != nil {
			return err
		}
		token := m.client.Publish(m.roleTopic(s.Role), 0, false, b)
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
	}
	return nil
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

// roleTopic returns the publication topic for one role.
func (m *MQTTOutput) roleTopic(role sensor.Role) string {
	return m.topic + "/" + string(role)
}

func (m *MQTTOutput) encode(s session.Sample) ([]byte, error) {
	p := payload{
		Role:      string(s.Role),
		Travel:    s.Travel,
		NoReading: s.NoReading(),
		At:        s.At,
	}
	if cal, ok := m.cals[s.Role]; ok && !p.NoReading {
		mm := cal.TravelMM(s.Travel)
		p.TravelMM = &mm
	}
	return json.Marshal(p)
}
