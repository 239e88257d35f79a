// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console publishes samples as plain text lines on stdout.
package console

import (
	"fmt"
	"time"

	"github.com/opensusp/travelmetry/output"
	"github.com/opensusp/travelmetry/session"
)

type ConsoleOutput struct{}

func NewConsole() output.Output { return &ConsoleOutput{} }

func (c *ConsoleOutput) Publish(samples []session.Sample) error {
	for _, s := range samples {
		if s.NoReading() {
			fmt.Printf("%s role=%s travel=-\n", s.At.Format(time.RFC3339), s.Role)
			continue
		}
		fmt.Printf("%s role=%s travel=%d\n", s.At.Format(time.RFC3339), s.Role, s.Travel)
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }
