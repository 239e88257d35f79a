// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package output defines the sample publication fan-out fed by the
// polling loop. Implementations live in the subpackages console and
// mqtt.
package output

import "github.com/opensusp/travelmetry/session"

// Output publishes batches of samples to one sink.
type Output interface {
	Publish([]session.Sample) error
	Close() error
}
