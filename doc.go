// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package travelmetry is a container for the suspension travel
// telemetry packages.
//
// The sensor core lives in i2cbus, ads1115, sensor and linpot. The
// recording service is built from config, poll, session, store and
// output. Reporting lives in render, api, liveview and travelbar, and
// the runnable commands under cmd tie them together.
package travelmetry
