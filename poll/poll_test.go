// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	clk "github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensusp/travelmetry/output"
	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/session"
)

const pollInterval = 10 * time.Millisecond

// gosched lets the loop goroutine reach its ticker before the mock
// clock advances.
func gosched() { time.Sleep(time.Millisecond) }

type fakeSensor struct {
	sensor.Sensor
	travel uint16
	reads  int
}

func (f *fakeSensor) Measure() uint16 {
	f.reads++
	return f.travel
}

type recordingOutput struct {
	batches [][]session.Sample
	err     error
}

func (r *recordingOutput) Publish(batch []session.Sample) error {
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, batch)
	return nil
}

func (r *recordingOutput) Close() error { return nil }

func registry(fork, shock *fakeSensor) *sensor.Registry {
	reg := sensor.NewRegistry()
	reg.Add(sensor.Fork, fork)
	reg.Add(sensor.Shock, shock)
	return reg
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, pollInterval, Opts{})
	assert.Error(t, err)
	_, err = New(sensor.NewRegistry(), 0, Opts{})
	assert.Error(t, err)
	l, err := New(sensor.NewRegistry(), pollInterval, Opts{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestSampleBatchShape(t *testing.T) {
	fork := &fakeSensor{travel: 120}
	shock := &fakeSensor{travel: sensor.NoReading}
	mock := clk.NewMock()
	l, err := New(registry(fork, shock), pollInterval, Opts{Clock: mock})
	require.NoError(t, err)

	batch := l.Sample()
	require.Len(t, batch, 2)
	assert.Equal(t, sensor.Fork, batch[0].Role)
	assert.Equal(t, uint16(120), batch[0].Travel)
	assert.Equal(t, sensor.Shock, batch[1].Role)
	assert.Equal(t, sensor.NoReading, batch[1].Travel)
	assert.Equal(t, mock.Now(), batch[0].At)
	assert.Equal(t, batch[0].At, batch[1].At)
}

func TestSampleSkipsUnregisteredRoles(t *testing.T) {
	fork := &fakeSensor{travel: 40}
	reg := sensor.NewRegistry()
	reg.Add(sensor.Fork, fork)
	l, err := New(reg, pollInterval, Opts{Clock: clk.NewMock()})
	require.NoError(t, err)

	batch := l.Sample()
	require.Len(t, batch, 1)
	assert.Equal(t, sensor.Fork, batch[0].Role)
}

func TestRunTicksAndStops(t *testing.T) {
	fork := &fakeSensor{travel: 50}
	shock := &fakeSensor{travel: 75}
	mock := clk.NewMock()
	out := &recordingOutput{}
	got := make(chan []session.Sample, 16)
	l, err := New(registry(fork, shock), pollInterval, Opts{
		Clock:   mock,
		Outputs: []output.Output{out},
		Handler: func(batch []session.Sample) { got <- batch },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	gosched()

	for i := 0; i < 3; i++ {
		mock.Add(pollInterval)
		select {
		case batch := <-got:
			require.Len(t, batch, 2)
			assert.Equal(t, uint16(50), batch[0].Travel)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for a tick")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shutdown")
	}

	assert.GreaterOrEqual(t, fork.reads, 3)
	assert.GreaterOrEqual(t, len(out.batches), 3)
}

func TestFailingOutputDoesNotStopTheLoop(t *testing.T) {
	fork := &fakeSensor{travel: 10}
	shock := &fakeSensor{travel: 20}
	mock := clk.NewMock()
	bad := &recordingOutput{err: errors.New("broker gone")}
	good := &recordingOutput{}
	got := make(chan []session.Sample, 16)
	l, err := New(registry(fork, shock), pollInterval, Opts{
		Clock:   mock,
		Outputs: []output.Output{bad, good},
		Handler: func(batch []session.Sample) { got <- batch },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	gosched()

	mock.Add(pollInterval)
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a tick")
	}

	assert.Empty(t, bad.batches)
	assert.Len(t, good.batches, 1)
}
