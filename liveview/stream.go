// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package liveview

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/opensusp/travelmetry/monitoring"
)

type imageConfig struct {
	format ImageFormat
}

func (l *Live) configFromQuery(values url.Values) (imageConfig, error) {
	cfg := imageConfig{
		format: l.defaultFormat,
	}

	if value := values.Get("format"); value != "" {
		format, err := ParseFormat(value)
		if err != nil {
			return imageConfig{}, err
		}
		cfg.format = format
	}

	return cfg, nil
}

type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

func (l *Live) bufferChangedLocked() {
	for cfg := range l.snapshot {
		delete(l.snapshot, cfg)
	}

	for c := range l.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
}

func (l *Live) terminateClientsLocked() {
	for c := range l.clients {
		select {
		case c.terminate <- struct{}{}:
		default:
		}
	}
}

func (l *Live) encodeBufferLocked(format ImageFormat) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case PNG:
		if err := png.Encode(&buf, l.buffer); err != nil {
			return nil, err
		}

	case JPEG:
		if err := jpeg.Encode(&buf, l.buffer, &jpeg.Options{Quality: 90}); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unhandled image format %s", format)
	}

	return buf.Bytes(), nil
}

// grabSnapshot returns the encoded chart, reusing the cached encoding when
// the buffer has not changed since the last request for this config. The
// returned slice is never written to after being cached.
func (l *Live) grabSnapshot(cfg imageConfig) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	encoded, ok := l.snapshot[cfg]
	if !ok {
		var err error

		encoded, err = l.encodeBufferLocked(cfg.format)
		if err != nil {
			return nil, err
		}
		l.snapshot[cfg] = encoded
	}

	return encoded, nil
}

// ServeHTTP handles HTTP GET requests and sends a stream of images
// representing the chart buffer in response. The view options control the
// default format and clients can explicitly request PNG or JPEG images using
// the "format" parameter ("?format=png", "?format=jpeg").
func (l *Live) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.Body.Close(); err != nil {
		monitoring.Logf("closing request body failed: %v", err)
	}

	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	cfg, err := l.configFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pw := makePartWriter(w)

	w.Header().Set("Content-Type",
		mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{
			"boundary": pw.boundary,
		}))

	c := &client{
		refresh:   make(chan struct{}, 1),
		terminate: make(chan struct{}, 1),
	}

	l.mu.Lock()
	l.clients[c] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.clients, c)
		l.mu.Unlock()
	}()

	partHeaders := make(textproto.MIMEHeader)
	partHeaders.Set("Content-Type", mime.FormatMediaType(cfg.format.mimeType(), nil))
	partHeaders.Set("Content-Transfer-Encoding", "binary")

	for {
		payload, err := l.grabSnapshot(cfg)
		if err == nil {
			err = pw.writeFrame(partHeaders, payload)
		}
		if err != nil {
			// Errors cause the request to be silently terminated. There's no
			// good way to deliver an error message to the client within an
			// image stream.
			return
		}

		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		select {
		case <-c.refresh:
		case <-c.terminate:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// randomBoundary generates a MIME multipart boundary compatible with RFC 2046
// (section 5.1.1).
func randomBoundary() string {
	var buf [34]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", buf[:])
}

type partWriter struct {
	u        io.Writer
	boundary string
	started  bool
}

func makePartWriter(u io.Writer) partWriter {
	return partWriter{
		u:        u,
		boundary: randomBoundary(),
	}
}

// writeFrame sends a single part of a MIME multipart entity, ensuring it's
// fully written by the time the function returns.
//
// The caller-owned headers are modified to set a Content-Length header.
//
// The "mime/multipart".Writer in the standard library is not suitable for
// writing a neverending stream of parts where each must be flushed to the
// client with the part-ending boundary line, hence this implementation.
func (w *partWriter) writeFrame(header textproto.MIMEHeader, body []byte) error {
	header.Set("Content-Length", strconv.FormatInt(int64(len(body)), 10))

	var buf bytes.Buffer

	if !w.started {
		fmt.Fprintf(&buf, "--%s\r\n", w.boundary)
		w.started = true
	}

	for name := range header {
		for _, value := range header[name] {
			fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
		}
	}

	buf.WriteString("\r\n")

	_, err := buf.WriteTo(w.u)
	if err == nil {
		_, err = io.Copy(w.u, bytes.NewReader(body))
		if err == nil {
			_, err = fmt.Fprintf(w.u, "\r\n--%s\r\n", w.boundary)
		}
	}

	return err
}
