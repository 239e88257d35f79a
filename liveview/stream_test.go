// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package liveview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

func readFrame(t *testing.T, part *multipart.Part, wantMediaType string, wantSize image.Point) {
	t.Helper()

	contentLength, err := strconv.ParseInt(part.Header.Get("Content-Length"), 10, 32)
	if err != nil {
		t.Errorf("parsing Content-Length header failed: %v", err)
	}

	mediaType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("ParseMediaType() failed: %v", err)
	}
	if mediaType != wantMediaType {
		t.Fatalf("got content-type %q, want %q", mediaType, wantMediaType)
	}

	decodeFunc := png.Decode
	if mediaType == "image/jpeg" {
		decodeFunc = jpeg.Decode
	}

	content, err := io.ReadAll(part)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if got, want := len(content), int(contentLength); got != want {
		t.Errorf("read %d bytes, Content-Length header is %d", got, want)
	}

	img, err := decodeFunc(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("decoding frame failed: %v", err)
	}
	if got := img.Bounds().Size(); got != wantSize {
		t.Errorf("got frame size %v, want %v", got, wantSize)
	}

	if err := part.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

func TestStreamResponse(t *testing.T) {
	for _, tc := range []struct {
		name          string
		opt           Options
		target        string
		wantMediaType string
	}{
		{
			name:          "defaults",
			opt:           Options{Width: 48, Height: 32},
			target:        "/",
			wantMediaType: "image/png",
		},
		{
			name:          "default JPEG",
			opt:           Options{Width: 32, Height: 24, Format: JPEG},
			target:        "/",
			wantMediaType: "image/jpeg",
		},
		{
			name:          "format param overrides default",
			opt:           Options{Width: 32, Height: 24, Format: JPEG},
			target:        "/?format=png",
			wantMediaType: "image/png",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			t.Cleanup(cancel)

			l := New(&tc.opt)

			srv := httptest.NewServer(l)
			t.Cleanup(srv.Close)
			t.Cleanup(srv.CloseClientConnections)

			quit := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				travel := uint16(0)
				for {
					select {
					case <-quit:
						return
					case <-ctx.Done():
						return
					default:
					}
					l.Push(batch(travel, travel/2))
					travel += 100
					time.Sleep(2 * time.Millisecond)
				}
			}()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+tc.target, nil)
			if err != nil {
				t.Fatalf("NewRequest() failed: %v", err)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}

			if got, want := resp.StatusCode, http.StatusOK; got != want {
				t.Errorf("ServeHTTP() status %d, want %d", got, want)
			}

			mediaType, mediaParams, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
			if err != nil {
				t.Fatalf("ParseMediaType() failed: %v", err)
			}
			if got, want := mediaType, "multipart/x-mixed-replace"; got != want {
				t.Fatalf("Content-Type is %q, want %q", got, want)
			}
			boundary, ok := mediaParams["boundary"]
			if !ok || len(boundary) < 50 {
				t.Fatalf("insufficient boundary: %s", boundary)
			}

			mr := multipart.NewReader(resp.Body, boundary)

			wantSize := image.Point{tc.opt.Width, tc.opt.Height}
			for i := 0; i < 3; i++ {
				part, err := mr.NextPart()
				if err != nil {
					t.Fatalf("NextPart() failed: %v", err)
				}
				readFrame(t, part, tc.wantMediaType, wantSize)
			}

			if err := l.Close(); err != nil {
				t.Errorf("Close() failed: %v", err)
			}

			// The stream ends once the terminate signal lands; frames
			// already in flight may still arrive before that.
			for {
				if _, err := mr.NextPart(); err != nil {
					break
				}
			}

			close(quit)
			wg.Wait()
		})
	}
}

func TestRequestStatus(t *testing.T) {
	for _, tc := range []struct {
		method     string
		target     string
		wantStatus int
	}{
		{
			target:     "/?format=",
			wantStatus: http.StatusOK,
		},
		{
			target:     "/?format=bmp",
			wantStatus: http.StatusBadRequest,
		},
		{
			method:     http.MethodPost,
			target:     "/",
			wantStatus: http.StatusMethodNotAllowed,
		},
	} {
		t.Run(fmt.Sprint(tc), func(t *testing.T) {
			l := New(&Options{Width: 16, Height: 16})

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			t.Cleanup(cancel)

			srv := httptest.NewServer(l)
			t.Cleanup(srv.Close)
			t.Cleanup(srv.CloseClientConnections)

			req, err := http.NewRequestWithContext(ctx, tc.method, srv.URL+tc.target, nil)
			if err != nil {
				t.Errorf("NewRequest() failed: %v", err)
			}

			if resp, err := srv.Client().Do(req); err != nil {
				t.Errorf("Get() failed: %v", err)
			} else if got, want := resp.StatusCode, tc.wantStatus; got != want {
				t.Errorf("request for %s %s returned status %d (%s), want %d",
					req.Method, req.URL.String(), got, resp.Status, want)
			}
		})
	}
}
