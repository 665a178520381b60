package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrockway/wordclock/control/mode"
	"github.com/jrockway/wordclock/control/status"
)

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	display := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("content-type", "image/png")
		w.Write([]byte("png"))
	})
	r := newRouter(nil, display, nil)

	testData := []struct {
		method, path string
		wantCode     int
	}{
		{"GET", "/", http.StatusFound},
		{"GET", "/display.png", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/debug/events", http.StatusOK},
		{"GET", "/debug/requests", http.StatusOK},
		{"GET", "/nope", http.StatusNotFound},
		// No virtual button outside of previews.
		{"POST", "/button/short", http.StatusNotFound},
	}
	for _, test := range testData {
		rec := serve(r, test.method, test.path)
		if got, want := rec.Code, test.wantCode; got != want {
			t.Errorf("%s %s: response code:\n  got: %v\n want: %v", test.method, test.path, got, want)
		}
	}
	if got, want := serve(r, "GET", "/").Header().Get("location"), "/display.png"; got != want {
		t.Errorf("redirect:\n  got: %v\n want: %v", got, want)
	}
}

func TestStatusPage(t *testing.T) {
	page := status.New(nil)
	r := newRouter(page, http.NotFoundHandler(), nil)
	rec := serve(r, "GET", "/")
	if got, want := rec.Code, http.StatusOK; got != want {
		t.Fatalf("response code:\n  got: %v\n want: %v", got, want)
	}
	if got, want := rec.Header().Get("content-type"), "text/html; charset=utf-8"; got != want {
		t.Errorf("content-type:\n  got: %v\n want: %v", got, want)
	}
}

func TestVirtualButton(t *testing.T) {
	var shared mode.Shared
	r := newRouter(nil, http.NotFoundHandler(), &shared)

	testData := []struct {
		gesture  string
		wantCode int
		wantMode mode.Mode
	}{
		{"short", http.StatusOK, mode.ShowTemperature},
		// Long presses only work from the time display.
		{"long", http.StatusConflict, mode.ShowTemperature},
		{"wiggle", http.StatusNotFound, mode.ShowTemperature},
	}
	for _, test := range testData {
		rec := serve(r, "POST", "/button/"+test.gesture)
		if got, want := rec.Code, test.wantCode; got != want {
			t.Errorf("%s: response code:\n  got: %v\n want: %v", test.gesture, got, want)
		}
		if got, want := shared.Load().Mode, test.wantMode; got != want {
			t.Errorf("%s: mode:\n  got: %v\n want: %v", test.gesture, got, want)
		}
	}

	shared.Store(mode.State{Mode: mode.ShowTime})
	rec := serve(r, "POST", "/button/long")
	if got, want := rec.Code, http.StatusOK; got != want {
		t.Errorf("long press from time: response code:\n  got: %v\n want: %v", got, want)
	}
	if got, want := strings.TrimSpace(rec.Body.String()), "set-hour"; got != want {
		t.Errorf("long press from time: body:\n  got: %v\n want: %v", got, want)
	}
	serve(r, "POST", "/button/short")
	if got, want := shared.Load(), (mode.State{Mode: mode.SetHour, Pending: true}); got != want {
		t.Errorf("short press while editing:\n  got: %v\n want: %v", got, want)
	}
}
