// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fixture

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestHandler(t *testing.T, opts Options) (http.Handler, *CircuitStore) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "fixture_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	opts.DataDir = tempDir
	handler, store, err := NewHandler(opts)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	return handler, store
}

func getCircuits(t *testing.T, url string) []Circuit {
	t.Helper()
	resp, err := http.Get(url + "/api/circuits")
	if err != nil {
		t.Fatalf("GET /api/circuits: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/circuits: status %d", resp.StatusCode)
	}
	var out []Circuit
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func postVisited(t *testing.T, url, id string, visited bool) int {
	t.Helper()
	body, _ := json.Marshal(map[string]bool{"visited": visited})
	resp, err := http.Post(url+"/api/circuits/"+id+"/visited", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST visited: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestCircuitsAPI(t *testing.T) {
	handler, _ := newTestHandler(t, Options{})
	server := httptest.NewServer(handler)
	defer server.Close()

	circuits := getCircuits(t, server.URL)
	if len(circuits) == 0 {
		t.Fatal("Expected seeded circuits")
	}
	id := circuits[0].ID

	if code := postVisited(t, server.URL, id, true); code != http.StatusOK {
		t.Fatalf("POST visited: status %d", code)
	}
	if got := getCircuits(t, server.URL)[0]; !got.Visited {
		t.Errorf("Expected %s visited after POST", got.Name)
	}

	if code := postVisited(t, server.URL, "nope", true); code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown circuit, got %d", code)
	}

	resp, err := http.Post(server.URL+"/api/circuits/"+id+"/visited", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad body, got %d", resp.StatusCode)
	}
}

func TestBreakPersistence(t *testing.T) {
	handler, _ := newTestHandler(t, Options{BreakPersistence: true})
	server := httptest.NewServer(handler)
	defer server.Close()

	id := getCircuits(t, server.URL)[0].ID
	if code := postVisited(t, server.URL, id, true); code != http.StatusOK {
		t.Fatalf("POST visited: status %d", code)
	}
	if got := getCircuits(t, server.URL)[0]; got.Visited {
		t.Errorf("Expected change to be dropped with BreakPersistence")
	}
}

func TestEmpty(t *testing.T) {
	handler, _ := newTestHandler(t, Options{Empty: true})
	server := httptest.NewServer(handler)
	defer server.Close()

	if n := len(getCircuits(t, server.URL)); n != 0 {
		t.Errorf("Expected no circuits, got %d", n)
	}
}

func TestConfigFlags(t *testing.T) {
	handler, _ := newTestHandler(t, Options{BreakDraggable: true, BreakModalClose: true, BreakDraftMarker: true, ExtraMarkers: true})
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/config")
	if err != nil {
		t.Fatalf("GET /api/config: %v", err)
	}
	defer resp.Body.Close()
	var flags Flags
	if err := json.NewDecoder(resp.Body).Decode(&flags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Flags{ExtraMarkers: true, BreakDraggable: true, BreakModalClose: true, BreakDraftMarker: true}
	if flags != want {
		t.Errorf("flags = %+v, want %+v", flags, want)
	}
}

func TestStaticPage(t *testing.T) {
	handler, _ := newTestHandler(t, Options{})
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{`id="map"`, `id="btn-tools-menu"`, `id="search-input"`, `custom-modal-actions`} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("index.html missing %s", want)
		}
	}
	if csp := resp.Header.Get("Content-Security-Policy"); !strings.Contains(csp, "script-src 'self'") {
		t.Errorf("unexpected CSP %q", csp)
	}

	js, err := http.Get(server.URL + "/app.js")
	if err != nil {
		t.Fatalf("GET /app.js: %v", err)
	}
	js.Body.Close()
	if ct := js.Header.Get("Content-Type"); ct != "application/javascript" {
		t.Errorf("app.js Content-Type = %q", ct)
	}
}

func TestHydrationPush(t *testing.T) {
	delay := 200 * time.Millisecond
	handler, _ := newTestHandler(t, Options{HydrationDelay: delay})
	server := httptest.NewServer(handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	start := time.Now()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay/2 {
		t.Errorf("snapshot arrived after %s, want at least %s", elapsed, delay)
	}
	if msg.Type != MsgTypeCircuits {
		t.Fatalf("Expected %s, got %s", MsgTypeCircuits, msg.Type)
	}
	if len(msg.Circuits) != len(DemoCircuits()) {
		t.Errorf("Expected %d circuits, got %d", len(DemoCircuits()), len(msg.Circuits))
	}

	if err := conn.WriteJSON(Message{Type: MsgTypePing}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != MsgTypePong {
		t.Errorf("Expected %s, got %s", MsgTypePong, msg.Type)
	}
}

func TestStartServerShutdown(t *testing.T) {
	tempDir := t.TempDir()
	srv, err := StartServer(Options{DataDir: tempDir})
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	if got := getCircuits(t, srv.URL()); len(got) == 0 {
		t.Errorf("Expected seeded circuits from %s", srv.URL())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if _, err := http.Get(srv.URL() + "/healthz"); err == nil {
		t.Errorf("Expected server to be closed")
	}
}

func TestContract(t *testing.T) {
	c := Contract()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.HydratedSignal != HydratedSignal {
		t.Errorf("HydratedSignal = %q", c.HydratedSignal)
	}
}
