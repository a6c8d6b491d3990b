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

// Package fixture serves a small stand-in for the map application. It
// implements the same DOM contract so the scenarios can be exercised end to
// end, and it can be told to regress on purpose.
package fixture

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/ttbt-io/carnetverify/scenarios"
	"go.uber.org/zap"
)

//go:embed static
var staticFiles embed.FS

// DefaultHydrationDelay matches the delay the application takes to apply
// its circuits data after a page load.
const DefaultHydrationDelay = 500 * time.Millisecond

// HydratedSignal is set on <body> once the circuits data is applied.
const HydratedSignal = `body[data-circuits-hydrated="true"]`

// Options represent fixture server options.
type Options struct {
	Addr     string
	Listener net.Listener
	DataDir  string
	Storage  *storage.Storage
	Store    *CircuitStore
	Logger   *zap.Logger

	// HydrationDelay is how long the server waits before pushing the
	// circuits snapshot to a freshly loaded page.
	HydrationDelay time.Duration
	// Empty seeds no circuits.
	Empty bool
	// ExtraMarkers renders point-of-interest markers around the map, one
	// draggable and one not, and adds another after every draft marker.
	ExtraMarkers bool

	// Fault switches. Each one breaks a single behavior.
	BreakDraggable   bool // markers are created without the draggable class
	BreakPersistence bool // toggle changes are acknowledged but not stored
	BreakPrompt      bool // right-click shows no creation prompt
	BreakModalClose  bool // the modal action button does nothing
	BreakDraftMarker bool // right-click shows the prompt but adds no marker
}

// Flags is the client-side view of the fault switches.
type Flags struct {
	ExtraMarkers     bool `json:"extraMarkers"`
	BreakDraggable   bool `json:"breakDraggable"`
	BreakPrompt      bool `json:"breakPrompt"`
	BreakModalClose  bool `json:"breakModalClose"`
	BreakDraftMarker bool `json:"breakDraftMarker"`
}

// Server represents the running fixture instance.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	store      *CircuitStore
	logger     *zap.Logger
}

// Contract returns the contract the fixture page satisfies. It differs from
// the live application only by exposing a hydration signal.
func Contract() scenarios.Contract {
	c := scenarios.DefaultContract()
	c.HydratedSignal = HydratedSignal
	return c
}

// URL is the base URL of the running server.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String()
}

// Store returns the circuit store backing the server.
func (s *Server) Store() *CircuitStore {
	return s.store
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []string
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("http: %v", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

// StartServer starts the fixture on opts.Listener, or on opts.Addr when no
// listener is given.
func StartServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	handler, store, err := NewHandler(opts)
	if err != nil {
		return nil, err
	}
	ln := opts.Listener
	if ln == nil {
		addr := opts.Addr
		if addr == "" {
			addr = "127.0.0.1:0"
		}
		if ln, err = net.Listen("tcp", addr); err != nil {
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
	}
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger := opts.Logger
	go func() {
		logger.Info("Starting fixture server", zap.String("addr", ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			logger.Error("Server error", zap.Error(err))
		}
	}()
	return &Server{
		httpServer: httpServer,
		listener:   ln,
		store:      store,
		logger:     logger,
	}, nil
}

// NewHandler creates the fixture's HTTP handler and its seeded store.
func NewHandler(opts Options) (http.Handler, *CircuitStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := opts.Store
	if store == nil {
		if opts.DataDir == "" {
			return nil, nil, errors.New("fixture: DataDir or Store is required")
		}
		s := opts.Storage
		if s == nil {
			s = storage.New(opts.DataDir, nil)
		}
		store = NewCircuitStore(opts.DataDir, s)
	}
	if !opts.Empty {
		if err := store.Seed(DemoCircuits()); err != nil {
			return nil, nil, fmt.Errorf("seed circuits: %w", err)
		}
	}
	delay := opts.HydrationDelay
	if delay < 0 {
		delay = 0
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Flags{
			ExtraMarkers:     opts.ExtraMarkers,
			BreakDraggable:   opts.BreakDraggable,
			BreakPrompt:      opts.BreakPrompt,
			BreakModalClose:  opts.BreakModalClose,
			BreakDraftMarker: opts.BreakDraftMarker,
		})
	})

	mux.HandleFunc("GET /api/circuits", func(w http.ResponseWriter, r *http.Request) {
		circuits, err := store.List()
		if err != nil {
			logger.Error("list circuits", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, circuits)
	})

	mux.HandleFunc("POST /api/circuits/{id}/visited", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Visited bool `json:"visited"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		id := r.PathValue("id")
		if opts.BreakPersistence {
			c, err := store.Load(id)
			if err != nil {
				writeStoreError(w, err, logger)
				return
			}
			c.Visited = req.Visited
			writeJSON(w, http.StatusOK, c)
			return
		}
		c, err := store.SetVisited(id, req.Visited)
		if err != nil {
			writeStoreError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	})

	mux.Handle("GET /ws", hydrationHandler(store, delay, logger))

	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, nil, err
	}
	mux.Handle("GET /", contentTypeMiddleware(http.FileServerFS(sub)))

	handler := http.Handler(mux)
	handler = loggingMiddleware(logger, handler)
	handler = securityMiddleware(handler)
	handler = cacheControlMiddleware(handler)
	return handler, store, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeStoreError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	logger.Error("circuit store", zap.Error(err))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// cacheControlMiddleware disables caching so a reload always observes the
// server's current state.
func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:; connect-src 'self' ws: wss:")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// contentTypeMiddleware ensures that files are served with the correct MIME type.
func contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch filepath.Ext(r.URL.Path) {
		case ".js", ".mjs":
			w.Header().Set("Content-Type", "application/javascript")
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("Received request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}
