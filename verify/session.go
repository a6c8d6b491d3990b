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

package verify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 800

	// NavigationTimeout bounds page loads and reloads.
	NavigationTimeout = 30 * time.Second
)

// Options configures one browser session.
type Options struct {
	BaseURL string
	Width   int64
	Height  int64
	// Headless is ignored when RemoteURL is set.
	Headless bool
	// RemoteURL is the devtools endpoint of an already running browser. When
	// empty a local browser process is launched.
	RemoteURL string
	// ExecPath overrides the browser binary.
	ExecPath string
	Logger   *zap.Logger
}

func (o Options) viewport() (int64, int64) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Session is one browser plus one page, owned by a single scenario run.
type Session struct {
	baseURL string
	remote  bool
	pid     int
	logger  *zap.Logger

	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	closeOnce sync.Once
	closed    atomic.Bool
}

// OpenSession launches (or attaches to) a browser and opens one page with the
// requested viewport. A launch failure is returned as an *EnvironmentError
// after everything already allocated has been released.
func OpenSession(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.logger()
	w, h := opts.viewport()

	s := &Session{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		remote:  opts.RemoteURL != "",
		logger:  logger,
	}

	var allocCtx context.Context
	if s.remote {
		allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.WindowSize(int(w), int(h)),
			chromedp.NoSandbox,
			chromedp.DisableGPU,
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if opts.ExecPath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
		}
		allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	}

	sugar := logger.Sugar()
	s.ctx, s.tabCancel = chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)

	// The first Run starts the browser.
	if err := chromedp.Run(s.ctx, chromedp.EmulateViewport(w, h)); err != nil {
		s.Close()
		return nil, &EnvironmentError{Op: "launch browser", Err: err}
	}
	if c := chromedp.FromContext(s.ctx); c != nil && c.Browser != nil {
		if p := c.Browser.Process(); p != nil {
			s.pid = p.Pid
		}
	}

	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			if ev.Type == runtime.APITypeError {
				args := make([]string, len(ev.Args))
				for i, arg := range ev.Args {
					args[i] = string(arg.Value)
				}
				logger.Warn("JS console error", zap.String("message", strings.Join(args, " ")))
			}
		case *runtime.EventExceptionThrown:
			logger.Warn("JS exception", zap.String("message", ev.ExceptionDetails.Text))
		}
	})

	logger.Info("Session opened", zap.Int("pid", s.pid), zap.Bool("remote", s.remote), zap.Int64("width", w), zap.Int64("height", h))
	return s, nil
}

// URL resolves path against the session's base URL.
func (s *Session) URL(path string) string {
	if path == "" {
		path = "/"
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.baseURL + path
}

// Context is the page context. It is done once the session is closed.
func (s *Session) Context() context.Context {
	return s.ctx
}

// PID is the local browser process id, or 0 for remote browsers.
func (s *Session) PID() int {
	return s.pid
}

func (s *Session) Closed() bool {
	return s.closed.Load()
}

// run executes actions against the page, bounded by timeout.
func (s *Session) run(timeout time.Duration, actions ...chromedp.Action) error {
	if s.Closed() {
		return fmt.Errorf("session closed")
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads path and waits for the load event. An unreachable target is
// an *EnvironmentError.
func (s *Session) Navigate(path string) error {
	url := s.URL(path)
	s.logger.Info("Navigating", zap.String("url", url))
	if err := s.run(NavigationTimeout, chromedp.Navigate(url)); err != nil {
		return &EnvironmentError{Op: "navigate " + url, Err: err}
	}
	return nil
}

// Reload reloads the current page and waits for the load event.
func (s *Session) Reload() error {
	s.logger.Info("Reloading page")
	if err := s.run(NavigationTimeout, chromedp.Reload()); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// ClearCookies drops browser cookies so runs against a shared browser start
// clean.
func (s *Session) ClearCookies() error {
	return s.run(5*time.Second, network.ClearBrowserCookies())
}

// Screenshot captures the viewport and writes it to filename.
func (s *Session) Screenshot(filename string) error {
	var buf []byte
	if err := s.run(10*time.Second, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for screenshot: %w", err)
	}
	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot to file: %w", err)
	}
	s.logger.Info("Saved screenshot", zap.String("file", filename))
	return nil
}

// Close tears the session down. It is idempotent and safe after a partial
// launch.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.ctx != nil && !s.remote {
			// Closes the browser and waits for the process to exit.
			if cerr := chromedp.Cancel(s.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
				err = cerr
			}
		}
		if s.tabCancel != nil {
			s.tabCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		s.logger.Info("Session closed", zap.Int("pid", s.pid))
	})
	return err
}
