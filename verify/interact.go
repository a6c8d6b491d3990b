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
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// LocateTimeout bounds the wait for an interaction target.
const LocateTimeout = 5 * time.Second

// Point is a position in viewport (CSS pixel) coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an element's bounding rectangle in viewport coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b Box) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// PointerType is the kind of a raw pointer event.
type PointerType string

const (
	PointerMove PointerType = "move"
	PointerDown PointerType = "down"
	PointerUp   PointerType = "up"
)

// PointerStep is one raw pointer event.
type PointerStep struct {
	Type   PointerType
	Point  Point
	Button input.MouseButton
}

type evalResult[T any] struct {
	Count int `json:"count"`
	Value T   `json:"value"`
}

const boxBody = `el.scrollIntoView({block: 'center', inline: 'center'});
	const r = el.getBoundingClientRect();
	return {x: r.left, y: r.top, width: r.width, height: r.height};`

// locateOne waits for l to resolve to exactly one visible element and
// evaluates body against it.
func locateOne[T any](s *Session, l Locator, body string, timeout time.Duration) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	count := 0
	var lastErr error
	for {
		var res evalResult[T]
		err := chromedp.Run(ctx, chromedp.Evaluate(l.onlyJS(body), &res))
		switch {
		case err == nil && res.Count == 1:
			return res.Value, nil
		case err == nil:
			count, lastErr = res.Count, nil
		case isScriptException(err):
			return zero, &ScriptError{Target: "locator " + l.String(), Err: err}
		case ctx.Err() == nil:
			lastErr = err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			if s.Closed() {
				return zero, fmt.Errorf("locate %s: session closed", l)
			}
			return zero, &LocatorError{Selector: l.String(), Count: count, Err: lastErr}
		}
	}
}

// BoundingBox scrolls the single visible match of l into view and returns its
// box.
func (s *Session) BoundingBox(l Locator) (Box, error) {
	return locateOne[Box](s, l, boxBody, LocateTimeout)
}

// CenterOf returns the viewport center of the single visible match of l.
func (s *Session) CenterOf(l Locator) (Point, error) {
	box, err := s.BoundingBox(l)
	if err != nil {
		return Point{}, err
	}
	return box.Center(), nil
}

// Click performs a real left click at the center of l.
func (s *Session) Click(l Locator) error {
	p, err := s.CenterOf(l)
	if err != nil {
		return err
	}
	s.logger.Debug("Click", zap.Stringer("locator", l), zap.Float64("x", p.X), zap.Float64("y", p.Y))
	return s.PointerSequence([]PointerStep{
		{Type: PointerMove, Point: p},
		{Type: PointerDown, Point: p, Button: input.Left},
		{Type: PointerUp, Point: p, Button: input.Left},
	})
}

// Fill replaces the value of the text control l with text, as typed input.
func (s *Session) Fill(l Locator, text string) error {
	_, err := locateOne[bool](s, l, `el.focus();
	if ('value' in el) {
		el.value = '';
		el.dispatchEvent(new Event('input', {bubbles: true}));
	}
	return true;`, LocateTimeout)
	if err != nil {
		return err
	}
	s.logger.Debug("Fill", zap.Stringer("locator", l), zap.String("text", text))
	if err := s.run(LocateTimeout, input.InsertText(text)); err != nil {
		return fmt.Errorf("fill %s: %w", l, err)
	}
	return nil
}

// PressKey focuses l and sends key (see chromedp/kb for named keys).
func (s *Session) PressKey(l Locator, key string) error {
	if _, err := locateOne[bool](s, l, `el.focus(); return document.activeElement === el;`, LocateTimeout); err != nil {
		return err
	}
	s.logger.Debug("PressKey", zap.Stringer("locator", l), zap.String("key", key))
	if err := s.run(LocateTimeout, chromedp.KeyEvent(key)); err != nil {
		return fmt.Errorf("press %q on %s: %w", key, l, err)
	}
	return nil
}

func buttonMask(b input.MouseButton) int64 {
	switch b {
	case input.Left:
		return 1
	case input.Right:
		return 2
	case input.Middle:
		return 4
	}
	return 0
}

// PointerSequence dispatches raw pointer events in order. Handlers bound to
// native pointer events (like a map's contextmenu) only react to these.
func (s *Session) PointerSequence(steps []PointerStep) error {
	actions := make([]chromedp.Action, 0, len(steps))
	for _, st := range steps {
		var p *input.DispatchMouseEventParams
		switch st.Type {
		case PointerMove:
			p = input.DispatchMouseEvent(input.MouseMoved, st.Point.X, st.Point.Y)
		case PointerDown:
			p = input.DispatchMouseEvent(input.MousePressed, st.Point.X, st.Point.Y).
				WithButton(st.Button).
				WithButtons(buttonMask(st.Button)).
				WithClickCount(1)
		case PointerUp:
			p = input.DispatchMouseEvent(input.MouseReleased, st.Point.X, st.Point.Y).
				WithButton(st.Button).
				WithClickCount(1)
		default:
			return fmt.Errorf("unknown pointer step type %q", st.Type)
		}
		actions = append(actions, p)
	}
	if err := s.run(LocateTimeout, actions...); err != nil {
		return fmt.Errorf("pointer sequence: %w", err)
	}
	return nil
}

// RightClickAt issues move, right down and right up at p.
func (s *Session) RightClickAt(p Point) error {
	return s.PointerSequence([]PointerStep{
		{Type: PointerMove, Point: p},
		{Type: PointerDown, Point: p, Button: input.Right},
		{Type: PointerUp, Point: p, Button: input.Right},
	})
}
