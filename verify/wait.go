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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	// PollInterval is how often DOM conditions are re-evaluated.
	PollInterval = 100 * time.Millisecond

	// MaxFixedDelay caps Delay conditions. Fixed delays are only for
	// readiness the application does not signal in the DOM.
	MaxFixedDelay = 3 * time.Second
)

// Condition is a declarative readiness predicate.
type Condition struct {
	desc string
	// expr is a JS expression that is truthy once the condition holds.
	expr string
	// delay makes the condition a fixed pause instead of a predicate.
	delay time.Duration
}

func (c Condition) Describe() string {
	return c.desc
}

// IsDelay reports whether c is a fixed pause.
func (c Condition) IsDelay() bool {
	return c.expr == ""
}

// Appears holds once at least one match of l is visible.
func Appears(l Locator) Condition {
	return Condition{
		desc: fmt.Sprintf("%s to appear", l),
		expr: l.visibleJS() + ".length > 0",
	}
}

// Disappears holds once no match of l is visible.
func Disappears(l Locator) Condition {
	return Condition{
		desc: fmt.Sprintf("%s to disappear", l),
		expr: l.visibleJS() + ".length === 0",
	}
}

// CountIs holds once exactly n elements match l, visible or not.
func CountIs(l Locator, n int) Condition {
	return Condition{
		desc: fmt.Sprintf("%s to match %d elements", l, n),
		expr: fmt.Sprintf("%s === %d", l.countJS(), n),
	}
}

// CountAtLeast holds once n or more elements match l, visible or not.
func CountAtLeast(l Locator, n int) Condition {
	return Condition{
		desc: fmt.Sprintf("%s to match at least %d elements", l, n),
		expr: fmt.Sprintf("%s >= %d", l.countJS(), n),
	}
}

// AttributeChanges holds once the first match of l no longer carries the
// attribute value captured in from.
func AttributeChanges(l Locator, from ObservedState) Condition {
	name, _ := json.Marshal(from.Name)
	var prev []byte
	if from.Present {
		prev, _ = json.Marshal(from.Value)
	} else {
		prev = []byte("null")
	}
	return Condition{
		desc: fmt.Sprintf("%s[%s] to change from %s", l, from.Name, from),
		expr: fmt.Sprintf(`(() => {
	const els = %s;
	return els.length > 0 && els[0].getAttribute(%s) !== %s;
})()`, l.resolveJS(), name, prev),
	}
}

// NavigationSettles holds once the document finished loading.
func NavigationSettles() Condition {
	return Condition{
		desc: "navigation to settle",
		expr: `document.readyState === 'complete'`,
	}
}

// Delay is a fixed pause, capped at MaxFixedDelay.
func Delay(d time.Duration) Condition {
	if d > MaxFixedDelay {
		d = MaxFixedDelay
	}
	if d < 0 {
		d = 0
	}
	return Condition{
		desc:  fmt.Sprintf("fixed delay of %s", d),
		delay: d,
	}
}

// Await blocks until c holds or timeout elapses. Expiry, and cancellation of
// the session, are reported as *TimeoutError. An exception thrown by the
// condition itself is returned at once as a *ScriptError.
func (s *Session) Await(c Condition, timeout time.Duration) error {
	if s.Closed() {
		return &TimeoutError{Condition: c.desc, Timeout: timeout, Err: errors.New("session closed")}
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	if c.IsDelay() {
		d := c.delay
		if d > timeout {
			d = timeout
		}
		select {
		case <-time.After(d):
			return nil
		case <-s.ctx.Done():
			return &TimeoutError{Condition: c.desc, Timeout: timeout, Err: s.ctx.Err()}
		}
	}

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		var ok bool
		err := chromedp.Run(ctx, chromedp.Evaluate(c.expr, &ok))
		if err == nil && ok {
			return nil
		}
		if err != nil && isScriptException(err) {
			return &ScriptError{Target: c.desc, Err: err}
		}
		if err != nil && ctx.Err() == nil {
			lastErr = err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.logger.Debug("Condition timed out", zap.String("condition", c.desc), zap.Duration("timeout", timeout), zap.Error(lastErr))
			return &TimeoutError{Condition: c.desc, Timeout: timeout, Err: lastErr}
		}
	}
}

// AwaitAbsent asserts that c does NOT become true within window. It returns
// nil only when c was evaluated and stayed false for the whole window.
func (s *Session) AwaitAbsent(c Condition, window time.Duration) error {
	err := s.Await(c, window)
	if err == nil {
		return fmt.Errorf("unexpected: %s within %s", c.desc, window)
	}
	var te *TimeoutError
	if !errors.As(err, &te) || s.Closed() {
		return err
	}
	if te.Err != nil {
		return fmt.Errorf("cannot confirm absence of %s: %w", c.desc, te.Err)
	}
	return nil
}
