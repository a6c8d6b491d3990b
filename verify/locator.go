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
	"encoding/json"
	"fmt"
	"strings"
)

// Locator describes zero or more DOM elements. It is not a live handle: every
// use re-resolves it against the current document.
type Locator struct {
	Selector string `json:"selector"`
	// Scope, if set, is a selector for the element to search under.
	Scope string `json:"scope,omitempty"`
	// Text keeps only the innermost matches whose text contains it.
	Text string `json:"text,omitempty"`
	// Match keeps only the matches that also match this selector.
	Match string `json:"match,omitempty"`
	// Around keeps only the matches whose box lies within Radius pixels of
	// the point, nearest first.
	Around *Point  `json:"around,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	// Nth narrows the matches: 0 keeps all, n > 0 keeps the n-th (1-based),
	// n < 0 keeps the last.
	Nth int `json:"nth,omitempty"`
}

// CSS returns a locator for a CSS selector.
func CSS(selector string) Locator {
	return Locator{Selector: selector}
}

// Text returns a locator for the innermost elements matching selector whose
// text contains substr. An empty selector means any element.
func Text(selector, substr string) Locator {
	if selector == "" {
		selector = "*"
	}
	return Locator{Selector: selector, Text: substr}
}

func (l Locator) Within(scope string) Locator {
	l.Scope = scope
	return l
}

// Matching narrows l to elements that also match selector. Unlike string
// concatenation it is correct for selector lists and combinators.
func (l Locator) Matching(selector string) Locator {
	l.Match = selector
	return l
}

// NearestTo narrows l to elements within radius pixels of p (viewport
// coordinates), ordered by distance.
func (l Locator) NearestTo(p Point, radius float64) Locator {
	l.Around = &Point{X: p.X, Y: p.Y}
	l.Radius = radius
	return l
}

func (l Locator) First() Locator {
	l.Nth = 1
	return l
}

func (l Locator) Last() Locator {
	l.Nth = -1
	return l
}

func (l Locator) String() string {
	var b strings.Builder
	if l.Text != "" {
		if l.Selector == "*" {
			fmt.Fprintf(&b, "text=%q", l.Text)
		} else {
			fmt.Fprintf(&b, "%s:text=%q", l.Selector, l.Text)
		}
	} else {
		b.WriteString(l.Selector)
	}
	if l.Match != "" {
		fmt.Fprintf(&b, " matching %s", l.Match)
	}
	if l.Around != nil {
		fmt.Fprintf(&b, " within %gpx of (%.0f, %.0f)", l.Radius, l.Around.X, l.Around.Y)
	}
	if l.Scope != "" {
		fmt.Fprintf(&b, " in %s", l.Scope)
	}
	switch {
	case l.Nth > 0:
		fmt.Fprintf(&b, " [#%d]", l.Nth)
	case l.Nth < 0:
		b.WriteString(" [last]")
	}
	return b.String()
}

const resolveFn = `(function(q) {
	const root = q.scope ? document.querySelector(q.scope) : document;
	if (!root) return [];
	let els = Array.from(root.querySelectorAll(q.selector));
	if (q.text) {
		els = els.filter(el => (el.textContent || '').includes(q.text));
		els = els.filter(el => !els.some(o => o !== el && el.contains(o)));
	}
	if (q.match) els = els.filter(el => el.matches(q.match));
	if (q.around) {
		const p = q.around;
		const dist = el => {
			const r = el.getBoundingClientRect();
			const dx = Math.max(r.left - p.x, 0, p.x - r.right);
			const dy = Math.max(r.top - p.y, 0, p.y - r.bottom);
			return Math.hypot(dx, dy);
		};
		els = els.map(el => [el, dist(el)])
			.filter(e => e[1] <= (q.radius || 0))
			.sort((a, b) => a[1] - b[1])
			.map(e => e[0]);
	}
	if (q.nth > 0) return els.length >= q.nth ? [els[q.nth - 1]] : [];
	if (q.nth < 0) return els.length ? [els[els.length - 1]] : [];
	return els;
})`

const visibleFn = `(function(el) {
	const style = window.getComputedStyle(el);
	return el.getClientRects().length > 0 && style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
})`

func (l Locator) query() string {
	b, _ := json.Marshal(l)
	return string(b)
}

// resolveJS evaluates to the array of elements the locator matches.
func (l Locator) resolveJS() string {
	return fmt.Sprintf("%s(%s)", resolveFn, l.query())
}

// visibleJS evaluates to the array of visible matches.
func (l Locator) visibleJS() string {
	return fmt.Sprintf("%s.filter(%s)", l.resolveJS(), visibleFn)
}

// countJS evaluates to the number of matches, visible or not.
func (l Locator) countJS() string {
	return l.resolveJS() + ".length"
}

// onlyJS evaluates body with `el` bound to the single visible match. The
// result is {count, value}; value is only set when count is 1.
func (l Locator) onlyJS(body string) string {
	return fmt.Sprintf(`(() => {
	const els = %s;
	if (els.length !== 1) return {count: els.length};
	const el = els[0];
	return {count: 1, value: (() => { %s })()};
})()`, l.visibleJS(), body)
}

// firstJS evaluates body with `el` bound to the first match, visible or not.
// The result is {count, value}; value is only set when count > 0.
func (l Locator) firstJS(body string) string {
	return fmt.Sprintf(`(() => {
	const els = %s;
	if (els.length === 0) return {count: 0};
	const el = els[0];
	return {count: els.length, value: (() => { %s })()};
})()`, l.resolveJS(), body)
}
