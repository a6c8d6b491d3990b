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
	"time"

	"github.com/chromedp/chromedp"
)

const readTimeout = 5 * time.Second

// Count returns the number of elements matching l, visible or not. It does not
// wait.
func (s *Session) Count(l Locator) (int, error) {
	var n int
	if err := s.run(readTimeout, chromedp.Evaluate(l.countJS(), &n)); err != nil {
		if isScriptException(err) {
			return 0, &ScriptError{Target: "count " + l.String(), Err: err}
		}
		return 0, fmt.Errorf("count %s: %w", l, err)
	}
	return n, nil
}

// readFirst evaluates body against the first match of l. A missing element is
// a *LocatorError with count 0.
func (s *Session) readFirst(l Locator, body string) (*string, error) {
	var res evalResult[*string]
	if err := s.run(readTimeout, chromedp.Evaluate(l.firstJS(body), &res)); err != nil {
		if isScriptException(err) {
			return nil, &ScriptError{Target: "read " + l.String(), Err: err}
		}
		return nil, fmt.Errorf("read %s: %w", l, err)
	}
	if res.Count == 0 {
		return nil, &LocatorError{Selector: l.String(), Count: 0}
	}
	return res.Value, nil
}

// ReadAttribute reads attribute name of the first match of l. Present is
// false when the attribute is not set.
func (s *Session) ReadAttribute(l Locator, name string) (ObservedState, error) {
	q, _ := json.Marshal(name)
	v, err := s.readFirst(l, fmt.Sprintf("return el.getAttribute(%s);", q))
	if err != nil {
		return ObservedState{}, err
	}
	o := ObservedState{Locator: l.String(), Kind: "attribute", Name: name, At: time.Now()}
	if v != nil {
		o.Value, o.Present = *v, true
	}
	return o, nil
}

// ReadClassList reads the class list of the first match of l.
func (s *Session) ReadClassList(l Locator) (ClassSet, ObservedState, error) {
	o, err := s.ReadAttribute(l, "class")
	if err != nil {
		return nil, ObservedState{}, err
	}
	o.Kind = "class"
	return ParseClassSet(o.Value), o, nil
}

// ReadText reads the rendered text of the first match of l.
func (s *Session) ReadText(l Locator) (ObservedState, error) {
	v, err := s.readFirst(l, "return el.innerText;")
	if err != nil {
		return ObservedState{}, err
	}
	o := ObservedState{Locator: l.String(), Kind: "text", At: time.Now()}
	if v != nil {
		o.Value, o.Present = *v, true
	}
	return o, nil
}
