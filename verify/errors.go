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
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
)

// EnvironmentError means the harness could not get a usable browser or
// target. It is never retried.
type EnvironmentError struct {
	Op  string
	Err error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("environment: %s: %v", e.Op, e.Err)
}

func (e *EnvironmentError) Unwrap() error { return e.Err }

// TimeoutError is returned when a wait condition never became true.
type TimeoutError struct {
	Condition string
	Timeout   time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("timeout after %s waiting for %s: %v", e.Timeout, e.Condition, e.Err)
	}
	return fmt.Sprintf("timeout after %s waiting for %s", e.Timeout, e.Condition)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// LocatorError is returned when a locator did not resolve to exactly one
// visible element. Err is the last evaluation error seen while waiting, if
// any.
type LocatorError struct {
	Selector string
	Count    int
	Err      error
}

func (e *LocatorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("locator %s matched %d visible elements, want exactly 1: %v", e.Selector, e.Count, e.Err)
	}
	return fmt.Sprintf("locator %s matched %d visible elements, want exactly 1", e.Selector, e.Count)
}

func (e *LocatorError) Unwrap() error { return e.Err }

// ScriptError is returned when the page threw while evaluating a condition or
// locator, typically because a selector is invalid. It is not retried.
type ScriptError struct {
	Target string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("evaluating %s: %v", e.Target, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// AssertionMismatch carries the expected and actual values verbatim.
type AssertionMismatch struct {
	Label    string
	Expected string
	Actual   string
	Diff     string
}

func (e *AssertionMismatch) Error() string {
	return fmt.Sprintf("%s: expected %q, got %q", e.Label, e.Expected, e.Actual)
}

// PreconditionError marks a fixture or environment gap. It maps to an
// INCONCLUSIVE verdict, never FAIL.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition not met: " + e.Reason
}

// VerdictFor maps a scenario error to its verdict.
func VerdictFor(err error) Verdict {
	if err == nil {
		return Pass
	}
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return Inconclusive
	}
	return Fail
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// isScriptException reports whether err is a JS exception thrown by the page,
// as opposed to a protocol or context error.
func isScriptException(err error) bool {
	var ex *runtime.ExceptionDetails
	return errors.As(err, &ex)
}
