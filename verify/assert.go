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
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
)

// Run is the state of one scenario execution. Scenario scripts drive the
// session through it so every read is recorded and every failure leaves
// evidence.
type Run struct {
	ID       string
	Scenario string
	Session  *Session

	artifacts string
	logger    *zap.Logger

	state    State
	step     string
	steps    []string
	states   []ObservedState
	failure  *Failure
	evidence *Evidence
}

func newRun(id, scenario, artifacts string, logger *zap.Logger) *Run {
	return &Run{
		ID:        id,
		Scenario:  scenario,
		artifacts: artifacts,
		logger:    logger,
		state:     StateInit,
	}
}

func (r *Run) Logger() *zap.Logger {
	return r.logger
}

func (r *Run) State() State {
	return r.state
}

func (r *Run) transition(to State) {
	r.logger.Debug("State transition", zap.String("from", string(r.state)), zap.String("to", string(to)))
	r.state = to
}

// Step names the current step and narrates it.
func (r *Run) Step(name string) {
	r.step = name
	r.steps = append(r.steps, name)
	r.logger.Info("STEP: " + name)
}

// Logf narrates a detail of the current step.
func (r *Run) Logf(format string, args ...any) {
	r.logger.Info(fmt.Sprintf(format, args...), zap.String("step", r.step))
}

// Observe records a value read from the page.
func (r *Run) Observe(o ObservedState) ObservedState {
	r.states = append(r.states, o)
	r.logger.Info("Observed", zap.String("step", r.step), zap.String("locator", o.Locator), zap.String("kind", o.Kind), zap.String("name", o.Name), zap.String("value", o.String()))
	return o
}

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a scenario or step name into a stable file name fragment.
func Slug(s string) string {
	s = slugRE.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "unnamed"
	}
	return s
}

// ArtifactPath is the screenshot path for a scenario and tag.
func ArtifactPath(dir, scenario, tag string) string {
	return filepath.Join(dir, Slug(scenario)+"-"+Slug(tag)+".png")
}

// Snapshot saves a screenshot that documents success. It is not evidence.
func (r *Run) Snapshot(tag string) (string, error) {
	path := ArtifactPath(r.artifacts, r.Scenario, tag)
	if r.Session == nil {
		return "", errors.New("no session")
	}
	if err := r.Session.Screenshot(path); err != nil {
		return "", err
	}
	return path, nil
}

// capture records the failure and its evidence. Only the first call counts.
func (r *Run) capture(f Failure, msg string) {
	if r.evidence != nil {
		return
	}
	f.Scenario, f.Step = r.Scenario, r.step
	r.failure = &f
	ev := &Evidence{Scenario: r.Scenario, Step: r.step, Message: msg}
	if r.Session != nil && !r.Session.Closed() {
		path := ArtifactPath(r.artifacts, r.Scenario, r.step)
		if err := r.Session.Screenshot(path); err != nil {
			r.logger.Warn("Evidence screenshot failed", zap.Error(err))
		} else {
			ev.Screenshot = path
		}
	}
	r.evidence = ev
	r.logger.Error("Step failed",
		zap.String("scenario", f.Scenario),
		zap.String("step", f.Step),
		zap.String("expected", f.Expected),
		zap.String("actual", f.Actual),
		zap.String("error", f.Error),
		zap.String("screenshot", ev.Screenshot),
	)
}

// Fail records err as the failure of the current step and returns it.
func (r *Run) Fail(err error) error {
	if err == nil {
		return nil
	}
	f := Failure{Error: err.Error()}
	var am *AssertionMismatch
	if errors.As(err, &am) {
		f.Expected, f.Actual = am.Expected, am.Actual
	}
	r.capture(f, err.Error())
	return err
}

// Failf fails the current step with a formatted message.
func (r *Run) Failf(format string, args ...any) error {
	return r.Fail(fmt.Errorf(format, args...))
}

// Inconclusive ends the run without a behavior verdict.
func (r *Run) Inconclusive(reason string) error {
	err := &PreconditionError{Reason: reason}
	r.capture(Failure{Error: err.Error()}, reason)
	return err
}

func textDiff(expected, actual string) string {
	if !strings.Contains(expected, "\n") && !strings.Contains(actual, "\n") {
		return ""
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  3,
	})
	return diff
}

// AssertEqual fails the run unless actual == expected.
func (r *Run) AssertEqual(actual, expected, label string) error {
	if actual == expected {
		r.logger.Info("Assertion passed", zap.String("step", r.step), zap.String("label", label), zap.String("value", actual))
		return nil
	}
	err := &AssertionMismatch{Label: label, Expected: expected, Actual: actual, Diff: textDiff(expected, actual)}
	if err.Diff != "" {
		r.logger.Error("Text mismatch", zap.String("label", label), zap.String("diff", err.Diff))
	}
	return r.Fail(err)
}

// AssertNotEqual fails the run when actual == unexpected.
func (r *Run) AssertNotEqual(actual, unexpected, label string) error {
	if actual != unexpected {
		return nil
	}
	return r.Fail(&AssertionMismatch{Label: label, Expected: "not " + unexpected, Actual: actual})
}

// AssertContains fails the run unless set has member.
func (r *Run) AssertContains(set ClassSet, member, label string) error {
	if set.Has(member) {
		r.logger.Info("Assertion passed", zap.String("step", r.step), zap.String("label", label), zap.String("member", member))
		return nil
	}
	return r.Fail(&AssertionMismatch{Label: label, Expected: "contains " + member, Actual: set.String()})
}

// AssertAtLeast fails the run unless n >= min.
func (r *Run) AssertAtLeast(n, min int, label string) error {
	if n >= min {
		return nil
	}
	return r.Fail(&AssertionMismatch{Label: label, Expected: fmt.Sprintf(">= %d", min), Actual: fmt.Sprint(n)})
}

// ---- session wrappers that record observations ----

// Await waits for c; a timeout fails the run.
func (r *Run) Await(c Condition, timeout time.Duration) error {
	if err := r.Session.Await(c, timeout); err != nil {
		return r.Fail(err)
	}
	return nil
}

// AwaitAbsent fails the run if c holds at any point within window, or if it
// could not be evaluated.
func (r *Run) AwaitAbsent(c Condition, window time.Duration) error {
	return r.Fail(r.Session.AwaitAbsent(c, window))
}

// Click clicks l; a locator error fails the run.
func (r *Run) Click(l Locator) error {
	return r.Fail(r.Session.Click(l))
}

func (r *Run) Fill(l Locator, text string) error {
	return r.Fail(r.Session.Fill(l, text))
}

func (r *Run) PressKey(l Locator, key string) error {
	return r.Fail(r.Session.PressKey(l, key))
}

func (r *Run) Count(l Locator) (int, error) {
	n, err := r.Session.Count(l)
	if err != nil {
		return 0, r.Fail(err)
	}
	r.Observe(ObservedState{Locator: l.String(), Kind: "count", Value: fmt.Sprint(n), Present: true, At: time.Now()})
	return n, nil
}

func (r *Run) ReadAttribute(l Locator, name string) (ObservedState, error) {
	o, err := r.Session.ReadAttribute(l, name)
	if err != nil {
		return o, r.Fail(err)
	}
	return r.Observe(o), nil
}

func (r *Run) ReadClassList(l Locator) (ClassSet, error) {
	set, o, err := r.Session.ReadClassList(l)
	if err != nil {
		return nil, r.Fail(err)
	}
	r.Observe(o)
	return set, nil
}

func (r *Run) ReadText(l Locator) (ObservedState, error) {
	o, err := r.Session.ReadText(l)
	if err != nil {
		return o, r.Fail(err)
	}
	return r.Observe(o), nil
}
