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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scenario is one complete verification script.
type Scenario struct {
	Name        string
	Description string
	// Path is where the app is opened before the script starts.
	Path   string
	Script func(r *Run) error
}

// Launcher opens the session for a run.
type Launcher func(ctx context.Context, opts Options) (*Session, error)

// Runner executes scenarios, one session each.
type Runner struct {
	Options Options
	// Artifacts is the directory screenshots are written to.
	Artifacts string
	Logger    *zap.Logger
	// Store, if set, receives every result.
	Store *Store
	// Launch defaults to OpenSession.
	Launch Launcher
}

func (rn *Runner) logger() *zap.Logger {
	if rn.Logger == nil {
		return zap.NewNop()
	}
	return rn.Logger
}

// Run executes sc in a fresh session and returns its result. It never panics
// and never returns with the session still open.
func (rn *Runner) Run(ctx context.Context, sc Scenario) (res Result) {
	id := uuid.NewString()
	logger := rn.logger().With(zap.String("scenario", sc.Name), zap.String("run_id", id))
	run := newRun(id, sc.Name, rn.Artifacts, logger)

	res = Result{RunID: id, Scenario: sc.Name, Started: time.Now()}
	defer func() {
		if p := recover(); p != nil {
			run.Fail(fmt.Errorf("panic: %v", p))
			res.Verdict = Fail
		}
		if run.Session != nil {
			if err := run.Session.Close(); err != nil {
				logger.Warn("Session close", zap.Error(err))
			}
			res.TornDown = run.Session.Closed()
		} else {
			res.TornDown = true
		}
		run.transition(StateTornDown)
		rn.finish(run, &res)
	}()

	launch := rn.Launch
	if launch == nil {
		launch = OpenSession
	}
	opts := rn.Options
	opts.Logger = logger
	sess, err := launch(ctx, opts)
	if err != nil {
		run.Step("open session")
		run.Fail(err)
		res.Verdict = Fail
		return res
	}
	run.Session = sess
	res.BrowserPID = sess.PID()

	run.Step("open app")
	// A remote browser may carry cookies from earlier runs.
	if err := sess.ClearCookies(); err != nil {
		run.Fail(&EnvironmentError{Op: "clear cookies", Err: err})
		res.Verdict = Fail
		return res
	}
	if err := sess.Navigate(sc.Path); err != nil {
		run.Fail(err)
		res.Verdict = Fail
		return res
	}
	run.transition(StateLoaded)

	run.transition(StateInteracting)
	err = rn.script(run, sc)
	res.Verdict = VerdictFor(err)
	if err != nil {
		// No-op when the failing step already captured evidence.
		if res.Verdict == Inconclusive {
			run.capture(Failure{Error: err.Error()}, err.Error())
		} else {
			run.Fail(err)
		}
	}
	run.transition(StateDone)
	return res
}

func (rn *Runner) script(run *Run, sc Scenario) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in scenario %s: %v", sc.Name, p)
		}
	}()
	if sc.Script == nil {
		return fmt.Errorf("scenario %s has no script", sc.Name)
	}
	return sc.Script(run)
}

func (rn *Runner) finish(run *Run, res *Result) {
	res.Finished = time.Now()
	res.Steps = run.steps
	res.States = run.states
	res.Failure = run.failure
	if res.Verdict != Pass {
		res.Evidence = run.evidence
	}

	logger := run.logger
	switch res.Verdict {
	case Pass:
		logger.Info("SUCCESS: "+res.Scenario, zap.String("verdict", res.Verdict.String()), zap.Duration("duration", res.Duration()))
	case Inconclusive:
		logger.Warn("INCONCLUSIVE: "+res.Scenario, zap.String("verdict", res.Verdict.String()), zap.String("reason", failureText(res.Failure)))
	default:
		logger.Error("FAIL: "+res.Scenario, zap.String("verdict", res.Verdict.String()), zap.String("error", failureText(res.Failure)))
	}

	if rn.Store != nil {
		if err := rn.Store.Save(*res); err != nil {
			logger.Warn("Failed to store result", zap.Error(err))
		}
	}
}

func failureText(f *Failure) string {
	if f == nil {
		return ""
	}
	return f.Error
}

// RunAll executes the scenarios one after another.
func (rn *Runner) RunAll(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			break
		}
		results = append(results, rn.Run(ctx, sc))
	}
	return results
}

// Summary reduces results to one verdict: FAIL if any failed, INCONCLUSIVE
// if any was inconclusive, PASS otherwise.
func Summary(results []Result) Verdict {
	v := Pass
	for _, r := range results {
		switch r.Verdict {
		case Fail:
			return Fail
		case Inconclusive:
			v = Inconclusive
		}
	}
	return v
}
