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
	"sort"
	"strings"
	"time"
)

// Verdict is the outcome of one scenario.
type Verdict int

const (
	Pass Verdict = iota
	Fail
	Inconclusive
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	case Inconclusive:
		return "INCONCLUSIVE"
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Verdict) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "PASS":
		*v = Pass
	case "FAIL":
		*v = Fail
	case "INCONCLUSIVE":
		*v = Inconclusive
	default:
		return fmt.Errorf("unknown verdict %q", s)
	}
	return nil
}

// State is the lifecycle position of a scenario run.
type State string

const (
	StateInit        State = "INIT"
	StateLoaded      State = "LOADED"
	StateInteracting State = "INTERACTING"
	StateDone        State = "DONE"
	StateTornDown    State = "TORN_DOWN"
)

// ClassSet is the class list of one element.
type ClassSet map[string]struct{}

// ParseClassSet splits a class attribute value.
func ParseClassSet(attr string) ClassSet {
	set := make(ClassSet)
	for _, c := range strings.Fields(attr) {
		set[c] = struct{}{}
	}
	return set
}

func (s ClassSet) Has(class string) bool {
	_, ok := s[class]
	return ok
}

// Sorted returns the classes in lexical order.
func (s ClassSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s ClassSet) String() string {
	return strings.Join(s.Sorted(), " ")
}

// ObservedState is one value read back from the DOM at a point in time.
type ObservedState struct {
	Locator string    `json:"locator"`
	Kind    string    `json:"kind"`
	Name    string    `json:"name,omitempty"`
	Value   string    `json:"value"`
	Present bool      `json:"present"`
	At      time.Time `json:"at"`
}

// String renders the value, or "null" when the attribute was absent.
func (o ObservedState) String() string {
	if !o.Present {
		return "null"
	}
	return o.Value
}

// Evidence is the diagnostic artifact of a non-PASS run.
type Evidence struct {
	Scenario   string `json:"scenario"`
	Step       string `json:"step"`
	Screenshot string `json:"screenshot,omitempty"`
	Message    string `json:"message"`
}

// Failure is the structured record of a failed step.
type Failure struct {
	Scenario string `json:"scenario"`
	Step     string `json:"step"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Error    string `json:"error"`
}

// Result is everything known about one finished scenario run.
type Result struct {
	RunID    string          `json:"runId"`
	Scenario string          `json:"scenario"`
	Verdict  Verdict         `json:"verdict"`
	Steps    []string        `json:"steps"`
	States   []ObservedState `json:"states,omitempty"`
	Failure  *Failure        `json:"failure,omitempty"`
	Evidence *Evidence       `json:"evidence,omitempty"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
	TornDown bool            `json:"tornDown"`

	// BrowserPID is 0 for remote browsers or failed launches.
	BrowserPID int `json:"browserPid,omitempty"`
}

// Duration is the wall time of the run.
func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
