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

// Package scenarios holds the verification scripts for the map application.
package scenarios

import (
	"fmt"
	"sort"

	"github.com/ttbt-io/carnetverify/verify"
)

const (
	StatisticsModal        = "statistics-modal"
	Persistence            = "persistence"
	RightClickMarker       = "right-click-marker"
	CoordinateSearchMarker = "coordinate-search-marker"

	// DefaultSearchQuery is typed into the search box by the coordinate
	// search scenario.
	DefaultSearchQuery = "33.8, 10.9"
)

// Suite builds the scenarios against one contract.
type Suite struct {
	Contract    Contract
	Timeouts    Timeouts
	SearchQuery string
}

// NewSuite returns a suite with default timeouts.
func NewSuite(c Contract) Suite {
	return Suite{
		Contract:    c,
		Timeouts:    DefaultTimeouts(),
		SearchQuery: DefaultSearchQuery,
	}
}

// All returns every scenario in a fixed order.
func (s Suite) All() []verify.Scenario {
	return []verify.Scenario{
		s.StatisticsModal(),
		s.Persistence(),
		s.RightClickMarker(),
		s.CoordinateSearchMarker(),
	}
}

// Names lists the scenario names in lexical order.
func (s Suite) Names() []string {
	var names []string
	for _, sc := range s.All() {
		names = append(names, sc.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a scenario by name.
func (s Suite) Lookup(name string) (verify.Scenario, error) {
	for _, sc := range s.All() {
		if sc.Name == name {
			return sc, nil
		}
	}
	return verify.Scenario{}, fmt.Errorf("unknown scenario %q (have %v)", name, s.Names())
}

// Select resolves names to scenarios. "all" or no names selects everything.
func (s Suite) Select(names []string) ([]verify.Scenario, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == "all") {
		return s.All(), nil
	}
	out := make([]verify.Scenario, 0, len(names))
	for _, n := range names {
		sc, err := s.Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// awaitMap waits for the map root, the readiness signal of every page load.
func (s Suite) awaitMap(r *verify.Run) error {
	r.Step("wait for map root")
	return r.Await(verify.Appears(verify.CSS(s.Contract.MapRoot)), s.Timeouts.MapLoad)
}
