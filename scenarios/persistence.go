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

package scenarios

import (
	"fmt"
	"time"

	"github.com/ttbt-io/carnetverify/verify"
)

// awaitHydration waits for the circuits data to be applied after a page load.
// Without a DOM signal the only option is a fixed delay.
func (s Suite) awaitHydration(r *verify.Run) error {
	r.Step("wait for data hydration")
	if sig := s.Contract.HydratedSignal; sig != "" {
		return r.Await(verify.Appears(verify.CSS(sig)), s.Timeouts.MapLoad)
	}
	r.Logf("No hydration signal in contract, sleeping %s", s.Timeouts.Hydration)
	return r.Await(verify.Delay(s.Timeouts.Hydration), s.Timeouts.Hydration+time.Second)
}

// openCircuits opens the circuits list and reports how many toggles it shows.
// Toggles that do not show up within the popup timeout are treated as absent.
func (s Suite) openCircuits(r *verify.Run) (int, error) {
	c := s.Contract
	r.Step("open circuits list")
	if err := r.Click(verify.CSS(c.CircuitsButton)); err != nil {
		return 0, err
	}
	toggles := verify.CSS(c.Toggle)
	if err := r.Session.Await(verify.Appears(toggles), s.Timeouts.Popup); err != nil && !verify.IsTimeout(err) {
		return 0, r.Fail(err)
	}
	return r.Count(toggles)
}

// Persistence flips the first circuit's visited toggle and checks the new
// value survives a full reload.
func (s Suite) Persistence() verify.Scenario {
	c, t := s.Contract, s.Timeouts
	toggle := verify.CSS(c.Toggle).First()

	return verify.Scenario{
		Name:        Persistence,
		Description: "visited toggle state persists across a reload",
		Path:        "/",
		Script: func(r *verify.Run) error {
			if err := s.awaitMap(r); err != nil {
				return err
			}
			if err := s.awaitHydration(r); err != nil {
				return err
			}

			n, err := s.openCircuits(r)
			if err != nil {
				return err
			}
			if n == 0 {
				return r.Inconclusive("no circuits found to test persistence")
			}
			r.Logf("Found %d toggle(s)", n)

			r.Step("read initial state")
			initial, err := r.ReadAttribute(toggle, c.ToggleAttr)
			if err != nil {
				return err
			}
			r.Logf("Initial State: %s", initial)

			r.Step("click toggle")
			if err := r.Click(toggle); err != nil {
				return err
			}
			if err := r.Session.Await(verify.AttributeChanges(toggle, initial), t.ToggleFlip); err != nil && !verify.IsTimeout(err) {
				return r.Fail(err)
			}
			flipped, err := r.ReadAttribute(toggle, c.ToggleAttr)
			if err != nil {
				return err
			}
			r.Logf("New State (Before Reload): %s", flipped)
			if err := r.AssertNotEqual(flipped.String(), initial.String(), "toggle state didn't change"); err != nil {
				return err
			}

			r.Step("reload page")
			if err := r.Fail(r.Session.Reload()); err != nil {
				return err
			}
			if err := r.Await(verify.NavigationSettles(), verify.NavigationTimeout); err != nil {
				return err
			}
			if err := s.awaitMap(r); err != nil {
				return err
			}
			if err := s.awaitHydration(r); err != nil {
				return err
			}

			n, err = s.openCircuits(r)
			if err != nil {
				return err
			}
			if n == 0 {
				return r.Fail(fmt.Errorf("circuits list empty after reload"))
			}

			r.Step("read state after reload")
			final, err := r.ReadAttribute(toggle, c.ToggleAttr)
			if err != nil {
				return err
			}
			r.Logf("Final State (After Reload): %s", final)
			return r.AssertEqual(final.String(), flipped.String(), "toggle state after reload")
		},
	}
}
