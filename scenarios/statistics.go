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
	"github.com/ttbt-io/carnetverify/verify"
)

// StatisticsModal opens the statistics panel from the tools menu and closes
// it again with the modal's action button.
func (s Suite) StatisticsModal() verify.Scenario {
	c, t := s.Contract, s.Timeouts
	overlay := verify.CSS(c.ModalOverlay)

	return verify.Scenario{
		Name:        StatisticsModal,
		Description: "statistics modal opens from the tools menu and closes",
		Path:        "/",
		Script: func(r *verify.Run) error {
			if err := s.awaitMap(r); err != nil {
				return err
			}

			r.Step("open tools menu")
			if err := r.Click(verify.CSS(c.ToolsMenu)); err != nil {
				return err
			}

			r.Step("open statistics panel")
			stats := verify.CSS(c.StatsButton)
			if err := r.Await(verify.Appears(stats), t.Menu); err != nil {
				return err
			}
			if err := r.Click(stats); err != nil {
				return err
			}

			r.Step("wait for modal")
			if err := r.Await(verify.Appears(overlay), t.ModalShow); err != nil {
				return err
			}
			if path, err := r.Snapshot("stats modal"); err != nil {
				r.Logf("Screenshot of stats modal failed: %v", err)
			} else {
				r.Logf("Screenshot of stats modal taken: %s", path)
			}

			r.Step("close modal")
			if err := r.Click(verify.CSS(c.ModalAction)); err != nil {
				return err
			}
			if err := r.Await(verify.Disappears(overlay), t.ModalHide); err != nil {
				return err
			}
			return r.AwaitAbsent(verify.Appears(overlay), t.Settle)
		},
	}
}
