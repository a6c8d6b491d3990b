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
	"strings"

	"github.com/chromedp/chromedp/kb"
	"github.com/ttbt-io/carnetverify/verify"
)

// markerReach is how far from the click point the new marker's icon may be.
const markerReach = 24

// RightClickMarker right-clicks the center of the map and checks the draft
// marker it creates can be dragged. The draft is told apart from other
// markers by the count going up and by its position at the click point.
func (s Suite) RightClickMarker() verify.Scenario {
	c, t := s.Contract, s.Timeouts
	markers := verify.CSS(c.Marker)

	return verify.Scenario{
		Name:        RightClickMarker,
		Description: "right-click on the map creates a draggable draft marker",
		Path:        "/",
		Script: func(r *verify.Run) error {
			r.Step("wait for map container")
			if err := r.Await(verify.Appears(verify.CSS(c.MapContainer)), t.MapLoad); err != nil {
				return err
			}

			r.Step("right-click map center")
			center, err := r.Session.CenterOf(verify.CSS(c.MapRoot))
			if err != nil {
				return r.Fail(err)
			}
			before, err := r.Count(markers)
			if err != nil {
				return err
			}
			r.Logf("Right-clicking at (%.0f, %.0f), %d marker(s) already on the map", center.X, center.Y, before)
			if err := r.Fail(r.Session.RightClickAt(center)); err != nil {
				return err
			}

			r.Step("wait for creation prompt")
			if err := r.Await(verify.Appears(verify.Text("", c.PromptText)), t.Popup); err != nil {
				return err
			}

			r.Step("check coordinates display")
			coords := verify.CSS(c.DraftCoords)
			n, err := r.Count(coords)
			if err != nil {
				return err
			}
			if err := r.AssertAtLeast(n, 1, "coordinates display present"); err != nil {
				return err
			}
			text, err := r.ReadText(coords.First())
			if err != nil {
				return err
			}
			r.Logf("Found coordinates: %s", strings.TrimSpace(text.Value))

			r.Step("wait for new marker")
			if err := r.Await(verify.CountAtLeast(markers, before+1), t.Popup); err != nil {
				return err
			}

			r.Step("check draggable class")
			classes, err := r.ReadClassList(markers.NearestTo(center, markerReach).First())
			if err != nil {
				return err
			}
			return r.AssertContains(classes, c.DraggableCls, "new marker is draggable")
		},
	}
}

// CoordinateSearchMarker types raw coordinates into the search box and checks
// the ghost marker it places can be dragged.
func (s Suite) CoordinateSearchMarker() verify.Scenario {
	c, t := s.Contract, s.Timeouts
	query := s.SearchQuery
	ghost := verify.CSS(c.GhostMarker).Matching(c.Marker)

	return verify.Scenario{
		Name:        CoordinateSearchMarker,
		Description: "coordinate search places one draggable ghost marker",
		Path:        "/",
		Script: func(r *verify.Run) error {
			lat, lon, ok := ParseCoordinates(query)
			if !ok {
				return r.Inconclusive(fmt.Sprintf("search query %q is not a coordinate pair", query))
			}
			if err := s.awaitMap(r); err != nil {
				return err
			}

			r.Step("type coordinates")
			search := verify.CSS(c.SearchInput)
			if err := r.Fill(search, query); err != nil {
				return err
			}
			if err := r.PressKey(search, kb.Enter); err != nil {
				return err
			}

			r.Step("wait for ghost marker")
			if err := r.Await(verify.Appears(ghost), t.GhostMarker); err != nil {
				return err
			}
			// A replaced ghost may linger for a frame; the count is asserted
			// either way.
			if err := r.Session.Await(verify.CountIs(ghost, 1), t.Settle); err != nil && !verify.IsTimeout(err) {
				return r.Fail(err)
			}
			n, err := r.Count(ghost)
			if err != nil {
				return err
			}
			if err := r.AssertEqual(fmt.Sprint(n), "1", "ghost marker count"); err != nil {
				return err
			}
			if err := r.AwaitAbsent(verify.CountAtLeast(ghost, 2), t.Settle); err != nil {
				return err
			}

			r.Step("check draggability")
			classes, err := r.ReadClassList(ghost)
			if err != nil {
				return err
			}
			r.Logf("Marker classes: %s", classes)
			if err := r.AssertContains(classes, c.DraggableCls, "ghost marker is draggable"); err != nil {
				return err
			}

			r.Step("check marker coordinates")
			coords := verify.CSS(c.GhostCoords)
			if n, err := r.Count(coords); err != nil || n == 0 {
				if err == nil {
					r.Logf("No %s shown, skipping coordinate check", c.GhostCoords)
				}
				return err
			}
			text, err := r.ReadText(coords.First())
			if err != nil {
				return err
			}
			return r.AssertEqual(strings.TrimSpace(text.Value), FormatCoordinates(lat, lon), "ghost marker coordinates")
		},
	}
}
