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

package e2e

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ttbt-io/carnetverify/fixture"
	"github.com/ttbt-io/carnetverify/scenarios"
	"github.com/ttbt-io/carnetverify/verify"
)

func requireEvidence(t *testing.T, res verify.Result, step string) {
	t.Helper()
	require.NotNil(t, res.Failure, "failure record")
	require.NotNil(t, res.Evidence, "evidence")
	assert.Equal(t, step, res.Failure.Step)
	assert.Equal(t, step, res.Evidence.Step)
	if assert.NotEmpty(t, res.Evidence.Screenshot, "evidence screenshot") {
		fi, err := os.Stat(res.Evidence.Screenshot)
		if assert.NoError(t, err) {
			assert.Positive(t, fi.Size())
		}
	}
}

func TestScenariosPass(t *testing.T) {
	requireBrowser(t)
	baseURL := startFixture(t, fixture.Options{})
	rn := newRunner(t, baseURL)
	suite := fixtureSuite()

	for _, name := range suite.Names() {
		t.Run(name, func(t *testing.T) {
			res := runScenario(t, rn, suite, name)
			require.Equal(t, verify.Pass, res.Verdict, "failure: %+v", res.Failure)
			assert.Nil(t, res.Evidence)
			assert.NotEmpty(t, res.Steps)
		})
	}
}

func TestStatisticsSnapshot(t *testing.T) {
	requireBrowser(t)
	baseURL := startFixture(t, fixture.Options{})
	rn := newRunner(t, baseURL)

	res := runScenario(t, rn, fixtureSuite(), scenarios.StatisticsModal)
	require.Equal(t, verify.Pass, res.Verdict, "failure: %+v", res.Failure)
	_, err := os.Stat(verify.ArtifactPath(rn.Artifacts, scenarios.StatisticsModal, "stats modal"))
	assert.NoError(t, err)
}

// Persistence must hold from any starting state, so running it twice in a
// row against the same data flips the toggle there and back.
func TestPersistenceIsRepeatable(t *testing.T) {
	requireBrowser(t)
	baseURL := startFixture(t, fixture.Options{})
	rn := newRunner(t, baseURL)
	suite := fixtureSuite()

	first := runScenario(t, rn, suite, scenarios.Persistence)
	require.Equal(t, verify.Pass, first.Verdict, "failure: %+v", first.Failure)
	second := runScenario(t, rn, suite, scenarios.Persistence)
	require.Equal(t, verify.Pass, second.Verdict, "failure: %+v", second.Failure)

	var firstFinal, secondFinal string
	for _, s := range first.States {
		if s.Kind == "attribute" {
			firstFinal = s.String()
		}
	}
	for _, s := range second.States {
		if s.Kind == "attribute" {
			secondFinal = s.String()
		}
	}
	assert.NotEqual(t, firstFinal, secondFinal)
}

// Without a hydration signal the scenario falls back to a fixed delay.
func TestPersistenceWithoutHydrationSignal(t *testing.T) {
	requireBrowser(t)
	baseURL := startFixture(t, fixture.Options{HydrationDelay: 300 * time.Millisecond})
	rn := newRunner(t, baseURL)
	suite := scenarios.NewSuite(scenarios.DefaultContract())
	suite.Timeouts.Hydration = time.Second

	res := runScenario(t, rn, suite, scenarios.Persistence)
	require.Equal(t, verify.Pass, res.Verdict, "failure: %+v", res.Failure)
}

func TestEmptyDataIsInconclusive(t *testing.T) {
	requireBrowser(t)
	baseURL := startFixture(t, fixture.Options{Empty: true})
	rn := newRunner(t, baseURL)

	res := runScenario(t, rn, fixtureSuite(), scenarios.Persistence)
	assert.Equal(t, verify.Inconclusive, res.Verdict)
	requireEvidence(t, res, "open circuits list")
	assert.Contains(t, res.Failure.Error, "no circuits found to test persistence")
}

func TestRegressionsFail(t *testing.T) {
	requireBrowser(t)

	tests := []struct {
		name     string
		opts     fixture.Options
		scenario string
		step     string
		check    func(t *testing.T, res verify.Result)
	}{
		{
			name:     "NonDraggableDraft",
			opts:     fixture.Options{BreakDraggable: true},
			scenario: scenarios.RightClickMarker,
			step:     "check draggable class",
			check: func(t *testing.T, res verify.Result) {
				assert.Equal(t, "contains leaflet-marker-draggable", res.Failure.Expected)
				assert.NotContains(t, res.Failure.Actual, "leaflet-marker-draggable")
			},
		},
		{
			name:     "NonDraggableGhost",
			opts:     fixture.Options{BreakDraggable: true},
			scenario: scenarios.CoordinateSearchMarker,
			step:     "check draggability",
		},
		{
			name:     "NoDraftMarker",
			opts:     fixture.Options{BreakDraftMarker: true},
			scenario: scenarios.RightClickMarker,
			step:     "wait for new marker",
			check: func(t *testing.T, res verify.Result) {
				assert.Contains(t, res.Failure.Error, "to match at least 1 elements")
			},
		},
		{
			// The last marker on the page is a draggable one that was there
			// before the right-click.
			name:     "NoDraftMarkerAmongOthers",
			opts:     fixture.Options{BreakDraftMarker: true, ExtraMarkers: true},
			scenario: scenarios.RightClickMarker,
			step:     "wait for new marker",
			check: func(t *testing.T, res verify.Result) {
				assert.Contains(t, res.Failure.Error, "to match at least 3 elements")
			},
		},
		{
			name:     "NonDraggableDraftAmongOthers",
			opts:     fixture.Options{BreakDraggable: true, ExtraMarkers: true},
			scenario: scenarios.RightClickMarker,
			step:     "check draggable class",
			check: func(t *testing.T, res verify.Result) {
				assert.Contains(t, res.Failure.Actual, "draft-marker-icon")
				assert.NotContains(t, res.Failure.Actual, "leaflet-marker-draggable")
			},
		},
		{
			name:     "NoPrompt",
			opts:     fixture.Options{BreakPrompt: true},
			scenario: scenarios.RightClickMarker,
			step:     "wait for creation prompt",
			check: func(t *testing.T, res verify.Result) {
				assert.Contains(t, res.Failure.Error, "timeout after 5s")
				assert.Contains(t, res.Failure.Error, `text="Nouveau Lieu ?"`)
			},
		},
		{
			name:     "ToggleNotPersisted",
			opts:     fixture.Options{BreakPersistence: true},
			scenario: scenarios.Persistence,
			step:     "read state after reload",
			check: func(t *testing.T, res verify.Result) {
				assert.NotEqual(t, res.Failure.Expected, res.Failure.Actual)
				assert.Contains(t, []string{"true", "false"}, res.Failure.Expected)
			},
		},
		{
			name:     "ModalStuckOpen",
			opts:     fixture.Options{BreakModalClose: true},
			scenario: scenarios.StatisticsModal,
			step:     "close modal",
			check: func(t *testing.T, res verify.Result) {
				assert.Contains(t, res.Failure.Error, "to disappear")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			baseURL := startFixture(t, tc.opts)
			rn := newRunner(t, baseURL)
			res := runScenario(t, rn, fixtureSuite(), tc.scenario)
			require.Equal(t, verify.Fail, res.Verdict)
			requireEvidence(t, res, tc.step)
			if tc.check != nil {
				tc.check(t, res)
			}
		})
	}
}

// Markers already on the map, and markers added after the draft, must not
// be mistaken for the draft. Running twice shows no state leaks between runs.
func TestRightClickAmongOtherMarkers(t *testing.T) {
	requireBrowser(t)
	baseURL := startFixture(t, fixture.Options{ExtraMarkers: true})
	rn := newRunner(t, baseURL)
	suite := fixtureSuite()

	for i := 0; i < 2; i++ {
		res := runScenario(t, rn, suite, scenarios.RightClickMarker)
		require.Equal(t, verify.Pass, res.Verdict, "run %d failure: %+v", i+1, res.Failure)

		var counts, classes []string
		for _, s := range res.States {
			switch s.Kind {
			case "count":
				counts = append(counts, s.Value)
			case "class":
				classes = append(classes, s.Value)
			}
		}
		require.NotEmpty(t, counts)
		assert.Equal(t, "2", counts[0], "preset markers counted before the click")
		require.Len(t, classes, 1)
		assert.Contains(t, classes[0], "draft-marker-icon")
	}

	res := runScenario(t, rn, suite, scenarios.CoordinateSearchMarker)
	require.Equal(t, verify.Pass, res.Verdict, "failure: %+v", res.Failure)
}

// The modal must open within its bound; a tighter bound than the page can
// meet is reported as a failure of that step.
func TestModalTimingBound(t *testing.T) {
	requireBrowser(t)
	baseURL := startFixture(t, fixture.Options{})
	rn := newRunner(t, baseURL)
	suite := fixtureSuite()
	suite.Timeouts.ModalShow = 20 * time.Millisecond

	res := runScenario(t, rn, suite, scenarios.StatisticsModal)
	require.Equal(t, verify.Fail, res.Verdict)
	requireEvidence(t, res, "wait for modal")
	assert.True(t, strings.HasPrefix(res.Failure.Error, "timeout after 20ms"), res.Failure.Error)
}

func TestUnreachableTarget(t *testing.T) {
	requireBrowser(t)
	rn := newRunner(t, "http://127.0.0.1:1")

	res := runScenario(t, rn, fixtureSuite(), scenarios.StatisticsModal)
	assert.Equal(t, verify.Fail, res.Verdict)
	require.NotNil(t, res.Failure)
	assert.Equal(t, "open app", res.Failure.Step)
	assert.Contains(t, res.Failure.Error, "environment")
}
