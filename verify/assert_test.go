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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugAndArtifactPath(t *testing.T) {
	assert.Equal(t, "wait-for-map-root", Slug("Wait for map root"))
	assert.Equal(t, "right-click-marker", Slug("right-click-marker"))
	assert.Equal(t, "unnamed", Slug("!!!"))
	assert.Equal(t, filepath.Join("out", "persistence-read-state-after-reload.png"),
		ArtifactPath("out", "persistence", "read state after reload"))
}

func TestRunFailureIsRecordedOnce(t *testing.T) {
	logger, logs := observedLogger()
	r := newRun("run-1", "persistence", t.TempDir(), logger)
	assert.Equal(t, StateInit, r.State())

	r.Step("read state after reload")
	err := r.AssertEqual("false", "true", "toggle state after reload")
	require.Error(t, err)
	var am *AssertionMismatch
	require.ErrorAs(t, err, &am)
	assert.Equal(t, "true", am.Expected)
	assert.Equal(t, "false", am.Actual)

	r.Step("later")
	r.Failf("second failure")

	require.NotNil(t, r.failure)
	assert.Equal(t, "read state after reload", r.failure.Step)
	assert.Equal(t, "true", r.failure.Expected)
	assert.Equal(t, "false", r.failure.Actual)
	require.NotNil(t, r.evidence)
	assert.Equal(t, "read state after reload", r.evidence.Step)

	assert.Equal(t, 1, logs.FilterMessage("STEP: read state after reload").Len())
	assert.Equal(t, 1, logs.FilterMessage("Step failed").Len())
}

func TestRunAssertions(t *testing.T) {
	logger, logs := observedLogger()
	r := newRun("run-2", "coordinate-search-marker", t.TempDir(), logger)
	r.Step("check")

	assert.NoError(t, r.AssertEqual("1", "1", "count"))
	assert.NoError(t, r.AssertNotEqual("true", "false", "flip"))
	assert.NoError(t, r.AssertAtLeast(2, 1, "present"))
	assert.NoError(t, r.AssertContains(ParseClassSet("a leaflet-marker-draggable"), "leaflet-marker-draggable", "draggable"))
	assert.Nil(t, r.failure)

	err := r.AssertContains(ParseClassSet("leaflet-marker-icon"), "leaflet-marker-draggable", "draggable")
	var am *AssertionMismatch
	require.ErrorAs(t, err, &am)
	assert.Equal(t, "contains leaflet-marker-draggable", am.Expected)
	assert.Equal(t, "leaflet-marker-icon", am.Actual)

	r2 := newRun("run-3", "x", t.TempDir(), logger)
	err = r2.AssertEqual("line1\nline2\n", "line1\nlineX\n", "text")
	require.ErrorAs(t, err, &am)
	assert.Contains(t, am.Diff, "--- Expected")
	assert.Contains(t, am.Diff, "+line2")
	assert.Equal(t, 1, logs.FilterMessage("Text mismatch").Len())

	r3 := newRun("run-4", "x", t.TempDir(), logger)
	assert.Error(t, r3.AssertNotEqual("null", "null", "toggle state didn't change"))
	assert.Error(t, r3.AssertAtLeast(0, 1, "present"))
}

func TestRunInconclusive(t *testing.T) {
	logger, _ := observedLogger()
	r := newRun("run-5", "persistence", t.TempDir(), logger)
	r.Step("open circuits list")
	err := r.Inconclusive("no circuits found to test persistence")
	assert.Equal(t, Inconclusive, VerdictFor(err))
	require.NotNil(t, r.evidence)
	assert.Equal(t, "no circuits found to test persistence", r.evidence.Message)
}

func TestRunObserveAndSnapshot(t *testing.T) {
	logger, logs := observedLogger()
	r := newRun("run-6", "persistence", t.TempDir(), logger)
	r.Observe(ObservedState{Locator: ".t", Kind: "attribute", Name: "data-visited"})
	require.Len(t, r.states, 1)
	obs := logs.FilterMessage("Observed").All()
	require.Len(t, obs, 1)
	assert.Equal(t, "null", obs[0].ContextMap()["value"])

	_, err := r.Snapshot("stats modal")
	assert.Error(t, err)
}
