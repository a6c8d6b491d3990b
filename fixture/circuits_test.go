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

package fixture

import (
	"errors"
	"os"
	"testing"

	"github.com/c2FmZQ/storage"
)

func TestCircuitStore(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "circuitstore_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	s := storage.New(tempDir, nil)
	store := NewCircuitStore(tempDir, s)

	t.Run("EmptyList", func(t *testing.T) {
		circuits, err := store.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(circuits) != 0 {
			t.Errorf("Expected no circuits, got %d", len(circuits))
		}
	})

	t.Run("Seed", func(t *testing.T) {
		if err := store.Seed(DemoCircuits()); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
		circuits, err := store.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(circuits) != len(DemoCircuits()) {
			t.Fatalf("Expected %d circuits, got %d", len(DemoCircuits()), len(circuits))
		}
		for i, c := range circuits {
			if c.ID == "" {
				t.Errorf("circuit %d has no id", i)
			}
			if c.Visited {
				t.Errorf("circuit %q seeded as visited", c.Name)
			}
			if i > 0 && circuits[i-1].Name > c.Name {
				t.Errorf("circuits not sorted: %q before %q", circuits[i-1].Name, c.Name)
			}
		}
	})

	t.Run("SeedIsIdempotent", func(t *testing.T) {
		if err := store.Seed([]Circuit{{Name: "Extra"}}); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
		circuits, _ := store.List()
		if len(circuits) != len(DemoCircuits()) {
			t.Errorf("Expected %d circuits after second seed, got %d", len(DemoCircuits()), len(circuits))
		}
	})

	t.Run("SetVisited", func(t *testing.T) {
		circuits, _ := store.List()
		id := circuits[0].ID
		if _, err := store.SetVisited(id, true); err != nil {
			t.Fatalf("SetVisited failed: %v", err)
		}
		// A second store on the same directory sees the change.
		reopened := NewCircuitStore(tempDir, storage.New(tempDir, nil))
		c, err := reopened.Load(id)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !c.Visited {
			t.Errorf("Expected circuit %s to be visited", id)
		}
		if c.UpdatedAt.IsZero() {
			t.Errorf("UpdatedAt not set")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := store.SetVisited("missing", true); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}
