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
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown circuit ids.
var ErrNotFound = errors.New("circuit not found")

// Circuit is one walking circuit with the user's visited flag.
type Circuit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Km        float64   `json:"km"`
	Visited   bool      `json:"visited"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CircuitStore persists circuits, one file each.
type CircuitStore struct {
	DataDir string
	storage *storage.Storage
	mu      sync.Mutex
}

// NewCircuitStore creates a CircuitStore.
func NewCircuitStore(dataDir string, s *storage.Storage) *CircuitStore {
	return &CircuitStore{
		DataDir: dataDir,
		storage: s,
	}
}

func circuitFile(id string) string {
	return filepath.Join("circuits", fmt.Sprintf("%s.json", url.PathEscape(id)))
}

// DemoCircuits is the default seed.
func DemoCircuits() []Circuit {
	return []Circuit{
		{Name: "Médina de Sousse", Km: 4.2},
		{Name: "Port El Kantaoui", Km: 6.8},
		{Name: "Remparts de Monastir", Km: 3.5},
	}
}

// Seed stores circuits when the store is empty. Missing ids are generated.
func (cs *CircuitStore) Seed(circuits []Circuit) error {
	existing, err := cs.List()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, c := range circuits {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if err := cs.Save(&c); err != nil {
			return err
		}
	}
	return nil
}

// Save writes one circuit atomically.
func (cs *CircuitStore) Save(c *Circuit) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c.UpdatedAt = time.Now().UTC()
	if err := cs.storage.SaveDataFile(circuitFile(c.ID), c); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// Load reads one circuit.
func (cs *CircuitStore) Load(id string) (*Circuit, error) {
	var c Circuit
	if err := cs.storage.ReadDataFile(circuitFile(id), &c); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage.ReadDataFile: %w", err)
	}
	return &c, nil
}

// List returns all circuits ordered by name.
func (cs *CircuitStore) List() ([]Circuit, error) {
	entries, err := os.ReadDir(filepath.Join(cs.DataDir, "circuits"))
	if err != nil {
		if os.IsNotExist(err) {
			return []Circuit{}, nil
		}
		return nil, err
	}
	out := []Circuit{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		c, err := cs.Load(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// SetVisited updates the visited flag of one circuit.
func (cs *CircuitStore) SetVisited(id string, visited bool) (*Circuit, error) {
	c, err := cs.Load(id)
	if err != nil {
		return nil, err
	}
	c.Visited = visited
	if err := cs.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}
