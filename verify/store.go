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
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c2FmZQ/storage"
)

// Store keeps scenario results on disk, one file per run.
type Store struct {
	dir     string
	storage *storage.Storage
	mu      sync.Mutex
}

// NewStore opens a result store rooted at dir.
func NewStore(dir string, s *storage.Storage) *Store {
	return &Store{dir: dir, storage: s}
}

func resultFile(runID string) string {
	return filepath.Join("results", fmt.Sprintf("%s.json", url.PathEscape(runID)))
}

// Save writes res atomically.
func (st *Store) Save(res Result) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := os.MkdirAll(filepath.Join(st.dir, "results"), 0755); err != nil {
		return err
	}
	if err := st.storage.SaveDataFile(resultFile(res.RunID), &res); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// Load reads one result.
func (st *Store) Load(runID string) (Result, error) {
	var res Result
	if err := st.storage.ReadDataFile(resultFile(runID), &res); err != nil {
		return Result{}, fmt.Errorf("storage.ReadDataFile: %w", err)
	}
	return res, nil
}

// List returns all stored results, newest first.
func (st *Store) List() ([]Result, error) {
	entries, err := os.ReadDir(filepath.Join(st.dir, "results"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Result
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		res, err := st.Load(id)
		if err != nil {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Started.After(out[j].Started)
	})
	return out, nil
}
