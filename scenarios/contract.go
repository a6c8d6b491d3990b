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
	"reflect"
	"strings"
	"time"
)

// ContractVersion identifies the selector set below. Bump it whenever a
// selector changes meaning.
const ContractVersion = "1"

// Contract is every piece of application DOM the scenarios depend on.
type Contract struct {
	Version string `mapstructure:"version" json:"version"`

	MapRoot      string `mapstructure:"map_root" json:"mapRoot"`
	MapContainer string `mapstructure:"map_container" json:"mapContainer"`

	ToolsMenu    string `mapstructure:"tools_menu" json:"toolsMenu"`
	StatsButton  string `mapstructure:"stats_button" json:"statsButton"`
	ModalOverlay string `mapstructure:"modal_overlay" json:"modalOverlay"`
	ModalAction  string `mapstructure:"modal_action" json:"modalAction"`

	CircuitsButton string `mapstructure:"circuits_button" json:"circuitsButton"`
	Toggle         string `mapstructure:"toggle" json:"toggle"`
	ToggleAttr     string `mapstructure:"toggle_attr" json:"toggleAttr"`
	// HydratedSignal is optional. Without it the persistence scenario falls
	// back to a fixed delay after reload.
	HydratedSignal string `mapstructure:"hydrated_signal" json:"hydratedSignal,omitempty"`

	SearchInput  string `mapstructure:"search_input" json:"searchInput"`
	GhostMarker  string `mapstructure:"ghost_marker" json:"ghostMarker"`
	GhostCoords  string `mapstructure:"ghost_coords" json:"ghostCoords"`
	Marker       string `mapstructure:"marker" json:"marker"`
	PromptText   string `mapstructure:"prompt_text" json:"promptText"`
	DraftCoords  string `mapstructure:"draft_coords" json:"draftCoords"`
	DraggableCls string `mapstructure:"draggable_class" json:"draggableClass"`
}

// DefaultContract matches the live application, which exposes no hydration
// signal.
func DefaultContract() Contract {
	return Contract{
		Version:        ContractVersion,
		MapRoot:        "#map",
		MapContainer:   ".leaflet-container",
		ToolsMenu:      "#btn-tools-menu",
		StatsButton:    "#btn-statistics",
		ModalOverlay:   ".custom-modal-overlay.active",
		ModalAction:    ".custom-modal-actions button",
		CircuitsButton: "#btn-open-my-circuits",
		Toggle:         ".btn-toggle-visited",
		ToggleAttr:     "data-visited",
		SearchInput:    "#search-input",
		GhostMarker:    ".ghost-marker-icon",
		GhostCoords:    "#ghost-marker-coords",
		Marker:         ".leaflet-marker-icon",
		PromptText:     "Nouveau Lieu ?",
		DraftCoords:    "#desktop-draft-coords",
		DraggableCls:   "leaflet-marker-draggable",
	}
}

// Fields that hold plain values rather than CSS selectors.
var nonSelectorFields = map[string]bool{
	"Version":      true,
	"ToggleAttr":   true,
	"PromptText":   true,
	"DraggableCls": true,
}

// Validate rejects contracts with a missing or malformed selector. Only
// structural mistakes are caught here; the browser has the final word.
func (c Contract) Validate() error {
	if c.Version != ContractVersion {
		return fmt.Errorf("contract version %q, want %q", c.Version, ContractVersion)
	}
	v := reflect.ValueOf(c)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		val := v.Field(i).String()
		if val == "" {
			if f.Name == "HydratedSignal" {
				continue
			}
			return fmt.Errorf("contract field %s is empty", f.Name)
		}
		if nonSelectorFields[f.Name] {
			continue
		}
		if err := checkSelector(val); err != nil {
			return fmt.Errorf("contract field %s: %w", f.Name, err)
		}
	}
	return nil
}

// checkSelector catches unbalanced brackets and quotes and dangling
// combinators.
func checkSelector(sel string) error {
	var stack []rune
	var quote rune
	for _, r := range sel {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '[', '(':
			stack = append(stack, r)
		case ']', ')':
			want := '['
			if r == ')' {
				want = '('
			}
			if len(stack) == 0 || stack[len(stack)-1] != want {
				return fmt.Errorf("selector %q: unexpected %q", sel, r)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if quote != 0 {
		return fmt.Errorf("selector %q: unterminated string", sel)
	}
	if len(stack) > 0 {
		return fmt.Errorf("selector %q: unclosed %q", sel, stack[len(stack)-1])
	}
	trimmed := strings.TrimSpace(sel)
	for _, comb := range []string{",", ">", "+", "~"} {
		if strings.HasPrefix(trimmed, comb) || strings.HasSuffix(trimmed, comb) {
			return fmt.Errorf("selector %q: dangling %q", sel, comb)
		}
	}
	return nil
}

// Timeouts are the waits the scenarios use.
type Timeouts struct {
	MapLoad     time.Duration
	Popup       time.Duration
	ModalShow   time.Duration
	ModalHide   time.Duration
	Menu        time.Duration
	Hydration   time.Duration
	ToggleFlip  time.Duration
	GhostMarker time.Duration
	// Settle is how long an expected absence is watched.
	Settle time.Duration
}

// DefaultTimeouts are the bounds the application is expected to meet.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		MapLoad:     10 * time.Second,
		Popup:       5 * time.Second,
		ModalShow:   1500 * time.Millisecond,
		ModalHide:   500 * time.Millisecond,
		Menu:        5 * time.Second,
		Hydration:   3 * time.Second,
		ToggleFlip:  2 * time.Second,
		GhostMarker: 5 * time.Second,
		Settle:      500 * time.Millisecond,
	}
}
