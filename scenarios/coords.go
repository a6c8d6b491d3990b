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
	"regexp"
	"strconv"
	"strings"
)

// coordsRE is the pattern the application's search box treats as GPS input.
var coordsRE = regexp.MustCompile(`^(-?\d+(\.\d+)?)[,\s]+(-?\d+(\.\d+)?)$`)

// ParseCoordinates parses "lat, lon" the way the search box does.
func ParseCoordinates(query string) (lat, lon float64, ok bool) {
	m := coordsRE.FindStringSubmatch(strings.TrimSpace(query))
	if m == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// FormatCoordinates renders a position the way marker popups show it.
func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("%.5f, %.5f", lat, lon)
}
