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

// Package verify drives a browser against the map application and turns what
// it observes into verdicts.
//
// A Runner gives every Scenario its own Session and always closes it. Inside a
// scenario, waits go through Session.Await, input through the Click, Fill,
// PressKey and PointerSequence methods, and reads through the Run so that
// every observed value is recorded and the first failure leaves a screenshot.
package verify
