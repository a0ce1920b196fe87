/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package events defines the small sink interface through which the core
// surfaces pipeline decisions to the caller. The default recorder discards
// everything; nothing in the core depends on events being observed.
package events

import (
	"fmt"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
)

// EventType distinguishes informational events from warnings.
type EventType string

const (
	TypeNormal  EventType = "Normal"
	TypeWarning EventType = "Warning"
)

// Event is one pipeline decision worth surfacing.
type Event struct {
	Type    EventType
	Reason  string
	Message string
	// DedupeValues identify the event for caller-side deduplication.
	DedupeValues []string
}

// Recorder receives events. Implementations must be safe for use from a
// single scheduling run; the core never publishes concurrently.
type Recorder interface {
	Publish(Event)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) Publish(Event) {}

func CandidateDropped(person v1.PersonID, block v1.BlockKey, constraint, reason string) Event {
	return Event{
		Type:         TypeNormal,
		Reason:       "CandidateDropped",
		Message:      fmt.Sprintf("Dropped %s@%s, %s: %s", person, block, constraint, reason),
		DedupeValues: []string{string(person), block.String(), constraint},
	}
}

func BackendFellBack(requested string, err error) Event {
	return Event{
		Type:         TypeWarning,
		Reason:       "BackendFallback",
		Message:      fmt.Sprintf("Backend %q failed, falling back to greedy: %s", requested, err),
		DedupeValues: []string{requested},
	}
}

func SupervisionGap(block v1.BlockKey, template v1.TemplateID, missing int) Event {
	return Event{
		Type:         TypeWarning,
		Reason:       "SupervisionGap",
		Message:      fmt.Sprintf("Template %s on %s is short %d supervising faculty", template, block, missing),
		DedupeValues: []string{string(template), block.String()},
	}
}
