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

package state_test

import (
	"testing"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/state"
	"github.com/eudaimonia/rostercore/pkg/test"
)

func newRoster(t *testing.T, preserved []v1.Assignment) *state.Roster {
	t.Helper()
	people := []v1.Person{
		test.Resident(test.PersonOptions{ID: "r1"}),
		test.Faculty(test.PersonOptions{ID: "f1"}),
	}
	templates := []v1.RotationTemplate{
		test.Template(test.TemplateOptions{ID: "clinic"}),
		test.Template(test.TemplateOptions{ID: "fmit", Activity: v1.ActivityInpatient, MaxHeadcount: 2, Tags: []string{v1.TagFMIT}}),
	}
	roster, err := state.NewRoster(people, templates, test.BlocksOver(test.Day("2025-03-03"), 14), preserved, nil)
	if err != nil {
		t.Fatalf("building roster: %v", err)
	}
	return roster
}

func TestRosterRejectsCollidingPreservedSlots(t *testing.T) {
	preserved := []v1.Assignment{
		test.Preserved("r1", test.Key("2025-03-03", v1.AM), "clinic"),
		test.Preserved("r1", test.Key("2025-03-03", v1.AM), "fmit"),
	}
	people := []v1.Person{test.Resident(test.PersonOptions{ID: "r1"})}
	templates := []v1.RotationTemplate{test.Template(test.TemplateOptions{ID: "clinic"})}
	_, err := state.NewRoster(people, templates, test.BlocksOver(test.Day("2025-03-03"), 7), preserved, nil)
	if err == nil {
		t.Fatal("expected an invariant violation for colliding slots")
	}
	if !v1.IsInvariantViolation(err) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestRosterCommitEnforcesUniqueness(t *testing.T) {
	roster := newRoster(t, nil)
	a := v1.Assignment{Person: "r1", Block: test.Key("2025-03-03", v1.AM), Template: "clinic", Role: v1.RolePrimary}
	if err := roster.Commit(a); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := roster.Commit(a); err == nil {
		t.Fatal("expected second commit on same slot to fail")
	}
	roster.Uncommit(a)
	if err := roster.Commit(a); err != nil {
		t.Fatalf("commit after uncommit: %v", err)
	}
}

func TestActiveRotationResolvesThroughPreservedMap(t *testing.T) {
	preserved := []v1.Assignment{test.Preserved("r1", test.Key("2025-03-04", v1.PM), "fmit")}
	roster := newRoster(t, preserved)
	template, ok := roster.ActiveRotation("r1", test.Key("2025-03-04", v1.PM))
	if !ok || template != "fmit" {
		t.Fatalf("expected fmit rotation, got %q ok=%v", template, ok)
	}
	if _, ok := roster.ActiveRotation("r1", test.Key("2025-03-05", v1.AM)); ok {
		t.Fatal("expected no rotation on a free block")
	}
}

func TestWithoutPeopleDropsTheirAssignments(t *testing.T) {
	preserved := []v1.Assignment{
		test.Preserved("r1", test.Key("2025-03-03", v1.AM), "clinic"),
		test.Preserved("f1", test.Key("2025-03-03", v1.AM), "clinic"),
	}
	roster := newRoster(t, preserved)
	simulated := roster.WithoutPeople("r1")
	if len(simulated.AssignmentsFor("r1")) != 0 {
		t.Fatal("expected r1's assignments removed in simulation")
	}
	if len(roster.AssignmentsFor("r1")) != 1 {
		t.Fatal("expected the original roster untouched")
	}
	if len(simulated.AssignmentsFor("f1")) != 1 {
		t.Fatal("expected f1's assignments kept")
	}
}

func TestFMITWeekStarts(t *testing.T) {
	preserved := []v1.Assignment{test.Preserved("f1", test.Key("2025-03-05", v1.AM), "fmit")}
	roster := newRoster(t, preserved)
	weeks := roster.FMITWeekStarts("f1")
	if !weeks.Has("2025-03-03") {
		t.Fatalf("expected week of 2025-03-03, got %v", weeks.UnsortedList())
	}
}

func TestAllReturnsChronologicalOrder(t *testing.T) {
	preserved := []v1.Assignment{
		test.Preserved("f1", test.Key("2025-03-05", v1.AM), "clinic"),
		test.Preserved("r1", test.Key("2025-03-03", v1.PM), "clinic"),
		test.Preserved("r1", test.Key("2025-03-03", v1.AM), "clinic"),
	}
	roster := newRoster(t, preserved)
	all := roster.All()
	for i := 1; i < len(all); i++ {
		if all[i].Block.Before(all[i-1].Block) {
			t.Fatalf("assignments out of order at %d: %v", i, all)
		}
	}
}
