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

package calendar_test

import (
	"testing"
	"time"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/utils/calendar"
)

func day(s string) time.Time {
	d, err := time.Parse(v1.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d.UTC()
}

func TestBlocksForWindow(t *testing.T) {
	window := v1.Window{Start: day("2025-03-03"), End: day("2025-03-09")}
	blocks, err := calendar.BlocksForWindow(window, day("2024-07-01"))
	if err != nil {
		t.Fatalf("enumerating blocks: %v", err)
	}
	if len(blocks) != 14 {
		t.Fatalf("expected 14 blocks, got %d", len(blocks))
	}
	if blocks[0].Half != v1.AM || blocks[1].Half != v1.PM {
		t.Fatal("expected AM before PM on the first day")
	}
	for _, b := range blocks {
		if b.Number <= 0 {
			t.Fatalf("block %s has no academic number", b.Key())
		}
	}
}

func TestAcademicBlockNumber(t *testing.T) {
	start := day("2024-07-01")
	cases := []struct {
		day  string
		want int
	}{
		{"2024-07-01", 1},
		{"2024-07-28", 1},
		{"2024-07-29", 2},
		{"2025-03-03", 9},
		{"2024-06-01", 1}, // before the academic year clamps to 1
	}
	for _, c := range cases {
		if got := calendar.AcademicBlockNumber(day(c.day), start); got != c.want {
			t.Errorf("AcademicBlockNumber(%s) = %d, want %d", c.day, got, c.want)
		}
	}
}

func TestExpandRecurrence(t *testing.T) {
	didactics := v1.RotationTemplate{
		ID:           "didactics",
		Name:         "Wednesday didactics",
		Activity:     v1.ActivityEducation,
		MaxHeadcount: 30,
		Recurrence:   "0 13 * * WED",
	}
	window := v1.Window{Start: day("2025-03-03"), End: day("2025-03-30")}
	assignments, err := calendar.ExpandRecurrence(didactics, []v1.PersonID{"r1", "r2"}, window)
	if err != nil {
		t.Fatalf("expanding recurrence: %v", err)
	}
	// Four Wednesdays in the window, two people each.
	if len(assignments) != 8 {
		t.Fatalf("expected 8 assignments, got %d", len(assignments))
	}
	for _, a := range assignments {
		if a.Block.Half != v1.PM {
			t.Errorf("13:00 recurrence should land on PM, got %s", a.Block)
		}
		if !a.Immutable {
			t.Error("recurrence expansions must be preserved")
		}
		if day(a.Block.Day).Weekday() != time.Wednesday {
			t.Errorf("expected Wednesday, got %s", a.Block.Day)
		}
	}
}
