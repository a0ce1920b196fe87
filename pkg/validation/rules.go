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

package validation

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/state"
)

// dutyHours returns the person's duty hours on a calendar day. Outpatient and
// procedures half-days weigh HoursPerBlock, inpatient half-days weigh
// InpatientHoursPerBlock; everything else weighs zero.
func dutyHours(roster *state.Roster, person v1.PersonID, day time.Time) float64 {
	key := day.Format(v1.DateLayout)
	var hours float64
	for _, half := range []v1.HalfDay{v1.AM, v1.PM} {
		a, ok := roster.AssignmentAt(person, v1.BlockKey{Day: key, Half: half})
		if !ok {
			continue
		}
		t, ok := roster.Template(a.Template)
		if !ok {
			continue
		}
		switch t.Activity {
		case v1.ActivityOutpatient, v1.ActivityProcedures:
			hours += HoursPerBlock
		case v1.ActivityInpatient:
			hours += InpatientHoursPerBlock
		}
	}
	return hours
}

// eightyHourViolations checks every 4-consecutive-week rolling window
// starting at each week boundary. Every offending window yields its own
// violation; the scan never stops early.
func eightyHourViolations(roster *state.Roster, resident *v1.Person, window v1.Window) []Violation {
	var out []Violation
	for start := state.WeekStart(window.Start); !start.AddDate(0, 0, 27).After(window.End.UTC()); start = start.AddDate(0, 0, 7) {
		var total float64
		for d := 0; d < 28; d++ {
			total += dutyHours(roster, resident.ID, start.AddDate(0, 0, d))
		}
		average := total / 4
		if average > WeeklyHourLimit {
			out = append(out, Violation{
				Type:        TypeEightyHour,
				Severity:    SeverityCritical,
				Person:      resident.ID,
				Message:     fmt.Sprintf("averages %.1f weekly duty hours over the four weeks starting %s", average, start.Format(v1.DateLayout)),
				WindowStart: start.Format(v1.DateLayout),
				Details:     map[string]float64{"averageWeeklyHours": average, "limit": WeeklyHourLimit},
			})
		}
	}
	return out
}

// oneInSevenViolations checks rolling 7-day windows anchored at every day of
// the schedule: each must contain at least one day with zero assigned hours.
func oneInSevenViolations(roster *state.Roster, resident *v1.Person, window v1.Window) []Violation {
	var out []Violation
	start := window.Start.UTC()
	end := window.End.UTC()
	for day := start; !day.AddDate(0, 0, 6).After(end); day = day.AddDate(0, 0, 1) {
		free := false
		for d := 0; d < 7; d++ {
			if dutyHours(roster, resident.ID, day.AddDate(0, 0, d)) == 0 {
				free = true
				break
			}
		}
		if !free {
			out = append(out, Violation{
				Type:        TypeOneInSeven,
				Severity:    SeverityHigh,
				Person:      resident.ID,
				Message:     fmt.Sprintf("no day off in the seven days starting %s", day.Format(v1.DateLayout)),
				WindowStart: day.Format(v1.DateLayout),
			})
		}
	}
	return out
}

// supervisionViolations checks the supervision law on one block: faculty
// count must reach ceil(residents / maxRatio) on every supervision-required
// template holding residents.
func supervisionViolations(roster *state.Roster, block v1.Block) []Violation {
	var out []Violation
	key := block.Key()
	for _, template := range roster.Templates() {
		if !template.SupervisionRequired {
			continue
		}
		onTemplate := roster.OnTemplate(key, template.ID)
		residents := lo.CountBy(onTemplate, func(a v1.Assignment) bool {
			p, ok := roster.Person(a.Person)
			return ok && p.IsResident()
		})
		if residents == 0 {
			continue
		}
		faculty := lo.CountBy(onTemplate, func(a v1.Assignment) bool {
			p, ok := roster.Person(a.Person)
			return ok && p.IsFaculty()
		})
		needed := (residents + template.MaxResidentsPerFaculty - 1) / template.MaxResidentsPerFaculty
		if faculty < needed {
			out = append(out, Violation{
				Type:        TypeSupervision,
				Severity:    SeverityCritical,
				Message:     fmt.Sprintf("template %s on %s has %d residents but %d of %d required faculty", template.ID, key, residents, faculty, needed),
				WindowStart: key.Day,
				Details:     map[string]float64{"residents": float64(residents), "faculty": float64(faculty), "required": float64(needed)},
			})
		}
	}
	return out
}

// consecutiveDutyViolations flags every maximal run of on-duty days longer
// than the cap.
func consecutiveDutyViolations(roster *state.Roster, resident *v1.Person, window v1.Window, cap int) []Violation {
	var out []Violation
	runStart := time.Time{}
	run := 0
	flush := func() {
		if run > cap {
			out = append(out, Violation{
				Type:        TypeConsecutiveDuty,
				Severity:    SeverityHigh,
				Person:      resident.ID,
				Message:     fmt.Sprintf("%d consecutive on-duty days starting %s exceeds cap %d", run, runStart.Format(v1.DateLayout), cap),
				WindowStart: runStart.Format(v1.DateLayout),
				Details:     map[string]float64{"days": float64(run), "cap": float64(cap)},
			})
		}
		run = 0
	}
	for day := window.Start.UTC(); !day.After(window.End.UTC()); day = day.AddDate(0, 0, 1) {
		if dutyHours(roster, resident.ID, day) > 0 {
			if run == 0 {
				runStart = day
			}
			run++
			continue
		}
		flush()
	}
	flush()
	return out
}
