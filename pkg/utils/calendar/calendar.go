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

// Package calendar enumerates the block universe of a window and expands
// rotation template recurrences into preserved assignments.
package calendar

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
)

// DaysPerAcademicBlock is the length of one academic block.
const DaysPerAcademicBlock = 28

// BlocksForWindow enumerates the AM and PM blocks of every day in the
// inclusive window, in chronological order. Academic block numbers count
// 28-day periods from the academic year start.
func BlocksForWindow(window v1.Window, academicYearStart time.Time) ([]v1.Block, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	var blocks []v1.Block
	start := window.Start.UTC().Truncate(24 * time.Hour)
	end := window.End.UTC().Truncate(24 * time.Hour)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		number := AcademicBlockNumber(day, academicYearStart)
		blocks = append(blocks,
			v1.Block{Date: day, Half: v1.AM, Number: number},
			v1.Block{Date: day, Half: v1.PM, Number: number},
		)
	}
	return blocks, nil
}

// AcademicBlockNumber returns the 1-based 28-day academic block containing
// day. Days before the academic year start land in block 1.
func AcademicBlockNumber(day, academicYearStart time.Time) int {
	elapsed := int(day.UTC().Sub(academicYearStart.UTC()).Hours() / 24)
	if elapsed < 0 {
		return 1
	}
	return elapsed/DaysPerAcademicBlock + 1
}

// ExpandRecurrence materializes a template's cron recurrence into preserved
// assignments for the given people across the window. The recurrence's hour
// selects the half-day: before noon is AM, noon onward is PM.
func ExpandRecurrence(template v1.RotationTemplate, people []v1.PersonID, window v1.Window) ([]v1.Assignment, error) {
	if template.Recurrence == "" {
		return nil, nil
	}
	schedule, err := cron.ParseStandard(template.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("parsing recurrence %q of template %q, %w", template.Recurrence, template.ID, err)
	}
	var out []v1.Assignment
	cursor := window.Start.UTC().Add(-time.Second)
	end := window.End.UTC().AddDate(0, 0, 1)
	for {
		next := schedule.Next(cursor)
		if next.IsZero() || !next.Before(end) {
			break
		}
		cursor = next
		half := v1.AM
		if next.Hour() >= 12 {
			half = v1.PM
		}
		key := v1.BlockKey{Day: next.Format(v1.DateLayout), Half: half}
		for _, person := range people {
			out = append(out, v1.Assignment{
				Person:    person,
				Block:     key,
				Template:  template.ID,
				Role:      v1.RolePrimary,
				Immutable: true,
				Notes:     "recurrence",
			})
		}
	}
	return out, nil
}
