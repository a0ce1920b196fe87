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

package v1

import (
	"time"
)

// AbsenceType categorizes a leave of absence.
type AbsenceType string

const (
	AbsenceVacation   AbsenceType = "Vacation"
	AbsenceSick       AbsenceType = "Sick"
	AbsenceConference AbsenceType = "Conference"
	AbsenceFMLA       AbsenceType = "FMLA"
)

// Absence is an inclusive date range during which a person is unavailable.
// The pipeline treats absences as preserved non-productive assignments.
type Absence struct {
	Person PersonID    `json:"person"`
	Start  time.Time   `json:"start"`
	End    time.Time   `json:"end"`
	Type   AbsenceType `json:"type"`
}

// Covers reports whether the absence spans the given day.
func (a Absence) Covers(day time.Time) bool {
	return Window{Start: a.Start, End: a.End}.Contains(day)
}

func (a Absence) Validate() error {
	if a.Person == "" {
		return NewInvariantViolation("absence person must not be empty")
	}
	if err := (Window{Start: a.Start, End: a.End}).Validate(); err != nil {
		return NewInvariantViolation("absence for %q, %s", a.Person, err)
	}
	return nil
}
