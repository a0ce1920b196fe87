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

package scheduling

import (
	"time"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
)

// Offsets from the Monday of an FMIT week. The week runs Monday through
// Friday; the Sunday closing that week and the Friday of the following week
// are recovery time.
const (
	postFMITSundayOffset = 6
	postFMITFridayOffset = 11
)

// PostFMITRecovery blocks the involved faculty's following Friday from clinic
// after an FMIT week.
type PostFMITRecovery struct {
	BaseConstraint
}

func NewPostFMITRecovery() *PostFMITRecovery {
	return &PostFMITRecovery{BaseConstraint: NewHardConstraint(PostFMITRecoveryName)}
}

func (p *PostFMITRecovery) Propagate(rc *RunContext, c Candidate) Decision {
	person, ok := rc.Roster.Person(c.Person)
	if !ok || !person.IsFaculty() {
		return Allow()
	}
	template, ok := rc.Roster.Template(c.Template)
	if !ok || !template.Activity.SolverManaged() {
		return Allow()
	}
	if week, hit := fmitWeekAtOffset(rc, c.Person, rc.Day(c.Block), postFMITFridayOffset); hit {
		return Forbid("recovery Friday after FMIT week of %s", week)
	}
	return Allow()
}

func (p *PostFMITRecovery) Score(*RunContext, Candidate) float64 { return 0 }

// PostFMITSundayBlocking blocks the Sunday following an FMIT week for the
// involved faculty.
type PostFMITSundayBlocking struct {
	BaseConstraint
}

func NewPostFMITSundayBlocking() *PostFMITSundayBlocking {
	return &PostFMITSundayBlocking{BaseConstraint: NewHardConstraint(PostFMITSundayBlockingName)}
}

func (p *PostFMITSundayBlocking) Propagate(rc *RunContext, c Candidate) Decision {
	person, ok := rc.Roster.Person(c.Person)
	if !ok || !person.IsFaculty() {
		return Allow()
	}
	if week, hit := fmitWeekAtOffset(rc, c.Person, rc.Day(c.Block), postFMITSundayOffset); hit {
		return Forbid("Sunday after FMIT week of %s is blocked", week)
	}
	return Allow()
}

func (p *PostFMITSundayBlocking) Score(*RunContext, Candidate) float64 { return 0 }

// fmitWeekAtOffset reports whether day lands exactly offset days after the
// Monday of one of the person's FMIT weeks.
func fmitWeekAtOffset(rc *RunContext, person v1.PersonID, day time.Time, offset int) (string, bool) {
	anchor := day.AddDate(0, 0, -offset)
	if anchor.Weekday() != time.Monday {
		return "", false
	}
	week := anchor.Format(v1.DateLayout)
	if rc.Roster.FMITWeekStarts(person).Has(week) {
		return week, true
	}
	return "", false
}
