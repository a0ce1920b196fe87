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
	"math"
	"time"

	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
)

// UniqueAssignmentPerBlock enforces the (person, block) uniqueness invariant:
// one half-day slot per person.
type UniqueAssignmentPerBlock struct {
	BaseConstraint
}

func NewUniqueAssignmentPerBlock() *UniqueAssignmentPerBlock {
	return &UniqueAssignmentPerBlock{BaseConstraint: NewHardConstraint(UniqueAssignmentPerBlockName)}
}

func (u *UniqueAssignmentPerBlock) Propagate(rc *RunContext, c Candidate) Decision {
	if existing, ok := rc.Roster.AssignmentAt(c.Person, c.Block); ok {
		return Forbid("slot already holds %s", existing.Template)
	}
	return Allow()
}

func (u *UniqueAssignmentPerBlock) Score(*RunContext, Candidate) float64 { return 0 }

// AbsenceRespect forbids any assignment during a person's absence.
type AbsenceRespect struct {
	BaseConstraint
}

func NewAbsenceRespect() *AbsenceRespect {
	return &AbsenceRespect{BaseConstraint: NewHardConstraint(AbsenceRespectName)}
}

func (a *AbsenceRespect) Propagate(rc *RunContext, c Candidate) Decision {
	if rc.Roster.AbsentOn(c.Person, rc.Day(c.Block)) {
		return Forbid("absent on %s", c.Block.Day)
	}
	return Allow()
}

func (a *AbsenceRespect) Score(*RunContext, Candidate) float64 { return 0 }

// CredentialRequirement forbids assigning a person to a template they lack
// credentials for. Procedure clinics additionally require faculty to be
// procedure-credentialed.
type CredentialRequirement struct {
	BaseConstraint
}

func NewCredentialRequirement() *CredentialRequirement {
	return &CredentialRequirement{BaseConstraint: NewHardConstraint(CredentialRequirementName)}
}

func (cr *CredentialRequirement) Propagate(rc *RunContext, c Candidate) Decision {
	person, ok := rc.Roster.Person(c.Person)
	if !ok {
		return Forbid("unknown person %q", c.Person)
	}
	template, ok := rc.Roster.Template(c.Template)
	if !ok {
		return Forbid("unknown template %q", c.Template)
	}
	if !person.HasCredential(template.RequiredCredential) {
		return Forbid("missing credential %q", template.RequiredCredential)
	}
	if template.Activity == v1.ActivityProcedures && person.IsFaculty() && !person.PerformsProcedures {
		return Forbid("faculty does not perform procedures")
	}
	return Allow()
}

func (cr *CredentialRequirement) Score(*RunContext, Candidate) float64 { return 0 }

// SupervisionRatio forbids configurations that would violate a template's
// resident-to-faculty ratio: adding the resident must leave enough eligible,
// available faculty to meet ceil(residents / maxRatio).
type SupervisionRatio struct {
	BaseConstraint
}

func NewSupervisionRatio() *SupervisionRatio {
	return &SupervisionRatio{BaseConstraint: NewHardConstraint(SupervisionRatioName)}
}

func (s *SupervisionRatio) Propagate(rc *RunContext, c Candidate) Decision {
	person, ok := rc.Roster.Person(c.Person)
	if !ok || !person.IsResident() {
		return Allow()
	}
	template, ok := rc.Roster.Template(c.Template)
	if !ok || !template.SupervisionRequired {
		return Allow()
	}
	residents := 1 + lo.CountBy(rc.Roster.OnTemplate(c.Block, c.Template), func(a v1.Assignment) bool {
		p, ok := rc.Roster.Person(a.Person)
		return ok && p.IsResident()
	})
	needed := ceilDiv(residents, template.MaxResidentsPerFaculty)
	if available := len(EligibleSupervisors(rc, c.Block, template)); available < needed {
		return Forbid("%d residents need %d faculty, %d available", residents, needed, available)
	}
	return Allow()
}

func (s *SupervisionRatio) Score(*RunContext, Candidate) float64 { return 0 }

// EligibleSupervisors returns the faculty who can supervise the template on
// the block: supervision-eligible, credentialed, not absent, and either free
// or already supervising this very template on the block.
func EligibleSupervisors(rc *RunContext, block v1.BlockKey, template *v1.RotationTemplate) []*v1.Person {
	day := rc.Day(block)
	return lo.Filter(rc.Roster.Faculty(), func(f *v1.Person, _ int) bool {
		if !f.SupervisionEligible || !f.HasCredential(template.RequiredCredential) {
			return false
		}
		if rc.Roster.AbsentOn(f.ID, day) {
			return false
		}
		if a, ok := rc.Roster.AssignmentAt(f.ID, block); ok {
			return a.Template == template.ID && a.Role == v1.RoleSupervising
		}
		return true
	})
}

// ResidentInpatientHeadcount keeps required inpatient coverage intact: while
// an inpatient service running on a block is below its required headcount, no
// resident is released to a solver-managed template on that block.
type ResidentInpatientHeadcount struct {
	BaseConstraint
}

func NewResidentInpatientHeadcount() *ResidentInpatientHeadcount {
	return &ResidentInpatientHeadcount{BaseConstraint: NewHardConstraint(ResidentInpatientHeadcountName)}
}

func (r *ResidentInpatientHeadcount) Propagate(rc *RunContext, c Candidate) Decision {
	person, ok := rc.Roster.Person(c.Person)
	if !ok || !person.IsResident() {
		return Allow()
	}
	for _, t := range rc.Roster.Templates() {
		if t.Activity != v1.ActivityInpatient || t.RequiredHeadcount == 0 {
			continue
		}
		// The service runs on this block iff somebody is preserved on it.
		staffed := len(rc.Roster.OnTemplate(c.Block, t.ID))
		if staffed > 0 && staffed < t.RequiredHeadcount {
			return Forbid("inpatient service %q below required headcount (%d/%d)", t.ID, staffed, t.RequiredHeadcount)
		}
	}
	return Allow()
}

func (r *ResidentInpatientHeadcount) Score(*RunContext, Candidate) float64 { return 0 }

// MaxConsecutiveCallCap caps consecutive on-call half-days per person.
type MaxConsecutiveCallCap struct {
	BaseConstraint
}

func NewMaxConsecutiveCallCap() *MaxConsecutiveCallCap {
	return &MaxConsecutiveCallCap{BaseConstraint: NewHardConstraint(MaxConsecutiveCallCapName)}
}

func (m *MaxConsecutiveCallCap) Propagate(rc *RunContext, c Candidate) Decision {
	template, ok := rc.Roster.Template(c.Template)
	if !ok || !template.IsOnCall() {
		return Allow()
	}
	cap := rc.Config.MaxConsecutiveCallHalfDays
	if cap <= 0 {
		return Allow()
	}
	blocks := rc.Roster.Blocks()
	idx := lo.IndexOf(lo.Map(blocks, func(b v1.Block, _ int) v1.BlockKey { return b.Key() }), c.Block)
	if idx < 0 {
		return Allow()
	}
	run := 1
	for i := idx - 1; i >= 0 && m.onCall(rc, c.Person, blocks[i].Key()); i-- {
		run++
	}
	for i := idx + 1; i < len(blocks) && m.onCall(rc, c.Person, blocks[i].Key()); i++ {
		run++
	}
	if run > cap {
		return Forbid("%d consecutive on-call half-days exceeds cap %d", run, cap)
	}
	return Allow()
}

func (m *MaxConsecutiveCallCap) onCall(rc *RunContext, person v1.PersonID, block v1.BlockKey) bool {
	a, ok := rc.Roster.AssignmentAt(person, block)
	if !ok {
		return false
	}
	t, ok := rc.Roster.Template(a.Template)
	return ok && t.IsOnCall()
}

func (m *MaxConsecutiveCallCap) Score(*RunContext, Candidate) float64 { return 0 }

// OneDayOffIn7 enforces the ACGME 1-in-7 rule during propagation: a resident
// must keep at least one assignment-free day in every rolling 7-day window.
// The averaged-over-4-weeks accounting is the validator's; propagation uses
// the strict rolling form so the solver never manufactures a violation.
type OneDayOffIn7 struct {
	BaseConstraint
}

func NewOneDayOffIn7() *OneDayOffIn7 {
	return &OneDayOffIn7{BaseConstraint: NewHardConstraint(OneDayOffIn7Name)}
}

func (o *OneDayOffIn7) Propagate(rc *RunContext, c Candidate) Decision {
	person, ok := rc.Roster.Person(c.Person)
	if !ok || !person.IsResident() {
		return Allow()
	}
	blocks := rc.Roster.Blocks()
	if len(blocks) == 0 {
		return Allow()
	}
	first, last := blocks[0].Date.UTC(), blocks[len(blocks)-1].Date.UTC()
	day := rc.Day(c.Block)
	// Examine every 7-day window containing the candidate day that fits
	// entirely inside the block universe.
	for offset := -6; offset <= 0; offset++ {
		start := day.AddDate(0, 0, offset)
		end := start.AddDate(0, 0, 6)
		if start.Before(first) || end.After(last) {
			continue
		}
		free := 0
		for d := 0; d < 7; d++ {
			cur := start.AddDate(0, 0, d)
			if cur.Equal(day) {
				continue // would be occupied by the candidate
			}
			if !o.occupied(rc, c.Person, cur) {
				free++
			}
		}
		if free == 0 {
			return Forbid("no day off in window starting %s", start.Format(v1.DateLayout))
		}
	}
	return Allow()
}

func (o *OneDayOffIn7) occupied(rc *RunContext, person v1.PersonID, day time.Time) bool {
	key := day.Format(v1.DateLayout)
	for _, half := range []v1.HalfDay{v1.AM, v1.PM} {
		if _, ok := rc.Roster.AssignmentAt(person, v1.BlockKey{Day: key, Half: half}); ok {
			return true
		}
	}
	return false
}

func (o *OneDayOffIn7) Score(*RunContext, Candidate) float64 { return 0 }

func ceilDiv(a, b int) int {
	if b <= 0 {
		return math.MaxInt32
	}
	return (a + b - 1) / b
}
