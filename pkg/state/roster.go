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

// Package state holds the per-run roster snapshot. A Roster owns every entity
// borrowed from the repository for the duration of one scheduling run and
// exposes the lookup indices the constraint library and backends resolve ids
// against. Rosters are built once per run and discarded; there is no
// process-wide state.
package state

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"k8s.io/apimachinery/pkg/util/sets"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
)

// Roster is an immutable snapshot of people, templates, blocks, absences and
// preserved assignments, plus the mutable working set of assignments the
// solver has committed so far. Preserved assignments are never modified; the
// solver mutates only the working set.
type Roster struct {
	people    map[v1.PersonID]*v1.Person
	templates map[v1.TemplateID]*v1.RotationTemplate
	blocks    []v1.Block
	blockByKey map[v1.BlockKey]v1.Block
	absences  map[v1.PersonID][]v1.Absence

	// preserved maps slots occupied before the run started. Includes
	// assignments outside the window so rotation history stays visible.
	preserved map[v1.SlotKey]v1.Assignment
	// working maps slots the solver has filled during this run.
	working map[v1.SlotKey]v1.Assignment
}

// NewRoster indexes a scheduling context's entities. Constructing a roster
// whose preserved assignments collide on (person, block) fails with an
// invariant violation.
func NewRoster(people []v1.Person, templates []v1.RotationTemplate, blocks []v1.Block, preserved []v1.Assignment, absences []v1.Absence) (*Roster, error) {
	r := &Roster{
		people:     map[v1.PersonID]*v1.Person{},
		templates:  map[v1.TemplateID]*v1.RotationTemplate{},
		blockByKey: map[v1.BlockKey]v1.Block{},
		absences:   map[v1.PersonID][]v1.Absence{},
		preserved:  map[v1.SlotKey]v1.Assignment{},
		working:    map[v1.SlotKey]v1.Assignment{},
	}
	for i := range people {
		p := people[i]
		if _, ok := r.people[p.ID]; ok {
			return nil, v1.NewInvariantViolation("duplicate person %q", p.ID)
		}
		r.people[p.ID] = &p
	}
	for i := range templates {
		t := templates[i]
		if _, ok := r.templates[t.ID]; ok {
			return nil, v1.NewInvariantViolation("duplicate rotation template %q", t.ID)
		}
		r.templates[t.ID] = &t
	}
	r.blocks = append(r.blocks, blocks...)
	sort.Slice(r.blocks, func(i, j int) bool { return r.blocks[i].Before(r.blocks[j]) })
	for _, b := range r.blocks {
		r.blockByKey[b.Key()] = b
	}
	for _, a := range preserved {
		if _, ok := r.preserved[a.Slot()]; ok {
			return nil, v1.NewInvariantViolation("assignments collide on slot (%s, %s)", a.Person, a.Block)
		}
		r.preserved[a.Slot()] = a
	}
	for _, ab := range absences {
		r.absences[ab.Person] = append(r.absences[ab.Person], ab)
	}
	return r, nil
}

func (r *Roster) Person(id v1.PersonID) (*v1.Person, bool) {
	p, ok := r.people[id]
	return p, ok
}

func (r *Roster) Template(id v1.TemplateID) (*v1.RotationTemplate, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// People returns every person ordered by id. Id order is the tie-break order
// for all deterministic iteration in the core.
func (r *Roster) People() []*v1.Person {
	out := lo.Values(r.people)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Roster) Residents() []*v1.Person {
	return lo.Filter(r.People(), func(p *v1.Person, _ int) bool { return p.IsResident() })
}

func (r *Roster) Faculty() []*v1.Person {
	return lo.Filter(r.People(), func(p *v1.Person, _ int) bool { return p.IsFaculty() })
}

// Templates returns every template ordered by descending priority, then id.
func (r *Roster) Templates() []*v1.RotationTemplate {
	out := lo.Values(r.templates)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SolverManagedTemplates returns the templates the pipeline may create
// assignments for, in priority order.
func (r *Roster) SolverManagedTemplates() []*v1.RotationTemplate {
	return lo.Filter(r.Templates(), func(t *v1.RotationTemplate, _ int) bool { return t.Activity.SolverManaged() })
}

// Blocks returns the block universe in chronological order.
func (r *Roster) Blocks() []v1.Block { return r.blocks }

func (r *Roster) Block(key v1.BlockKey) (v1.Block, bool) {
	b, ok := r.blockByKey[key]
	return b, ok
}

// PreservedAt returns the immutable assignment occupying (person, block), if
// any.
func (r *Roster) PreservedAt(person v1.PersonID, block v1.BlockKey) (v1.Assignment, bool) {
	a, ok := r.preserved[v1.SlotKey{Person: person, Block: block}]
	return a, ok
}

// AssignmentAt returns the assignment occupying (person, block) from either
// the preserved or the working set.
func (r *Roster) AssignmentAt(person v1.PersonID, block v1.BlockKey) (v1.Assignment, bool) {
	if a, ok := r.PreservedAt(person, block); ok {
		return a, true
	}
	a, ok := r.working[v1.SlotKey{Person: person, Block: block}]
	return a, ok
}

// ActiveRotation classifies the rotation a person is on for a block, resolved
// through the preserved map. A resident preserved on an inpatient block is on
// that rotation regardless of any rotation-template membership the caller may
// hold elsewhere.
func (r *Roster) ActiveRotation(person v1.PersonID, block v1.BlockKey) (v1.TemplateID, bool) {
	if a, ok := r.PreservedAt(person, block); ok {
		return a.Template, true
	}
	return "", false
}

// Commit adds a solver-produced assignment to the working set. Committing to
// an occupied slot fails with an invariant violation.
func (r *Roster) Commit(a v1.Assignment) error {
	if existing, ok := r.AssignmentAt(a.Person, a.Block); ok {
		return v1.NewInvariantViolation("slot (%s, %s) already holds %s", a.Person, a.Block, existing.Template)
	}
	r.working[a.Slot()] = a
	return nil
}

// Uncommit removes a previously committed working assignment. Preserved
// assignments cannot be uncommitted.
func (r *Roster) Uncommit(a v1.Assignment) {
	delete(r.working, a.Slot())
}

// Working returns the solver-produced assignments ordered by block, person.
func (r *Roster) Working() []v1.Assignment {
	return sortAssignments(lo.Values(r.working))
}

// Preserved returns the immutable assignments ordered by block, person.
func (r *Roster) Preserved() []v1.Assignment {
	return sortAssignments(lo.Values(r.preserved))
}

// All returns the union of preserved and working assignments ordered by
// block, person.
func (r *Roster) All() []v1.Assignment {
	return sortAssignments(append(lo.Values(r.preserved), lo.Values(r.working)...))
}

// AssignmentsAt returns every assignment on a block, ordered by person id.
func (r *Roster) AssignmentsAt(block v1.BlockKey) []v1.Assignment {
	var out []v1.Assignment
	for _, a := range r.preserved {
		if a.Block == block {
			out = append(out, a)
		}
	}
	for _, a := range r.working {
		if a.Block == block {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Person < out[j].Person })
	return out
}

// OnTemplate returns the assignments on (block, template), ordered by person.
func (r *Roster) OnTemplate(block v1.BlockKey, template v1.TemplateID) []v1.Assignment {
	return lo.Filter(r.AssignmentsAt(block), func(a v1.Assignment, _ int) bool { return a.Template == template })
}

// AssignmentsFor returns a person's assignments in chronological order.
func (r *Roster) AssignmentsFor(person v1.PersonID) []v1.Assignment {
	var out []v1.Assignment
	for _, a := range r.preserved {
		if a.Person == person {
			out = append(out, a)
		}
	}
	for _, a := range r.working {
		if a.Person == person {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Block.Before(out[j].Block) })
	return out
}

// AssignedCount returns how many assignments a person holds.
func (r *Roster) AssignedCount(person v1.PersonID) int {
	return len(r.AssignmentsFor(person))
}

func (r *Roster) AbsencesFor(person v1.PersonID) []v1.Absence {
	return r.absences[person]
}

// AbsentOn reports whether the person is absent on the given calendar day.
func (r *Roster) AbsentOn(person v1.PersonID, day time.Time) bool {
	return lo.SomeBy(r.absences[person], func(a v1.Absence) bool { return a.Covers(day) })
}

// FMITWeekStarts returns the Mondays of every week in which the person holds a
// preserved FMIT assignment, as canonical day strings.
func (r *Roster) FMITWeekStarts(person v1.PersonID) sets.Set[string] {
	weeks := sets.New[string]()
	for _, a := range r.preserved {
		if a.Person != person {
			continue
		}
		t, ok := r.templates[a.Template]
		if !ok || !t.IsFMIT() {
			continue
		}
		day, err := time.Parse(v1.DateLayout, a.Block.Day)
		if err != nil {
			continue
		}
		weeks.Insert(weekStart(day).Format(v1.DateLayout))
	}
	return weeks
}

// RecentTemplates returns the distinct templates the person served on within
// lookback days strictly before the given day.
func (r *Roster) RecentTemplates(person v1.PersonID, before time.Time, lookback int) sets.Set[v1.TemplateID] {
	out := sets.New[v1.TemplateID]()
	start := before.AddDate(0, 0, -lookback)
	for _, a := range r.AssignmentsFor(person) {
		day, err := time.Parse(v1.DateLayout, a.Block.Day)
		if err != nil {
			continue
		}
		if day.Before(before) && !day.Before(start) {
			out.Insert(a.Template)
		}
	}
	return out
}

// DeepCopy clones the roster for what-if simulation. Entity snapshots are
// shared (they are immutable); assignment maps are copied.
func (r *Roster) DeepCopy() *Roster {
	return &Roster{
		people:     r.people,
		templates:  r.templates,
		blocks:     r.blocks,
		blockByKey: r.blockByKey,
		absences:   r.absences,
		preserved:  lo.Assign(map[v1.SlotKey]v1.Assignment{}, r.preserved),
		working:    lo.Assign(map[v1.SlotKey]v1.Assignment{}, r.working),
	}
}

// WithoutPeople clones the roster with every assignment held by the given
// people removed, for contingency simulation. The underlying preserved inputs
// are untouched.
func (r *Roster) WithoutPeople(people ...v1.PersonID) *Roster {
	gone := sets.New(people...)
	out := r.DeepCopy()
	for slot := range out.preserved {
		if gone.Has(slot.Person) {
			delete(out.preserved, slot)
		}
	}
	for slot := range out.working {
		if gone.Has(slot.Person) {
			delete(out.working, slot)
		}
	}
	return out
}

func sortAssignments(in []v1.Assignment) []v1.Assignment {
	sort.Slice(in, func(i, j int) bool {
		if in[i].Block != in[j].Block {
			return in[i].Block.Before(in[j].Block)
		}
		if in[i].Person != in[j].Person {
			return in[i].Person < in[j].Person
		}
		return in[i].Template < in[j].Template
	})
	return in
}

// weekStart returns the Monday of the week containing day.
func weekStart(day time.Time) time.Time {
	d := day.UTC()
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekStart exposes the Monday anchor used by post-FMIT rules and the
// validator's week boundaries.
func WeekStart(day time.Time) time.Time { return weekStart(day) }
