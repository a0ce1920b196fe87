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

// Package scheduling contains the pluggable constraint library: the Constraint
// capability set, the Manager that owns an ordered collection of constraints,
// and the concrete hard and soft rules the core ships.
package scheduling

import (
	"fmt"
	"math"
	"time"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/state"
)

// Candidate is one prospective assignment the solver is considering: a
// (person, block, template) triple resolved against the run's roster.
type Candidate struct {
	Person   v1.PersonID
	Block    v1.BlockKey
	Template v1.TemplateID
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s@%s/%s", c.Person, c.Block, c.Template)
}

// Assignment materializes the candidate with the given role.
func (c Candidate) Assignment(role v1.Role) v1.Assignment {
	return v1.Assignment{Person: c.Person, Block: c.Block, Template: c.Template, Role: role}
}

// Decision is the outcome of hard-constraint propagation over one candidate.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision { return Decision{Allowed: true} }

func Forbid(format string, args ...interface{}) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// RunContext bundles the roster snapshot and configuration a constraint
// evaluates against. The context is owned by one run and never shared.
type RunContext struct {
	Roster *state.Roster
	Config v1.SchedulerConfiguration
}

// Day parses a block key's calendar day. Keys built from validated blocks
// always parse.
func (rc *RunContext) Day(block v1.BlockKey) time.Time {
	day, _ := time.Parse(v1.DateLayout, block.Day)
	return day
}

// Constraint is the capability set every rule implements. Weight of +Inf
// denotes a hard constraint: Propagate prunes, Score is zero. Soft
// constraints allow everything in Propagate and report a nonnegative score
// where lower is better.
type Constraint interface {
	// Name is a stable identifier; callers and telemetry pattern-match on it.
	Name() string
	// Weight is the nonnegative multiplier of Score. math.Inf(1) marks a hard
	// constraint.
	Weight() float64
	// Enabled reports whether the manager evaluates this constraint.
	Enabled() bool
	// SetEnabled toggles the constraint.
	SetEnabled(bool)
	// Propagate decides whether the candidate is permissible.
	Propagate(rc *RunContext, c Candidate) Decision
	// Score evaluates the candidate against the partial assignment in the run
	// context. Lower is better.
	Score(rc *RunContext, c Candidate) float64
}

// BaseConstraint carries the bookkeeping shared by every rule.
type BaseConstraint struct {
	name    string
	weight  float64
	enabled bool
}

func NewBaseConstraint(name string, weight float64, enabled bool) BaseConstraint {
	return BaseConstraint{name: name, weight: weight, enabled: enabled}
}

// NewHardConstraint builds the bookkeeping for an always-on hard rule.
func NewHardConstraint(name string) BaseConstraint {
	return NewBaseConstraint(name, math.Inf(1), true)
}

func (b *BaseConstraint) Name() string       { return b.name }
func (b *BaseConstraint) Weight() float64    { return b.weight }
func (b *BaseConstraint) Enabled() bool      { return b.enabled }
func (b *BaseConstraint) SetEnabled(on bool) { b.enabled = on }

// SetWeight overrides the weight of a soft constraint. Hard constraints keep
// their infinite weight.
func (b *BaseConstraint) SetWeight(weight float64) {
	if !b.Hard() && weight >= 0 {
		b.weight = weight
	}
}

// Hard reports whether the constraint forbids rather than scores.
func (b *BaseConstraint) Hard() bool { return math.IsInf(b.weight, 1) }
