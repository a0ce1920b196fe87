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
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Stable constraint names. These are contracts for telemetry and for the
// manager's registry.
const (
	UniqueAssignmentPerBlockName  = "UniqueAssignmentPerBlock"
	AbsenceRespectName            = "AbsenceRespect"
	CredentialRequirementName     = "CredentialRequirement"
	SupervisionRatioName          = "SupervisionRatio"
	ResidentInpatientHeadcountName = "ResidentInpatientHeadcount"
	PostFMITRecoveryName          = "PostFMITRecovery"
	PostFMITSundayBlockingName    = "PostFMITSundayBlocking"
	MaxConsecutiveCallCapName     = "MaxConsecutiveCallCap"
	OneDayOffIn7Name              = "OneDayOffIn7"
	HubProtectionName             = "HubProtection"
	UtilizationBufferName         = "UtilizationBuffer"
	ZoneBoundaryName              = "ZoneBoundary"
	PreferenceTrailName           = "PreferenceTrail"
	N1VulnerabilityName           = "N1Vulnerability"
	FairnessByPGYName             = "FairnessByPGY"
)

// Default soft-constraint weights.
const (
	HubProtectionWeight     = 15.0
	UtilizationBufferWeight = 20.0
	ZoneBoundaryWeight      = 12.0
	PreferenceTrailWeight   = 8.0
	N1VulnerabilityWeight   = 25.0
	FairnessByPGYWeight     = 10.0
)

// Drop records why hard propagation removed one candidate.
type Drop struct {
	Candidate  Candidate
	Constraint string
	Reason     string
}

// Manager owns an ordered set of constraints keyed by name. The order is
// insertion order; evaluation is deterministic.
type Manager struct {
	order []Constraint
	index map[string]Constraint
}

func NewManager(constraints ...Constraint) *Manager {
	m := &Manager{index: map[string]Constraint{}}
	for _, c := range constraints {
		m.Add(c)
	}
	return m
}

// Add registers a constraint. Adding a name twice replaces the previous
// constraint in place, keeping its position.
func (m *Manager) Add(c Constraint) {
	if _, ok := m.index[c.Name()]; ok {
		m.order = lo.Map(m.order, func(existing Constraint, _ int) Constraint {
			return lo.Ternary(existing.Name() == c.Name(), c, existing)
		})
	} else {
		m.order = append(m.order, c)
	}
	m.index[c.Name()] = c
}

// Remove deletes a constraint by name.
func (m *Manager) Remove(name string) {
	if _, ok := m.index[name]; !ok {
		return
	}
	delete(m.index, name)
	m.order = lo.Reject(m.order, func(c Constraint, _ int) bool { return c.Name() == name })
}

// Get returns the constraint registered under name.
func (m *Manager) Get(name string) (Constraint, bool) {
	c, ok := m.index[name]
	return c, ok
}

// Enable turns a registered constraint on.
func (m *Manager) Enable(name string) error {
	return m.setEnabled(name, true)
}

// Disable turns a registered constraint off.
func (m *Manager) Disable(name string) error {
	return m.setEnabled(name, false)
}

func (m *Manager) setEnabled(name string, on bool) error {
	c, ok := m.index[name]
	if !ok {
		return fmt.Errorf("no constraint registered under %q", name)
	}
	c.SetEnabled(on)
	return nil
}

// Constraints returns the ordered collection.
func (m *Manager) Constraints() []Constraint {
	return append([]Constraint(nil), m.order...)
}

// Names returns the ordered constraint names.
func (m *Manager) Names() []string {
	return lo.Map(m.order, func(c Constraint, _ int) string { return c.Name() })
}

// Propagate runs every enabled constraint over one candidate and returns the
// first forbidding decision, if any.
func (m *Manager) Propagate(rc *RunContext, c Candidate) (Decision, string) {
	for _, constraint := range m.order {
		if !constraint.Enabled() {
			continue
		}
		if decision := constraint.Propagate(rc, c); !decision.Allowed {
			return decision, constraint.Name()
		}
	}
	return Allow(), ""
}

// Filter drops every candidate forbidden by an enabled constraint, recording
// drop reasons for diagnostics. Allowed candidates keep their input order.
func (m *Manager) Filter(rc *RunContext, candidates []Candidate) ([]Candidate, []Drop) {
	var allowed []Candidate
	var drops []Drop
	for _, candidate := range candidates {
		if decision, name := m.Propagate(rc, candidate); !decision.Allowed {
			drops = append(drops, Drop{Candidate: candidate, Constraint: name, Reason: decision.Reason})
			continue
		}
		allowed = append(allowed, candidate)
	}
	return allowed, drops
}

// Cost returns the composite weighted score of one candidate against the
// partial assignment: sum of weight_i * score_i over enabled soft
// constraints. Hard constraints contribute nothing.
func (m *Manager) Cost(rc *RunContext, c Candidate) float64 {
	var total float64
	for _, constraint := range m.order {
		if !constraint.Enabled() || math.IsInf(constraint.Weight(), 1) {
			continue
		}
		total += constraint.Weight() * constraint.Score(rc, c)
	}
	return total
}

// RosterCost sums the candidate cost of every working assignment in the run
// context, the composite objective the backends minimize.
func (m *Manager) RosterCost(rc *RunContext) float64 {
	var total float64
	for _, a := range rc.Roster.Working() {
		total += m.Cost(rc, Candidate{Person: a.Person, Block: a.Block, Template: a.Template})
	}
	return total
}

// NewDefaultManager builds the standard constraint set: every hard constraint
// enabled plus FairnessByPGY. The resilience soft constraints are registered
// but disabled; callers opt in via NewResilienceAwareManager.
func NewDefaultManager() *Manager {
	return newManager(false)
}

// NewResilienceAwareManager builds the default set with the five resilience
// soft constraints enabled.
func NewResilienceAwareManager() *Manager {
	return newManager(true)
}

func newManager(resilience bool) *Manager {
	return NewManager(
		NewUniqueAssignmentPerBlock(),
		NewAbsenceRespect(),
		NewCredentialRequirement(),
		NewSupervisionRatio(),
		NewResidentInpatientHeadcount(),
		NewPostFMITRecovery(),
		NewPostFMITSundayBlocking(),
		NewMaxConsecutiveCallCap(),
		NewOneDayOffIn7(),
		NewHubProtection(resilience),
		NewUtilizationBuffer(resilience),
		NewZoneBoundary(resilience),
		NewPreferenceTrail(resilience),
		NewN1Vulnerability(resilience),
		NewFairnessByPGY(),
	)
}
