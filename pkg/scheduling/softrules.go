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
	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
)

// utilizationHighWatermark is the queueing-theory threshold above which block
// utilization is penalized.
const utilizationHighWatermark = 0.8

// preferenceLookbackDays is how far back PreferenceTrail looks for rotation
// continuity.
const preferenceLookbackDays = 14

// HubProtection penalizes assignments that pile more load onto people who
// already carry the most, a centrality proxy that keeps the schedule from
// growing single points of failure.
type HubProtection struct {
	BaseConstraint
}

func NewHubProtection(enabled bool) *HubProtection {
	return &HubProtection{BaseConstraint: NewBaseConstraint(HubProtectionName, HubProtectionWeight, enabled)}
}

func (h *HubProtection) Propagate(*RunContext, Candidate) Decision { return Allow() }

func (h *HubProtection) Score(rc *RunContext, c Candidate) float64 {
	max := lo.Max(lo.Map(rc.Roster.People(), func(p *v1.Person, _ int) int { return rc.Roster.AssignedCount(p.ID) }))
	if max == 0 {
		return 0
	}
	return float64(rc.Roster.AssignedCount(c.Person)) / float64(max)
}

// UtilizationBuffer penalizes filling blocks past the 80% utilization
// watermark, preserving surge capacity.
type UtilizationBuffer struct {
	BaseConstraint
}

func NewUtilizationBuffer(enabled bool) *UtilizationBuffer {
	return &UtilizationBuffer{BaseConstraint: NewBaseConstraint(UtilizationBufferName, UtilizationBufferWeight, enabled)}
}

func (u *UtilizationBuffer) Propagate(*RunContext, Candidate) Decision { return Allow() }

func (u *UtilizationBuffer) Score(rc *RunContext, c Candidate) float64 {
	template, ok := rc.Roster.Template(c.Template)
	if !ok || template.MaxHeadcount == 0 {
		return 0
	}
	util := float64(len(rc.Roster.OnTemplate(c.Block, c.Template))+1) / float64(template.MaxHeadcount)
	if util <= utilizationHighWatermark {
		return 0
	}
	return (util - utilizationHighWatermark) / (1 - utilizationHighWatermark)
}

// ZoneBoundary penalizes same-day transitions between operational zones.
type ZoneBoundary struct {
	BaseConstraint
}

func NewZoneBoundary(enabled bool) *ZoneBoundary {
	return &ZoneBoundary{BaseConstraint: NewBaseConstraint(ZoneBoundaryName, ZoneBoundaryWeight, enabled)}
}

func (z *ZoneBoundary) Propagate(*RunContext, Candidate) Decision { return Allow() }

func (z *ZoneBoundary) Score(rc *RunContext, c Candidate) float64 {
	template, ok := rc.Roster.Template(c.Template)
	if !ok || template.Zone == "" {
		return 0
	}
	otherHalf := lo.Ternary(c.Block.Half == v1.AM, v1.PM, v1.AM)
	other, ok := rc.Roster.AssignmentAt(c.Person, v1.BlockKey{Day: c.Block.Day, Half: otherHalf})
	if !ok {
		return 0
	}
	otherTemplate, ok := rc.Roster.Template(other.Template)
	if !ok || otherTemplate.Zone == "" || otherTemplate.Zone == template.Zone {
		return 0
	}
	return 1
}

// PreferenceTrail rewards continuity with a person's recent rotation history.
type PreferenceTrail struct {
	BaseConstraint
}

func NewPreferenceTrail(enabled bool) *PreferenceTrail {
	return &PreferenceTrail{BaseConstraint: NewBaseConstraint(PreferenceTrailName, PreferenceTrailWeight, enabled)}
}

func (p *PreferenceTrail) Propagate(*RunContext, Candidate) Decision { return Allow() }

func (p *PreferenceTrail) Score(rc *RunContext, c Candidate) float64 {
	if rc.Roster.RecentTemplates(c.Person, rc.Day(c.Block), preferenceLookbackDays).Has(c.Template) {
		return 0
	}
	return 1
}

// N1Vulnerability penalizes concentrating a template's coverage on people who
// are nearly its only eligible holders, which is what degrades the schedule's
// N-1 robustness.
type N1Vulnerability struct {
	BaseConstraint
}

func NewN1Vulnerability(enabled bool) *N1Vulnerability {
	return &N1Vulnerability{BaseConstraint: NewBaseConstraint(N1VulnerabilityName, N1VulnerabilityWeight, enabled)}
}

func (n *N1Vulnerability) Propagate(*RunContext, Candidate) Decision { return Allow() }

func (n *N1Vulnerability) Score(rc *RunContext, c Candidate) float64 {
	template, ok := rc.Roster.Template(c.Template)
	if !ok || template.RequiredCredential == "" {
		return 0
	}
	holders := lo.CountBy(rc.Roster.People(), func(p *v1.Person) bool {
		return p.HasCredential(template.RequiredCredential)
	})
	if holders == 0 {
		return 1
	}
	return 1 / float64(holders)
}

// FairnessByPGY penalizes load variance across peers of the same training
// year.
type FairnessByPGY struct {
	BaseConstraint
}

func NewFairnessByPGY() *FairnessByPGY {
	return &FairnessByPGY{BaseConstraint: NewBaseConstraint(FairnessByPGYName, FairnessByPGYWeight, true)}
}

func (f *FairnessByPGY) Propagate(*RunContext, Candidate) Decision { return Allow() }

func (f *FairnessByPGY) Score(rc *RunContext, c Candidate) float64 {
	person, ok := rc.Roster.Person(c.Person)
	if !ok || !person.IsResident() {
		return 0
	}
	cohort := lo.Filter(rc.Roster.Residents(), func(p *v1.Person, _ int) bool { return p.PGY == person.PGY })
	if len(cohort) <= 1 {
		return 0
	}
	loads := lo.Map(cohort, func(p *v1.Person, _ int) int { return rc.Roster.AssignedCount(p.ID) })
	mean := float64(lo.Sum(loads)) / float64(len(loads))
	excess := float64(rc.Roster.AssignedCount(c.Person)) + 1 - mean
	if excess <= 0 {
		return 0
	}
	return excess / (mean + 1)
}
