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

package scheduler

import (
	"sort"

	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/events"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
)

// assignSupervision staffs faculty onto every supervision-required template
// block that holds residents. Greedy: blocks in time order; for each
// understaffed template, the eligible faculty with the lowest current block
// count, ties broken by id. Faculty preserved elsewhere (FMIT, Hilo, Okinawa
// and the like) are unavailable because their slot is occupied.
func assignSupervision(rc *scheduling.RunContext, manager *scheduling.Manager, recorder events.Recorder) []v1.Assignment {
	var produced []v1.Assignment
	for _, block := range rc.Roster.Blocks() {
		key := block.Key()
		for _, template := range rc.Roster.Templates() {
			if !template.SupervisionRequired {
				continue
			}
			residents := lo.CountBy(rc.Roster.OnTemplate(key, template.ID), func(a v1.Assignment) bool {
				p, ok := rc.Roster.Person(a.Person)
				return ok && p.IsResident()
			})
			if residents == 0 {
				continue
			}
			needed := ceilDiv(residents, template.MaxResidentsPerFaculty)
			supervising := lo.CountBy(rc.Roster.OnTemplate(key, template.ID), func(a v1.Assignment) bool {
				return a.Role == v1.RoleSupervising
			})
			for supervising < needed {
				faculty := pickSupervisor(rc, manager, key, template)
				if faculty == nil {
					recorder.Publish(events.SupervisionGap(key, template.ID, needed-supervising))
					break
				}
				assignment := v1.Assignment{
					Person:   faculty.ID,
					Block:    key,
					Template: template.ID,
					Role:     v1.RoleSupervising,
					Notes:    "supervision",
				}
				if err := rc.Roster.Commit(assignment); err != nil {
					break
				}
				produced = append(produced, assignment)
				supervising++
			}
		}
	}
	return produced
}

// pickSupervisor returns the eligible, free faculty with the lowest current
// block count. Hard constraints propagate over the supervising candidate, so
// post-FMIT recovery days stay blocked here too.
func pickSupervisor(rc *scheduling.RunContext, manager *scheduling.Manager, block v1.BlockKey, template *v1.RotationTemplate) *v1.Person {
	free := lo.Filter(scheduling.EligibleSupervisors(rc, block, template), func(f *v1.Person, _ int) bool {
		if _, occupied := rc.Roster.AssignmentAt(f.ID, block); occupied {
			return false
		}
		decision, _ := manager.Propagate(rc, scheduling.Candidate{Person: f.ID, Block: block, Template: template.ID})
		return decision.Allowed
	})
	if len(free) == 0 {
		return nil
	}
	sort.Slice(free, func(i, j int) bool {
		li, lj := rc.Roster.AssignedCount(free[i].ID), rc.Roster.AssignedCount(free[j].ID)
		if li != lj {
			return li < lj
		}
		return free[i].ID < free[j].ID
	})
	return free[0]
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
