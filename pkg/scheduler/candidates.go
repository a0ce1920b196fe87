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
	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
	"github.com/eudaimonia/rostercore/pkg/state"
)

// generateCandidates emits the raw candidate universe: one slot per eligible
// (person, block, template) where the template is solver-managed. Ordering is
// deterministic: blocks in time order, templates in priority order, people in
// id order. No rotation-assignment filtering happens here.
//
// Primary slots on supervision-required templates go to residents; faculty
// join those blocks through the supervision stage. Templates without a
// supervision requirement take anyone.
func generateCandidates(roster *state.Roster) []scheduling.Candidate {
	var out []scheduling.Candidate
	templates := roster.SolverManagedTemplates()
	people := roster.People()
	for _, block := range roster.Blocks() {
		for _, template := range templates {
			for _, person := range people {
				if template.SupervisionRequired && !person.IsResident() {
					continue
				}
				out = append(out, scheduling.Candidate{
					Person:   person.ID,
					Block:    block.Key(),
					Template: template.ID,
				})
			}
		}
	}
	return out
}

// filterPreserved removes every candidate whose (person, block) slot is
// occupied by a preserved assignment. The preserved map must be fully built
// before this runs: a resident whose rotation membership is unknown but who
// holds a preserved inpatient assignment for the block is classified through
// the preserved map and therefore filtered here. Reversing the order would
// drop resident outpatient slots incorrectly.
func filterPreserved(roster *state.Roster, candidates []scheduling.Candidate) []scheduling.Candidate {
	var out []scheduling.Candidate
	for _, c := range candidates {
		if _, occupied := roster.ActiveRotation(c.Person, c.Block); occupied {
			continue
		}
		out = append(out, c)
	}
	return out
}

// fillTarget is the headcount the pipeline staffs a template to on one block.
func fillTarget(t *v1.RotationTemplate) int {
	if t.RequiredHeadcount > 0 {
		return t.RequiredHeadcount
	}
	return t.MaxHeadcount
}
