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

package resilience

import (
	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/state"
)

// hotThreshold is the queueing-theory utilization above which a block loses
// its surge capacity.
const hotThreshold = 0.8

// analyzeUtilization computes per-block and per-template utilization.
// Utilization of one (block, template) is assigned over required headcount,
// falling back to max headcount when no floor is set.
func analyzeUtilization(roster *state.Roster) *UtilizationReport {
	report := &UtilizationReport{Series: map[v1.TemplateID][]UtilizationPoint{}}
	var sum float64
	var samples int
	for _, block := range roster.Blocks() {
		key := block.Key()
		var blockAssigned, blockCapacity float64
		for _, template := range roster.Templates() {
			capacity := template.RequiredHeadcount
			if capacity == 0 {
				capacity = template.MaxHeadcount
			}
			if capacity == 0 {
				continue
			}
			assigned := len(roster.OnTemplate(key, template.ID))
			if assigned == 0 && template.RequiredHeadcount == 0 {
				// Idle optional template; not part of this block's demand.
				continue
			}
			value := float64(assigned) / float64(capacity)
			report.Series[template.ID] = append(report.Series[template.ID], UtilizationPoint{Block: key, Value: value})
			blockAssigned += float64(assigned)
			blockCapacity += float64(capacity)
		}
		if blockCapacity == 0 {
			continue
		}
		utilization := blockAssigned / blockCapacity
		sum += utilization
		samples++
		if utilization > hotThreshold {
			report.HotBlocks = append(report.HotBlocks, key)
		}
	}
	if samples > 0 {
		report.Mean = sum / float64(samples)
	}
	report.DefenseLevel = defenseLevelFor(report.Mean)
	return report
}
