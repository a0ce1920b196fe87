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
	"context"
	"fmt"
	"sort"

	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"k8s.io/apimachinery/pkg/util/sets"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
	"github.com/eudaimonia/rostercore/pkg/state"
)

// contingency simulates personnel removal and asks whether every block the
// removed people covered can be backfilled without a new hard-constraint
// violation. Feasibility probes run the constraint manager in
// propagation-only mode; probe results are memoized per analysis, keyed by
// the removed set and the probed (block, template). An N-2 probe removes a
// pair, so it never reuses an entry written by an N-1 probe.
type contingency struct {
	roster  *state.Roster
	manager *scheduling.Manager
	config  v1.SchedulerConfiguration
	probes  *gocache.Cache
}

func newContingency(roster *state.Roster, manager *scheduling.Manager, config v1.SchedulerConfiguration) *contingency {
	return &contingency{
		roster:  roster,
		manager: manager,
		config:  config,
		probes:  gocache.New(gocache.NoExpiration, 0),
	}
}

// analyzeN1 scores every person. Cancellation is honored at the granularity
// of one person.
func (c *contingency) analyzeN1(ctx context.Context) *ContingencyReport {
	report := &ContingencyReport{}
	for _, person := range c.roster.People() {
		if ctx.Err() != nil {
			break
		}
		covered := c.roster.AssignmentsFor(person.ID)
		if len(covered) == 0 {
			continue
		}
		score := c.scoreRemoval(sets.New(person.ID), covered)
		score.Person = person.ID
		report.Scores = append(report.Scores, score)
		if score.Score == 0 {
			report.SPOFs = append(report.SPOFs, person.ID)
		}
	}
	return report
}

// analyzeN2 evaluates unordered pairs drawn from the top-K most critical
// people per N-1, bounded by pairCap.
func (c *contingency) analyzeN2(ctx context.Context, n1 *ContingencyReport, pairCap int) []PairScore {
	if pairCap <= 0 || n1 == nil {
		return nil
	}
	// Most critical first: lowest N-1 score, ties by person id.
	ranked := append([]PersonScore(nil), n1.Scores...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].Person < ranked[j].Person
	})

	var out []PairScore
	for i := 0; i < len(ranked) && len(out) < pairCap; i++ {
		for j := i + 1; j < len(ranked) && len(out) < pairCap; j++ {
			if ctx.Err() != nil {
				return out
			}
			a, b := ranked[i].Person, ranked[j].Person
			covered := append(c.roster.AssignmentsFor(a), c.roster.AssignmentsFor(b)...)
			score := c.scoreRemoval(sets.New(a, b), covered)
			out = append(out, PairScore{
				A:           lo.Ternary(a < b, a, b),
				B:           lo.Ternary(a < b, b, a),
				Covered:     score.Covered,
				Uncoverable: score.Uncoverable,
				Score:       score.Score,
			})
		}
	}
	return out
}

// scoreRemoval checks backfillability of every covered block with the given
// people gone. Score is max(0, 1 - uncoverable/covered).
func (c *contingency) scoreRemoval(removed sets.Set[v1.PersonID], covered []v1.Assignment) PersonScore {
	simulated := c.roster.WithoutPeople(removed.UnsortedList()...)
	rc := &scheduling.RunContext{Roster: simulated, Config: c.config}

	score := PersonScore{Covered: len(covered)}
	for _, assignment := range covered {
		if !c.backfillable(rc, removed, assignment) {
			score.Uncoverable++
			score.UncoverableBlocks = append(score.UncoverableBlocks, assignment.Block)
		}
	}
	if score.Covered > 0 {
		score.Score = 1 - float64(score.Uncoverable)/float64(score.Covered)
		if score.Score < 0 {
			score.Score = 0
		}
	}
	return score
}

// backfillable reports whether any remaining eligible, available person can
// take the assignment's (block, template) without a hard-constraint
// violation.
func (c *contingency) backfillable(rc *scheduling.RunContext, removed sets.Set[v1.PersonID], assignment v1.Assignment) bool {
	key := probeKey(removed, assignment)
	if hit, ok := c.probes.Get(key); ok {
		return hit.(bool)
	}
	feasible := false
	for _, person := range rc.Roster.People() {
		if removed.Has(person.ID) {
			continue
		}
		candidate := scheduling.Candidate{Person: person.ID, Block: assignment.Block, Template: assignment.Template}
		if decision, _ := c.manager.Propagate(rc, candidate); decision.Allowed {
			feasible = true
			break
		}
	}
	c.probes.Set(key, feasible, gocache.NoExpiration)
	return feasible
}

func probeKey(removed sets.Set[v1.PersonID], assignment v1.Assignment) string {
	ids := removed.UnsortedList()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return fmt.Sprintf("%v|%s|%s", ids, assignment.Block, assignment.Template)
}
