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
	"context"
	"time"

	"k8s.io/utils/clock"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
)

// GreedyBackend is the deterministic sweep: blocks in time order, templates
// in priority order, and for each unfilled slot the eligible candidate with
// the lowest weighted score. No backtracking. It is the fallback for every
// other backend and the seed for min-conflicts.
type GreedyBackend struct {
	clock clock.Clock
}

func NewGreedyBackend(clk clock.Clock) *GreedyBackend {
	return &GreedyBackend{clock: clk}
}

func (g *GreedyBackend) Name() string { return v1.BackendGreedy }

func (g *GreedyBackend) Solve(ctx context.Context, rc *scheduling.RunContext, manager *scheduling.Manager, candidates []scheduling.Candidate, deadline time.Time) (Solution, error) {
	// Index candidates by (block, template) preserving person-id order.
	bySlot := map[slotKey][]scheduling.Candidate{}
	for _, c := range candidates {
		key := slotKey{Block: c.Block, Template: c.Template}
		bySlot[key] = append(bySlot[key], c)
	}

	var solution Solution
	for _, block := range rc.Roster.Blocks() {
		select {
		case <-ctx.Done():
			solution.Cancelled = true
			return solution, nil
		default:
		}
		if !deadline.IsZero() && g.clock.Now().After(deadline) {
			solution.TimedOut = true
			return solution, nil
		}
		for _, template := range rc.Roster.SolverManagedTemplates() {
			key := slotKey{Block: block.Key(), Template: template.ID}
			target := fillTarget(template)
			for len(rc.Roster.OnTemplate(key.Block, key.Template)) < target {
				solution.Iterations++
				best, ok := g.pick(rc, manager, bySlot[key])
				if !ok {
					break
				}
				assignment := best.Assignment(v1.RolePrimary)
				assignment.Notes = "backend:" + g.Name()
				solution.Cost += manager.Cost(rc, best)
				if err := rc.Roster.Commit(assignment); err != nil {
					return Solution{}, err
				}
				solution.Assignments = append(solution.Assignments, assignment)
			}
		}
	}
	return solution, nil
}

// pick returns the allowed candidate with the lowest weighted score. Ties
// break by person id, then template id: candidate order is already stable, so
// a strict less-than keeps the first of equals.
func (g *GreedyBackend) pick(rc *scheduling.RunContext, manager *scheduling.Manager, candidates []scheduling.Candidate) (scheduling.Candidate, bool) {
	var best scheduling.Candidate
	bestCost := 0.0
	found := false
	for _, c := range candidates {
		if decision, _ := manager.Propagate(rc, c); !decision.Allowed {
			continue
		}
		cost := manager.Cost(rc, c)
		if !found || cost < bestCost {
			best, bestCost, found = c, cost, true
		}
	}
	return best, found
}

type slotKey struct {
	Block    v1.BlockKey
	Template v1.TemplateID
}

var _ Backend = (*GreedyBackend)(nil)
