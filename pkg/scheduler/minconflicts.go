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
	"math/rand"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
)

// MinConflictsBackend starts from the greedy seed and iteratively repairs:
// pick a random assignment contributing soft cost, reassign it to the value
// that minimizes the weighted score, stop on zero conflicts or the step
// budget. All randomness flows from the caller-provided seed.
type MinConflictsBackend struct {
	clock    clock.Clock
	progress rate.Sometimes
}

func NewMinConflictsBackend(clk clock.Clock) *MinConflictsBackend {
	return &MinConflictsBackend{
		clock:    clk,
		progress: rate.Sometimes{Interval: time.Second},
	}
}

func (m *MinConflictsBackend) Name() string { return v1.BackendMinConflicts }

func (m *MinConflictsBackend) Solve(ctx context.Context, rc *scheduling.RunContext, manager *scheduling.Manager, candidates []scheduling.Candidate, deadline time.Time) (Solution, error) {
	log := logr.FromContextOrDiscard(ctx).WithName(m.Name())

	seedBackend := NewGreedyBackend(m.clock)
	solution, err := seedBackend.Solve(ctx, rc, manager, candidates, deadline)
	if err != nil || solution.Cancelled || solution.TimedOut {
		return solution, err
	}

	// Alternatives per (person, block), for repair moves.
	byPersonBlock := map[v1.SlotKey][]scheduling.Candidate{}
	for _, c := range candidates {
		key := v1.SlotKey{Person: c.Person, Block: c.Block}
		byPersonBlock[key] = append(byPersonBlock[key], c)
	}

	rng := rand.New(rand.NewSource(rc.Config.Seed))
	working := solution.Assignments
	for step := 0; step < rc.Config.MinConflictsSteps; step++ {
		select {
		case <-ctx.Done():
			solution.Cancelled = true
			return solution, nil
		default:
		}
		if !deadline.IsZero() && m.clock.Now().After(deadline) {
			solution.TimedOut = true
			return solution, nil
		}
		conflicts := m.conflicting(rc, manager, working)
		if len(conflicts) == 0 {
			break
		}
		solution.Iterations++
		idx := conflicts[rng.Intn(len(conflicts))]
		current := working[idx]
		improved, changed := m.repair(rc, manager, byPersonBlock, current)
		if changed {
			working[idx] = improved
		}
		m.progress.Do(func() {
			log.V(1).Info("repairing", "step", step, "conflicts", len(conflicts))
		})
	}

	solution.Assignments = working
	solution.Cost = manager.RosterCost(rc)
	return solution, nil
}

// conflicting returns the indices of assignments with positive weighted soft
// cost, in a deterministic order.
func (m *MinConflictsBackend) conflicting(rc *scheduling.RunContext, manager *scheduling.Manager, working []v1.Assignment) []int {
	var out []int
	for i, a := range working {
		c := scheduling.Candidate{Person: a.Person, Block: a.Block, Template: a.Template}
		rc.Roster.Uncommit(a)
		cost := manager.Cost(rc, c)
		_ = rc.Roster.Commit(a)
		if cost > 0 {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// repair moves one assignment to the allowed alternative with the lowest
// weighted score, keeping the current value when nothing improves on it.
func (m *MinConflictsBackend) repair(rc *scheduling.RunContext, manager *scheduling.Manager, byPersonBlock map[v1.SlotKey][]scheduling.Candidate, current v1.Assignment) (v1.Assignment, bool) {
	rc.Roster.Uncommit(current)

	bestCandidate := scheduling.Candidate{Person: current.Person, Block: current.Block, Template: current.Template}
	bestCost := manager.Cost(rc, bestCandidate)
	changed := false
	for _, alternative := range byPersonBlock[current.Slot()] {
		if alternative.Template == current.Template {
			continue
		}
		if decision, _ := manager.Propagate(rc, alternative); !decision.Allowed {
			continue
		}
		if cost := manager.Cost(rc, alternative); cost < bestCost {
			bestCandidate, bestCost, changed = alternative, cost, true
		}
	}

	repaired := bestCandidate.Assignment(current.Role)
	repaired.Notes = "backend:" + m.Name()
	if !changed {
		repaired = current
	}
	_ = rc.Roster.Commit(repaired)
	return repaired, changed
}

var _ Backend = (*MinConflictsBackend)(nil)
