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
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"k8s.io/utils/clock"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/events"
	"github.com/eudaimonia/rostercore/pkg/metrics"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
	"github.com/eudaimonia/rostercore/pkg/state"
	"github.com/eudaimonia/rostercore/pkg/utils/pretty"
)

// Scheduler runs the solver pipeline for one scheduling context at a time. A
// scheduler holds no per-run state; every run builds its own roster and run
// context and discards them.
type Scheduler struct {
	clock     clock.Clock
	recorder  events.Recorder
	satSolver SatSolver
}

// Option mutates scheduler construction.
type Option func(*Scheduler)

// WithSatSolver injects the external constraint-programming engine used by
// the cp-sat backend.
func WithSatSolver(solver SatSolver) Option {
	return func(s *Scheduler) { s.satSolver = solver }
}

func NewScheduler(clk clock.Clock, recorder events.Recorder, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:     clk,
		recorder:  recorder,
		satSolver: UnavailableSatSolver{},
	}
	if s.recorder == nil {
		s.recorder = events.NopRecorder{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) backend(name string) Backend {
	switch name {
	case v1.BackendMinConflicts:
		return NewMinConflictsBackend(s.clock)
	case v1.BackendCPSAT:
		return NewCPSATBackend(s.satSolver)
	default:
		return NewGreedyBackend(s.clock)
	}
}

// Solve runs the pipeline: candidate loading, preserved-assignment filtering,
// hard-constraint propagation, backend invocation with greedy fallback,
// conflict re-check, supervision staffing, and result materialization.
//
// Operational outcomes (infeasibility, timeout, cancellation, partial
// coverage, fallback) are statuses on the result. Errors are reserved for
// invariant violations in the inputs.
func (s *Scheduler) Solve(ctx context.Context, manager *scheduling.Manager, sctx v1.SchedulingContext) (v1.SchedulingResult, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("scheduler")
	started := s.clock.Now()

	config, err := sctx.Configuration.WithDefaults()
	if err != nil {
		return v1.SchedulingResult{}, err
	}
	sctx.Configuration = config
	if err := sctx.Validate(); err != nil {
		return v1.SchedulingResult{}, err
	}
	if err := config.Validate(); err != nil {
		return v1.SchedulingResult{}, err
	}
	applyWeightOverrides(manager, config.Weights)

	fingerprint, err := sctx.Fingerprint()
	if err != nil {
		return v1.SchedulingResult{}, fmt.Errorf("fingerprinting context, %w", err)
	}
	diagnostics := v1.SolverDiagnostics{
		BackendRequested:   config.Algorithm,
		BackendUsed:        config.Algorithm,
		ContextFingerprint: fingerprint,
	}

	// The preserved-assignment map must exist before any candidate filtering:
	// a person's rotation for a block is classified through this map.
	roster, err := state.NewRoster(sctx.People, sctx.Templates, sctx.Blocks, sctx.Existing, sctx.Absences)
	if err != nil {
		return v1.SchedulingResult{}, err
	}

	if constraint, reason := s.preservedConsistency(roster, config); constraint != "" {
		log.Info("preserved assignments already violate a hard constraint", "constraint", constraint, "reason", reason)
		diagnostics.OffendingConstraint = constraint
		diagnostics.Elapsed = s.clock.Since(started)
		return v1.SchedulingResult{Status: v1.StatusInfeasible, Diagnostics: diagnostics}, nil
	}

	raw := generateCandidates(roster)
	unfiltered := filterPreserved(roster, raw)

	filterContext := &scheduling.RunContext{Roster: roster, Config: config}
	candidates, drops := manager.Filter(filterContext, unfiltered)
	dropped := make([]v1.DroppedCandidate, 0, len(drops))
	for _, d := range drops {
		metrics.CandidatesDropped.WithLabelValues(d.Constraint).Inc()
		s.recorder.Publish(events.CandidateDropped(d.Candidate.Person, d.Candidate.Block, d.Constraint, d.Reason))
		dropped = append(dropped, v1.DroppedCandidate{
			Person:     d.Candidate.Person,
			Block:      d.Candidate.Block,
			Template:   d.Candidate.Template,
			Constraint: d.Constraint,
			Reason:     d.Reason,
		})
	}
	log.V(1).Info("candidates prepared", "raw", len(raw), "filtered", len(candidates), "dropped", pretty.Slice(dropped, 5))

	solution, err := s.runBackend(ctx, s.backend(config.Algorithm), roster, config, manager, candidates)
	if err != nil {
		// Backend failure triggers the greedy fallback; the failure is a
		// diagnostic, never a pipeline error.
		s.recorder.Publish(events.BackendFellBack(config.Algorithm, err))
		metrics.BackendFallbacks.WithLabelValues(config.Algorithm).Inc()
		diagnostics.BackendFailureReason = err.Error()
		diagnostics.BackendUsed = v1.BackendGreedy
		solution, err = s.runBackend(ctx, NewGreedyBackend(s.clock), roster, config, manager, candidates)
		if err != nil {
			return v1.SchedulingResult{}, err
		}
	}
	diagnostics.Cost = solution.Cost
	diagnostics.Iterations = solution.Iterations

	switch {
	case solution.Infeasible:
		diagnostics.Elapsed = s.clock.Since(started)
		result := v1.SchedulingResult{Status: v1.StatusInfeasible, Dropped: dropped, Diagnostics: diagnostics}
		s.observe(result)
		return result, nil
	case solution.Cancelled:
		diagnostics.Elapsed = s.clock.Since(started)
		result := v1.SchedulingResult{Status: v1.StatusCancelled, Dropped: dropped, Diagnostics: diagnostics}
		s.observe(result)
		return result, nil
	case solution.TimedOut:
		diagnostics.Elapsed = s.clock.Since(started)
		result := v1.SchedulingResult{Status: v1.StatusTimeout, Dropped: dropped, Diagnostics: diagnostics}
		s.observe(result)
		return result, nil
	}

	// Conflict re-check: backends are trusted but not blindly. Any produced
	// assignment colliding with a preserved slot is dropped and logged.
	final := &scheduling.RunContext{Roster: roster, Config: config}
	for _, a := range solution.Assignments {
		if _, occupied := roster.PreservedAt(a.Person, a.Block); occupied {
			log.Info("dropping produced assignment colliding with preserved slot", "assignment", a.String())
			continue
		}
		if err := roster.Commit(a); err != nil {
			log.Info("dropping produced assignment colliding with produced slot", "assignment", a.String())
		}
	}
	assignSupervision(final, manager, s.recorder)

	diagnostics.UncoveredSlots = uncoveredSlots(roster)
	diagnostics.Elapsed = s.clock.Since(started)
	result := v1.SchedulingResult{
		Status:      lo.Ternary(len(diagnostics.UncoveredSlots) == 0, v1.StatusSuccess, v1.StatusPartial),
		Assignments: roster.Working(),
		Dropped:     dropped,
		Diagnostics: diagnostics,
	}
	metrics.AssignmentsProduced.WithLabelValues(diagnostics.BackendUsed).Add(float64(len(result.Assignments)))
	s.observe(result)
	return result, nil
}

// runBackend executes one backend over a scratch copy of the roster so a
// failing backend cannot leave partial commits behind. Panics are contained
// and surface as backend failures.
func (s *Scheduler) runBackend(ctx context.Context, backend Backend, roster *state.Roster, config v1.SchedulerConfiguration, manager *scheduling.Manager, candidates []scheduling.Candidate) (solution Solution, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("backend %s panicked, %v", backend.Name(), recovered)
		}
	}()
	scratch := &scheduling.RunContext{Roster: roster.DeepCopy(), Config: config}
	deadline := s.clock.Now().Add(config.Timeout)
	solution, err = backend.Solve(ctx, scratch, manager, candidates, deadline)
	if err != nil {
		return Solution{}, fmt.Errorf("backend %s, %w", backend.Name(), err)
	}
	return solution, nil
}

// preservedConsistency checks that the immutable inputs do not already break
// a hard constraint the solver could never repair. Returns the offending
// constraint name.
func (s *Scheduler) preservedConsistency(roster *state.Roster, config v1.SchedulerConfiguration) (string, string) {
	for _, a := range roster.Preserved() {
		day, err := time.Parse(v1.DateLayout, a.Block.Day)
		if err != nil {
			continue
		}
		if roster.AbsentOn(a.Person, day) {
			return scheduling.AbsenceRespectName, fmt.Sprintf("%s is preserved on %s during an absence", a.Person, a.Block)
		}
		person, ok := roster.Person(a.Person)
		if !ok {
			continue
		}
		template, ok := roster.Template(a.Template)
		if !ok {
			continue
		}
		if !person.HasCredential(template.RequiredCredential) {
			return scheduling.CredentialRequirementName, fmt.Sprintf("%s lacks credential %q required by preserved %s", a.Person, template.RequiredCredential, a.Block)
		}
	}
	return "", ""
}

// uncoveredSlots reports every (block, template) below its required
// headcount, in chronological order.
func uncoveredSlots(roster *state.Roster) []v1.UncoveredSlot {
	var out []v1.UncoveredSlot
	for _, block := range roster.Blocks() {
		for _, template := range roster.SolverManagedTemplates() {
			if template.RequiredHeadcount == 0 {
				continue
			}
			assigned := len(roster.OnTemplate(block.Key(), template.ID))
			if missing := template.RequiredHeadcount - assigned; missing > 0 {
				out = append(out, v1.UncoveredSlot{Block: block.Key(), Template: template.ID, Missing: missing})
			}
		}
	}
	return out
}

func applyWeightOverrides(manager *scheduling.Manager, weights map[string]float64) {
	for name, weight := range weights {
		if c, ok := manager.Get(name); ok {
			if setter, ok := c.(interface{ SetWeight(float64) }); ok {
				setter.SetWeight(weight)
			}
		}
	}
}

func (s *Scheduler) observe(result v1.SchedulingResult) {
	metrics.SchedulingDuration.
		WithLabelValues(result.Diagnostics.BackendUsed, string(result.Status)).
		Observe(result.Diagnostics.Elapsed.Seconds())
}
