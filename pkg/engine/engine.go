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

// Package engine is the facade of the scheduling core: the in-process library
// boundary callers invoke. It owns nothing between calls; every operation is
// synchronous, builds per-run state, and discards it.
package engine

import (
	"context"

	"k8s.io/utils/clock"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/events"
	"github.com/eudaimonia/rostercore/pkg/resilience"
	"github.com/eudaimonia/rostercore/pkg/scheduler"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
	"github.com/eudaimonia/rostercore/pkg/storage"
	"github.com/eudaimonia/rostercore/pkg/validation"
)

// Engine exposes the core's operations. Construct one per process; it is
// stateless between calls and safe for concurrent runs over disjoint
// (window, people) sets.
type Engine struct {
	clock      clock.Clock
	recorder   events.Recorder
	repository storage.Repository
	satSolver  scheduler.SatSolver
}

// Option mutates engine construction.
type Option func(*Engine)

// WithRecorder injects the event sink. Default discards.
func WithRecorder(recorder events.Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// WithRepository injects the collaborator the engine loads entities through.
// Only needed by BuildContext.
func WithRepository(repository storage.Repository) Option {
	return func(e *Engine) { e.repository = storage.NewRetryingRepository(repository) }
}

// WithSatSolver injects the external constraint-programming engine for the
// cp-sat backend.
func WithSatSolver(solver scheduler.SatSolver) Option {
	return func(e *Engine) { e.satSolver = solver }
}

func NewEngine(clk clock.Clock, opts ...Option) *Engine {
	e := &Engine{
		clock:     clk,
		recorder:  events.NopRecorder{},
		satSolver: scheduler.UnavailableSatSolver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateSchedule runs the solver pipeline over the context with the given
// constraint manager. Operational outcomes are statuses on the result; errors
// are reserved for invariant violations and bubbled repository failures. The
// engine persists nothing: the caller writes the result, and deletes prior
// solver-managed assignments for the window only after a successful solve.
func (e *Engine) GenerateSchedule(ctx context.Context, manager *scheduling.Manager, sctx v1.SchedulingContext) (v1.SchedulingResult, error) {
	if manager == nil {
		manager = scheduling.NewDefaultManager()
	}
	s := scheduler.NewScheduler(e.clock, e.recorder, scheduler.WithSatSolver(e.satSolver))
	return s.Solve(ctx, manager, sctx)
}

// ValidateSchedule runs the ACGME compliance rules over the union of
// preserved and produced assignments.
func (e *Engine) ValidateSchedule(ctx context.Context, input validation.Input) (validation.Report, error) {
	return validation.NewValidator().Validate(ctx, input)
}

// AnalyzeResilience runs the requested resilience analyses.
func (e *Engine) AnalyzeResilience(ctx context.Context, input resilience.Input) (resilience.Report, error) {
	return resilience.NewAnalyzer(scheduling.NewDefaultManager()).Analyze(ctx, input)
}

// DefaultConstraintManager returns the standard constraint set: hard rules
// plus FairnessByPGY. Resilience constraints are registered but disabled.
func (e *Engine) DefaultConstraintManager() *scheduling.Manager {
	return scheduling.NewDefaultManager()
}

// ResilienceAwareConstraintManager returns the standard set with the five
// resilience soft constraints enabled.
func (e *Engine) ResilienceAwareConstraintManager() *scheduling.Manager {
	return scheduling.NewResilienceAwareManager()
}

// BuildContext loads a scheduling context through the repository. Repository
// failures are propagated unchanged; the engine has mutated nothing.
func (e *Engine) BuildContext(ctx context.Context, window v1.Window, config v1.SchedulerConfiguration) (v1.SchedulingContext, error) {
	if err := window.Validate(); err != nil {
		return v1.SchedulingContext{}, err
	}
	if e.repository == nil {
		return v1.SchedulingContext{}, v1.NewInvariantViolation("engine has no repository configured")
	}
	people, err := e.repository.ListPeople(ctx, storage.PersonFilter{})
	if err != nil {
		return v1.SchedulingContext{}, err
	}
	blocks, err := e.repository.ListBlocks(ctx, window)
	if err != nil {
		return v1.SchedulingContext{}, err
	}
	templates, err := e.repository.ListTemplates(ctx, storage.TemplateFilter{})
	if err != nil {
		return v1.SchedulingContext{}, err
	}
	assignments, err := e.repository.ListAssignments(ctx, window)
	if err != nil {
		return v1.SchedulingContext{}, err
	}
	return v1.SchedulingContext{
		Window:        window,
		People:        people,
		Blocks:        blocks,
		Templates:     templates,
		Existing:      assignments,
		Configuration: config,
	}, nil
}
