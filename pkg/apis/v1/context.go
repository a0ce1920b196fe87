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

package v1

import (
	"fmt"
	"time"

	"github.com/imdario/mergo"
	"github.com/mitchellh/hashstructure/v2"
	"go.uber.org/multierr"
)

// Backend names are contracts: callers and tests pattern-match on them.
const (
	BackendGreedy       = "greedy"
	BackendMinConflicts = "min-conflicts"
	BackendCPSAT        = "cp-sat"
)

// SchedulerConfiguration is the value-typed configuration of one scheduling
// run. Zero fields are filled in by defaults; nothing is read from the
// environment.
type SchedulerConfiguration struct {
	// Algorithm selects the solver backend.
	Algorithm string `json:"algorithm,omitempty"`
	// Timeout is the wall-clock budget for the backend solve.
	Timeout time.Duration `json:"timeout,omitempty"`
	// Seed makes the randomized backends reproducible.
	Seed int64 `json:"seed,omitempty"`
	// MinConflictsSteps bounds the repair loop of the min-conflicts backend.
	MinConflictsSteps int `json:"minConflictsSteps,omitempty"`
	// MaxConsecutiveCallHalfDays caps consecutive on-call half-days.
	MaxConsecutiveCallHalfDays int `json:"maxConsecutiveCallHalfDays,omitempty"`
	// MaxConsecutiveDutyDays caps consecutive on-duty days for the validator.
	MaxConsecutiveDutyDays int `json:"maxConsecutiveDutyDays,omitempty"`
	// Weights overrides soft constraint weights by constraint name.
	Weights map[string]float64 `json:"weights,omitempty"`
}

// DefaultConfiguration returns the configuration a run uses when the caller
// leaves a field zero.
func DefaultConfiguration() SchedulerConfiguration {
	return SchedulerConfiguration{
		Algorithm:                  BackendGreedy,
		Timeout:                    30 * time.Second,
		Seed:                       1,
		MinConflictsSteps:          2000,
		MaxConsecutiveCallHalfDays: 6,
		MaxConsecutiveDutyDays:     6,
	}
}

// WithDefaults merges the default configuration underneath the receiver and
// returns the result. The receiver is not mutated.
func (c SchedulerConfiguration) WithDefaults() (SchedulerConfiguration, error) {
	merged := c
	if err := mergo.Merge(&merged, DefaultConfiguration()); err != nil {
		return SchedulerConfiguration{}, fmt.Errorf("merging configuration defaults, %w", err)
	}
	return merged, nil
}

func (c SchedulerConfiguration) Validate() error {
	switch c.Algorithm {
	case BackendGreedy, BackendMinConflicts, BackendCPSAT:
	default:
		return NewInvariantViolation("unknown algorithm %q", c.Algorithm)
	}
	if c.Timeout <= 0 {
		return NewInvariantViolation("timeout %s must be positive", c.Timeout)
	}
	return nil
}

// SchedulingContext is the complete input of one scheduling run: the window,
// the enabled people and templates, the block universe, pre-existing
// assignments, absences, and configuration. The pipeline treats every entity
// as an immutable snapshot.
type SchedulingContext struct {
	Window        Window                 `json:"window"`
	People        []Person               `json:"people"`
	Templates     []RotationTemplate     `json:"templates"`
	Blocks        []Block                `json:"blocks"`
	Existing      []Assignment           `json:"existing"`
	Absences      []Absence              `json:"absences"`
	Configuration SchedulerConfiguration `json:"configuration"`
}

// Validate checks every entity in the context. It aggregates all failures so
// a caller can fix its inputs in one pass.
func (c *SchedulingContext) Validate() error {
	errs := c.Window.Validate()
	for i := range c.People {
		errs = multierr.Append(errs, c.People[i].Validate())
	}
	for i := range c.Templates {
		errs = multierr.Append(errs, c.Templates[i].Validate())
	}
	seen := map[BlockKey]struct{}{}
	for _, b := range c.Blocks {
		errs = multierr.Append(errs, b.Validate())
		if _, ok := seen[b.Key()]; ok {
			errs = multierr.Append(errs, NewInvariantViolation("duplicate block %s", b.Key()))
		}
		seen[b.Key()] = struct{}{}
	}
	for _, a := range c.Existing {
		errs = multierr.Append(errs, a.Validate())
	}
	for _, a := range c.Absences {
		errs = multierr.Append(errs, a.Validate())
	}
	return errs
}

// Fingerprint hashes the identity-bearing parts of the context. The same
// context always hashes to the same value; fields tagged hash:"ignore" do not
// participate. Recorded in diagnostics for reproducibility audits.
func (c *SchedulingContext) Fingerprint() (uint64, error) {
	return hashstructure.Hash(c, hashstructure.FormatV2, nil)
}

// ResultStatus is the operational outcome of a run. Statuses are results, not
// errors.
type ResultStatus string

const (
	StatusSuccess    ResultStatus = "Success"
	StatusPartial    ResultStatus = "Partial"
	StatusInfeasible ResultStatus = "Infeasible"
	StatusTimeout    ResultStatus = "Timeout"
	StatusCancelled  ResultStatus = "Cancelled"
)

// DroppedCandidate records one candidate slot removed by hard-constraint
// propagation, for diagnostics.
type DroppedCandidate struct {
	Person     PersonID   `json:"person"`
	Block      BlockKey   `json:"block"`
	Template   TemplateID `json:"template"`
	Constraint string     `json:"constraint"`
	Reason     string     `json:"reason"`
}

// SolverDiagnostics carries the non-assignment outputs of a run.
type SolverDiagnostics struct {
	// BackendRequested is the backend the caller asked for.
	BackendRequested string `json:"backendRequested"`
	// BackendUsed is the backend that produced the result. Differs from
	// BackendRequested after a fallback.
	BackendUsed string `json:"backendUsed"`
	// BackendFailureReason is set when the requested backend raised and the
	// pipeline fell back to greedy.
	BackendFailureReason string `json:"backendFailureReason,omitempty"`
	// OffendingConstraint names the hard constraint preserved assignments
	// already violate when the run returns Infeasible without solving.
	OffendingConstraint string `json:"offendingConstraint,omitempty"`
	// ContextFingerprint is the hash of the scheduling context.
	ContextFingerprint uint64 `json:"contextFingerprint"`
	// Cost is the weighted soft-constraint cost of the returned assignments.
	Cost float64 `json:"cost"`
	// Iterations counts backend solve iterations.
	Iterations int `json:"iterations"`
	// UncoveredSlots lists (block, template) pairs left below required
	// headcount, in chronological order.
	UncoveredSlots []UncoveredSlot `json:"uncoveredSlots,omitempty"`
	// Elapsed is the wall-clock duration of the run per the injected clock.
	Elapsed time.Duration `json:"elapsed"`
}

// UncoveredSlot is a (block, template) pair the solver could not staff to its
// required headcount.
type UncoveredSlot struct {
	Block    BlockKey   `json:"block"`
	Template TemplateID `json:"template"`
	Missing  int        `json:"missing"`
}

// SchedulingResult is the complete output of one run. Either the full set of
// new assignments is present or none are.
type SchedulingResult struct {
	Status      ResultStatus       `json:"status"`
	Assignments []Assignment       `json:"assignments"`
	Dropped     []DroppedCandidate `json:"dropped,omitempty"`
	Diagnostics SolverDiagnostics  `json:"diagnostics"`
}
