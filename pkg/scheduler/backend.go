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

// Package scheduler contains the solver pipeline: candidate generation,
// preserved-assignment filtering, the three solver backends, faculty
// supervision assignment, and result materialization.
package scheduler

import (
	"context"
	"time"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
)

// Solution is what a backend hands back to the pipeline. Backends are trusted
// but not blindly: the pipeline re-checks every assignment against preserved
// slots before emitting it.
type Solution struct {
	Assignments []v1.Assignment
	// Cost is the weighted soft-constraint cost of the selection.
	Cost float64
	// Iterations counts solve iterations, for diagnostics.
	Iterations int
	// Infeasible is set when the backend proved no solution exists under the
	// hard constraints.
	Infeasible bool
	// TimedOut is set when the wall-clock budget expired before a feasible
	// solution was found.
	TimedOut bool
	// Cancelled is set when the caller's cancellation fired. Cancelled is not
	// Infeasible.
	Cancelled bool
}

// Backend selects assignments from the filtered candidate set. A backend must
// respect the deadline, produce deterministic output for the same input and
// seed, and poll the context between iterations.
type Backend interface {
	Name() string
	Solve(ctx context.Context, rc *scheduling.RunContext, manager *scheduling.Manager, candidates []scheduling.Candidate, deadline time.Time) (Solution, error)
}
