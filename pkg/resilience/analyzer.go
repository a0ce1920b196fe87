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

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/metrics"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
	"github.com/eudaimonia/rostercore/pkg/state"
)

// Input is everything a resilience analysis reads. The analyzer never
// mutates the schedule; simulations run on copies.
type Input struct {
	People      []v1.Person
	Blocks      []v1.Block
	Templates   []v1.RotationTemplate
	Assignments []v1.Assignment
	Window      v1.Window
	Mode        Mode
	// PairCap bounds the number of N-2 pairs evaluated. Only read in ModeN2.
	PairCap int
	// IncludeCascade adds the burnout-cascade estimate to any mode.
	IncludeCascade bool
}

// Analyzer runs the resilience sub-analyses over a materialized schedule.
type Analyzer struct {
	manager *scheduling.Manager
}

// NewAnalyzer uses the given constraint manager for backfill feasibility, in
// propagation-only mode. A nil manager gets the default set.
func NewAnalyzer(manager *scheduling.Manager) *Analyzer {
	if manager == nil {
		manager = scheduling.NewDefaultManager()
	}
	return &Analyzer{manager: manager}
}

// Analyze produces the report for the requested mode. Utilization always
// runs; N-1 runs for ModeN1 and ModeN2; N-2 additionally for ModeN2.
func (a *Analyzer) Analyze(ctx context.Context, input Input) (Report, error) {
	roster, err := state.NewRoster(input.People, input.Templates, input.Blocks, input.Assignments, nil)
	if err != nil {
		return Report{}, err
	}
	config, err := v1.SchedulerConfiguration{}.WithDefaults()
	if err != nil {
		return Report{}, err
	}

	report := Report{Utilization: analyzeUtilization(roster)}
	if input.Mode == ModeN1 || input.Mode == ModeN2 {
		c := newContingency(roster, a.manager, config)
		report.N1 = c.analyzeN1(ctx)
		metrics.SinglePointsOfFailure.Set(float64(len(report.N1.SPOFs)))
		if input.Mode == ModeN2 {
			report.N2 = c.analyzeN2(ctx, report.N1, input.PairCap)
		}
	}
	if input.IncludeCascade {
		report.Cascade = analyzeCascade(roster)
	}
	return report, nil
}
