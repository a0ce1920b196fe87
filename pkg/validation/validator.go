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

package validation

import (
	"context"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/metrics"
	"github.com/eudaimonia/rostercore/pkg/state"
)

// HoursPerBlock is the duty-hour weight of one outpatient or procedures AM
// or PM block. Educational, absence, off and recovery blocks count zero.
const HoursPerBlock = 4.0

// InpatientHoursPerBlock weighs an inpatient half-day, whose duty stretch
// runs well past the clinic session it replaces.
const InpatientHoursPerBlock = 10.0

// WeeklyHourLimit is the ACGME 80-hour ceiling, averaged over four weeks.
const WeeklyHourLimit = 80.0

// Input is everything a validation pass reads. The validator never mutates
// its input.
type Input struct {
	People      []v1.Person
	Blocks      []v1.Block
	Templates   []v1.RotationTemplate
	Assignments []v1.Assignment
	Window      v1.Window
	// MaxConsecutiveDutyDays caps consecutive on-duty days. Zero uses the
	// configuration default.
	MaxConsecutiveDutyDays int
}

// Validator runs the ACGME rules over a materialized schedule: the union of
// preserved and produced assignments.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// Validate emits one violation per offending rolling window: the validator
// never stops at the first finding per person. Cancellation is honored at the
// granularity of one resident or one block; a cancelled pass returns the
// findings collected so far.
func (v *Validator) Validate(ctx context.Context, input Input) (Report, error) {
	cap := input.MaxConsecutiveDutyDays
	if cap <= 0 {
		cap = v1.DefaultConfiguration().MaxConsecutiveDutyDays
	}

	roster, err := state.NewRoster(input.People, input.Templates, input.Blocks, input.Assignments, nil)
	if err != nil {
		return Report{}, err
	}

	var violations []Violation
	residents := roster.Residents()
	for _, resident := range residents {
		if ctx.Err() != nil {
			break
		}
		violations = append(violations, eightyHourViolations(roster, resident, input.Window)...)
		violations = append(violations, oneInSevenViolations(roster, resident, input.Window)...)
		violations = append(violations, consecutiveDutyViolations(roster, resident, input.Window, cap)...)
	}
	for _, block := range roster.Blocks() {
		if ctx.Err() != nil {
			break
		}
		violations = append(violations, supervisionViolations(roster, block)...)
	}

	sortViolations(violations)
	for _, violation := range violations {
		metrics.ViolationsFound.WithLabelValues(violation.Type).Inc()
	}
	return Report{
		Violations: violations,
		Statistics: Statistics{
			ResidentsChecked: len(residents),
			BlocksChecked:    len(roster.Blocks()),
			ViolationCount:   len(violations),
			CoverageRate:     coverageRate(roster),
		},
	}, nil
}

// coverageRate is the fraction of required (block, template) headcount that
// is staffed.
func coverageRate(roster *state.Roster) float64 {
	var required, covered float64
	for _, block := range roster.Blocks() {
		for _, template := range roster.Templates() {
			if template.RequiredHeadcount == 0 {
				continue
			}
			assigned := len(roster.OnTemplate(block.Key(), template.ID))
			required += float64(template.RequiredHeadcount)
			covered += float64(min(assigned, template.RequiredHeadcount))
		}
	}
	if required == 0 {
		return 1
	}
	return covered / required
}
