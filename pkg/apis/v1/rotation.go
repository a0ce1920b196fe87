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

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"go.uber.org/multierr"
)

// TemplateID is the stable, opaque identity of a rotation template.
type TemplateID string

// ActivityType classifies what a rotation template does with a half-day.
// Classification drives solver scope: only Outpatient and Procedures templates
// are solver-managed; every other type is preserved.
type ActivityType string

const (
	ActivityOutpatient ActivityType = "Outpatient"
	ActivityProcedures ActivityType = "Procedures"
	ActivityInpatient  ActivityType = "Inpatient"
	ActivityOff        ActivityType = "Off"
	ActivityEducation  ActivityType = "Education"
	ActivityAbsence    ActivityType = "Absence"
	ActivityRecovery   ActivityType = "Recovery"
)

// SolverManaged reports whether assignments of this type may be created or
// deleted by the solver. All other types are immutable during solving.
func (a ActivityType) SolverManaged() bool {
	return a == ActivityOutpatient || a == ActivityProcedures
}

var activityTypes = []ActivityType{
	ActivityOutpatient, ActivityProcedures, ActivityInpatient, ActivityOff,
	ActivityEducation, ActivityAbsence, ActivityRecovery,
}

// TagFMIT marks the Family Medicine Inpatient Team week template. Post-FMIT
// recovery rules key off this tag.
const TagFMIT = "fmit"

// TagOnCall marks templates whose half-days count toward the consecutive
// on-call cap.
const TagOnCall = "on-call"

// RotationTemplate is a named activity a person can be assigned to for one
// block.
type RotationTemplate struct {
	ID       TemplateID   `json:"id"`
	Name     string       `json:"name"`
	Activity ActivityType `json:"activity"`
	// RequiredCredential must be held by anyone assigned; empty means none.
	RequiredCredential string `json:"requiredCredential,omitempty"`
	// SupervisionRequired templates demand faculty presence on every block
	// that has at least one resident assigned.
	SupervisionRequired bool `json:"supervisionRequired,omitempty"`
	// MaxResidentsPerFaculty is the supervision ratio ceiling. Only read when
	// SupervisionRequired is set.
	MaxResidentsPerFaculty int `json:"maxResidentsPerFaculty,omitempty"`
	// MaxHeadcount bounds how many people one block of this template holds.
	MaxHeadcount int `json:"maxHeadcount"`
	// RequiredHeadcount is the coverage the template needs per block to be
	// considered fully staffed. Zero means no floor.
	RequiredHeadcount int `json:"requiredHeadcount,omitempty"`
	// Priority orders templates within a block during solving. Higher first.
	Priority int `json:"priority,omitempty"`
	// Zone is the operational zone the template runs in. Transitions between
	// zones on the same day are penalized by the ZoneBoundary constraint.
	Zone string `json:"zone,omitempty"`
	// Tags carry rule markers such as "fmit" and "on-call".
	Tags []string `json:"tags,omitempty"`
	// Recurrence optionally pins a preserved template (typically Education) to
	// a standard cron schedule, e.g. "0 13 * * WED" for Wednesday didactics.
	// Solver-managed templates must not carry a recurrence.
	Recurrence string `json:"recurrence,omitempty" hash:"ignore"`
}

func (t *RotationTemplate) HasTag(tag string) bool { return lo.Contains(t.Tags, tag) }

func (t *RotationTemplate) IsFMIT() bool { return t.HasTag(TagFMIT) }

func (t *RotationTemplate) IsOnCall() bool { return t.HasTag(TagOnCall) }

// Validate enforces the template invariants.
func (t *RotationTemplate) Validate() error {
	var errs error
	if t.ID == "" {
		errs = multierr.Append(errs, fmt.Errorf("id must not be empty"))
	}
	if !lo.Contains(activityTypes, t.Activity) {
		errs = multierr.Append(errs, fmt.Errorf("unknown activity type %q", t.Activity))
	}
	if t.MaxHeadcount <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("max headcount %d must be positive", t.MaxHeadcount))
	}
	if t.RequiredHeadcount > t.MaxHeadcount {
		errs = multierr.Append(errs, fmt.Errorf("required headcount %d exceeds max headcount %d", t.RequiredHeadcount, t.MaxHeadcount))
	}
	if t.SupervisionRequired && t.MaxResidentsPerFaculty <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("supervision-required template must set a positive resident-to-faculty ratio"))
	}
	if t.Recurrence != "" {
		if t.Activity.SolverManaged() {
			errs = multierr.Append(errs, fmt.Errorf("solver-managed template must not carry a recurrence"))
		}
		if _, err := cron.ParseStandard(t.Recurrence); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("parsing recurrence %q, %w", t.Recurrence, err))
		}
	}
	if errs != nil {
		return NewInvariantViolation("invalid rotation template %q, %s", t.ID, errs)
	}
	return nil
}
