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

	"github.com/samber/lo"
	"go.uber.org/multierr"
)

// PersonID is the stable, opaque identity of a person. Ids are compared as
// plain strings; ordering of ids is the tie-break order everywhere in the core.
type PersonID string

// PersonKind partitions people into the two populations the scheduler knows
// about. Kind is immutable for the duration of a scheduling run.
type PersonKind string

const (
	KindResident PersonKind = "Resident"
	KindFaculty  PersonKind = "Faculty"
)

// PGY is a resident's postgraduate training year.
type PGY int

const (
	PGY1 PGY = 1
	PGY2 PGY = 2
	PGY3 PGY = 3
)

// Person is a schedulable human. Residents carry a training year; faculty
// carry specialty tags and credential flags.
type Person struct {
	ID   PersonID `json:"id"`
	Name string   `json:"name"`
	Kind PersonKind `json:"kind"`
	// PGY is set iff Kind is Resident.
	PGY PGY `json:"pgy,omitempty"`
	// Specialties are faculty specialty tags, e.g. "sports-medicine".
	Specialties []string `json:"specialties,omitempty"`
	// Credentials satisfy RotationTemplate.RequiredCredential.
	Credentials []string `json:"credentials,omitempty"`
	// PerformsProcedures marks faculty credentialed for procedure clinics.
	PerformsProcedures bool `json:"performsProcedures,omitempty"`
	// SupervisionEligible marks faculty who may supervise residents.
	SupervisionEligible bool `json:"supervisionEligible,omitempty"`
}

func (p *Person) IsResident() bool { return p.Kind == KindResident }

func (p *Person) IsFaculty() bool { return p.Kind == KindFaculty }

func (p *Person) HasCredential(credential string) bool {
	return credential == "" || lo.Contains(p.Credentials, credential)
}

func (p *Person) HasSpecialty(specialty string) bool {
	return lo.Contains(p.Specialties, specialty)
}

// Validate enforces the person invariants from the domain model. It returns an
// InvariantViolationError aggregating every failed check.
func (p *Person) Validate() error {
	var errs error
	if p.ID == "" {
		errs = multierr.Append(errs, fmt.Errorf("id must not be empty"))
	}
	switch p.Kind {
	case KindResident:
		if p.PGY < PGY1 || p.PGY > PGY3 {
			errs = multierr.Append(errs, fmt.Errorf("resident %q has training year %d, expected 1-3", p.ID, p.PGY))
		}
	case KindFaculty:
		if p.PGY != 0 {
			errs = multierr.Append(errs, fmt.Errorf("faculty %q must not carry a training year", p.ID))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("person %q has unknown kind %q", p.ID, p.Kind))
	}
	if errs != nil {
		return NewInvariantViolation("invalid person, %s", errs)
	}
	return nil
}
