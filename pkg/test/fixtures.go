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

// Package test provides fixtures for the scheduling core's suites.
package test

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/imdario/mergo"
	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/utils/calendar"
)

var sequence int64

func nextID(prefix string) string {
	return fmt.Sprintf("%s-%04d", prefix, atomic.AddInt64(&sequence, 1))
}

// PersonOptions customizes person fixtures. Zero fields get defaults.
type PersonOptions struct {
	ID                  v1.PersonID
	Name                string
	PGY                 v1.PGY
	Specialties        []string
	Credentials        []string
	PerformsProcedures bool
	// NotSupervisionEligible opts a faculty fixture out of supervision;
	// fixtures are eligible by default.
	NotSupervisionEligible bool
}

// Resident returns a resident with sensible defaults.
func Resident(overrides ...PersonOptions) v1.Person {
	options := mergeOptions(overrides)
	if options.ID == "" {
		options.ID = v1.PersonID(nextID("res"))
	}
	if options.Name == "" {
		options.Name = randomdata.FullName(randomdata.RandomGender)
	}
	if options.PGY == 0 {
		options.PGY = v1.PGY1
	}
	return v1.Person{
		ID:          options.ID,
		Name:        options.Name,
		Kind:        v1.KindResident,
		PGY:         options.PGY,
		Credentials: options.Credentials,
	}
}

// Faculty returns a supervision-eligible faculty member by default.
func Faculty(overrides ...PersonOptions) v1.Person {
	options := mergeOptions(overrides)
	if options.ID == "" {
		options.ID = v1.PersonID(nextID("fac"))
	}
	if options.Name == "" {
		options.Name = randomdata.FullName(randomdata.RandomGender)
	}
	return v1.Person{
		ID:                  options.ID,
		Name:                options.Name,
		Kind:                v1.KindFaculty,
		Specialties:         options.Specialties,
		Credentials:         options.Credentials,
		PerformsProcedures:  options.PerformsProcedures,
		SupervisionEligible: !options.NotSupervisionEligible,
	}
}

// TemplateOptions customizes rotation template fixtures.
type TemplateOptions struct {
	ID                     v1.TemplateID
	Name                   string
	Activity               v1.ActivityType
	RequiredCredential     string
	SupervisionRequired    bool
	MaxResidentsPerFaculty int
	MaxHeadcount           int
	RequiredHeadcount      int
	Priority               int
	Zone                   string
	Tags                   []string
	Recurrence             string
}

// Template returns an outpatient clinic template by default.
func Template(overrides ...TemplateOptions) v1.RotationTemplate {
	options := TemplateOptions{}
	for _, o := range overrides {
		lo.Must0(mergo.Merge(&options, o, mergo.WithOverride))
	}
	if options.ID == "" {
		options.ID = v1.TemplateID(nextID("tmpl"))
	}
	if options.Name == "" {
		options.Name = string(options.ID)
	}
	if options.Activity == "" {
		options.Activity = v1.ActivityOutpatient
	}
	if options.MaxHeadcount == 0 {
		options.MaxHeadcount = 4
	}
	if options.SupervisionRequired && options.MaxResidentsPerFaculty == 0 {
		options.MaxResidentsPerFaculty = 4
	}
	return v1.RotationTemplate{
		ID:                     options.ID,
		Name:                   options.Name,
		Activity:               options.Activity,
		RequiredCredential:     options.RequiredCredential,
		SupervisionRequired:    options.SupervisionRequired,
		MaxResidentsPerFaculty: options.MaxResidentsPerFaculty,
		MaxHeadcount:           options.MaxHeadcount,
		RequiredHeadcount:      options.RequiredHeadcount,
		Priority:               options.Priority,
		Zone:                   options.Zone,
		Tags:                   options.Tags,
		Recurrence:             options.Recurrence,
	}
}

// Day parses a canonical day string. Panics on bad fixtures.
func Day(day string) time.Time {
	return lo.Must(time.Parse(v1.DateLayout, day)).UTC()
}

// BlocksOver enumerates AM/PM blocks for days starting at start.
func BlocksOver(start time.Time, days int) []v1.Block {
	window := v1.Window{Start: start, End: start.AddDate(0, 0, days-1)}
	return lo.Must(calendar.BlocksForWindow(window, start))
}

// Key builds a block key.
func Key(day string, half v1.HalfDay) v1.BlockKey {
	return v1.BlockKey{Day: day, Half: half}
}

// Preserved builds an immutable assignment.
func Preserved(person v1.PersonID, block v1.BlockKey, template v1.TemplateID) v1.Assignment {
	return v1.Assignment{Person: person, Block: block, Template: template, Role: v1.RolePrimary, Immutable: true}
}

func mergeOptions(overrides []PersonOptions) PersonOptions {
	options := PersonOptions{}
	for _, o := range overrides {
		lo.Must0(mergo.Merge(&options, o, mergo.WithOverride))
	}
	return options
}
