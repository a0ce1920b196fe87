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
	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/state"
)

// Burnout cascade estimation, SIR-style. People whose personal utilization
// exceeds the overload threshold are "infected"; overload transmits to the
// colleagues who absorb their work. R above 1 means one overloaded person
// creates more than one newly overloaded person before recovering.
const (
	overloadThreshold = 0.85
	// recoveryRate is the per-period probability an overloaded person
	// recovers (protected time, rotation change).
	recoveryRate = 0.35
)

// analyzeCascade estimates the transmission number from the distribution of
// personal load. Pure: same roster, same report.
func analyzeCascade(roster *state.Roster) *CascadeReport {
	people := roster.People()
	if len(people) == 0 {
		return &CascadeReport{Susceptible: 1}
	}
	capacity := len(roster.Blocks())
	if capacity == 0 {
		return &CascadeReport{Susceptible: 1}
	}
	loads := lo.Map(people, func(p *v1.Person, _ int) float64 {
		return float64(roster.AssignedCount(p.ID)) / float64(capacity)
	})
	overloaded := lo.CountBy(loads, func(l float64) bool { return l > overloadThreshold })
	susceptible := 1 - float64(overloaded)/float64(len(people))
	meanLoad := lo.Sum(loads) / float64(len(loads))

	// Transmission scales with how much work a lost person sheds onto the
	// rest: the mean load is the contact rate proxy.
	r := (meanLoad / recoveryRate) * susceptible
	return &CascadeReport{
		R:           r,
		Susceptible: susceptible,
		Overloaded:  float64(overloaded) / float64(len(people)),
	}
}
