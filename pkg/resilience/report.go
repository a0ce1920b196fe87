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

// Package resilience scores a schedule's robustness to personnel loss:
// utilization headroom, N-1/N-2 contingency, and a burnout-cascade estimate.
// Analyzers never mutate schedule state; backfill feasibility runs the
// constraint manager in propagation-only mode against simulation copies.
package resilience

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
)

// Mode selects which analyses run.
type Mode string

const (
	ModeUtilizationOnly Mode = "UtilizationOnly"
	ModeN1              Mode = "N1"
	ModeN2              Mode = "N2"
)

// DefenseLevel bins overall utilization stress.
type DefenseLevel string

const (
	DefenseGreen  DefenseLevel = "Green"
	DefenseYellow DefenseLevel = "Yellow"
	DefenseOrange DefenseLevel = "Orange"
	DefenseRed    DefenseLevel = "Red"
	DefenseBlack  DefenseLevel = "Black"
)

// defenseLevelFor bins a mean utilization.
func defenseLevelFor(mean float64) DefenseLevel {
	switch {
	case mean < 0.6:
		return DefenseGreen
	case mean <= 0.8:
		return DefenseYellow
	case mean <= 0.9:
		return DefenseOrange
	case mean <= 0.95:
		return DefenseRed
	default:
		return DefenseBlack
	}
}

// UtilizationPoint is one sample of a per-template utilization time-series.
type UtilizationPoint struct {
	Block v1.BlockKey `json:"block"`
	Value float64     `json:"value"`
}

// UtilizationReport summarizes block-level load.
type UtilizationReport struct {
	Mean         float64      `json:"mean"`
	DefenseLevel DefenseLevel `json:"defenseLevel"`
	// HotBlocks exceed the 0.8 queueing-theory threshold, chronological.
	HotBlocks []v1.BlockKey `json:"hotBlocks,omitempty"`
	// Series is the per-template utilization time-series.
	Series map[v1.TemplateID][]UtilizationPoint `json:"series,omitempty"`
}

// PersonScore is one person's N-1 contingency result. Score 1 means every
// covered block is backfillable; score 0 marks a single point of failure.
type PersonScore struct {
	Person            v1.PersonID   `json:"person"`
	Covered           int           `json:"covered"`
	Uncoverable       int           `json:"uncoverable"`
	Score             float64       `json:"score"`
	UncoverableBlocks []v1.BlockKey `json:"uncoverableBlocks,omitempty"`
}

// ContingencyReport holds per-person scores and the single points of failure.
type ContingencyReport struct {
	Scores []PersonScore `json:"scores"`
	SPOFs  []v1.PersonID `json:"spofs,omitempty"`
}

// PairScore is one N-2 result over an unordered pair.
type PairScore struct {
	A           v1.PersonID `json:"a"`
	B           v1.PersonID `json:"b"`
	Covered     int         `json:"covered"`
	Uncoverable int         `json:"uncoverable"`
	Score       float64     `json:"score"`
}

// CascadeReport is the SIR-style burnout transmission estimate. R above 1
// means overload spreads faster than people recover.
type CascadeReport struct {
	R           float64 `json:"r"`
	Susceptible float64 `json:"susceptible"`
	Overloaded  float64 `json:"overloaded"`
}

// Report is the analyzer's complete output. Sections are present per the
// requested mode.
type Report struct {
	Utilization *UtilizationReport `json:"utilization,omitempty"`
	N1          *ContingencyReport `json:"n1,omitempty"`
	N2          []PairScore        `json:"n2,omitempty"`
	Cascade     *CascadeReport     `json:"cascade,omitempty"`
}

// Summary renders a one-line human summary.
func (r Report) Summary() string {
	p := message.NewPrinter(language.English)
	switch {
	case r.N1 != nil && r.Utilization != nil:
		return p.Sprintf("defense level %s at %.0f%% mean utilization, %d single points of failure",
			r.Utilization.DefenseLevel, r.Utilization.Mean*100, len(r.N1.SPOFs))
	case r.Utilization != nil:
		return p.Sprintf("defense level %s at %.0f%% mean utilization", r.Utilization.DefenseLevel, r.Utilization.Mean*100)
	default:
		return "no analyses ran"
	}
}
