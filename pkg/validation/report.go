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

// Package validation implements the post-hoc ACGME compliance validator. The
// validator is pure: the same assignments produce the same report in the same
// order, every run.
package validation

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
)

// ViolationType identifiers are contracts; callers pattern-match on them.
const (
	TypeEightyHour      = "80_HOUR"
	TypeOneInSeven      = "ONE_IN_SEVEN"
	TypeSupervision     = "SUPERVISION_RATIO"
	TypeConsecutiveDuty = "CONSECUTIVE_DUTY"
)

// Severity orders violations for triage.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Violation is one compliance finding.
type Violation struct {
	Type     string      `json:"type"`
	Severity Severity    `json:"severity"`
	Person   v1.PersonID `json:"person"`
	Message  string      `json:"message"`
	// WindowStart anchors rolling-window findings; block-level findings carry
	// the block day.
	WindowStart string `json:"windowStart"`
	// Details carries structured, rule-specific values.
	Details map[string]float64 `json:"details,omitempty"`
}

// Statistics aggregates a validation pass.
type Statistics struct {
	ResidentsChecked int     `json:"residentsChecked"`
	BlocksChecked    int     `json:"blocksChecked"`
	ViolationCount   int     `json:"violationCount"`
	CoverageRate     float64 `json:"coverageRate"`
}

// Report is the validator's output: violations sorted by severity descending,
// then person id, then window start.
type Report struct {
	Violations []Violation `json:"violations"`
	Statistics Statistics  `json:"statistics"`
}

// Summary renders a one-line human summary with grouped digits.
func (r Report) Summary() string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d violations across %d residents and %d blocks, coverage %.1f%%",
		r.Statistics.ViolationCount, r.Statistics.ResidentsChecked, r.Statistics.BlocksChecked, r.Statistics.CoverageRate*100)
}

func sortViolations(violations []Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		if severityRank[violations[i].Severity] != severityRank[violations[j].Severity] {
			return severityRank[violations[i].Severity] < severityRank[violations[j].Severity]
		}
		if violations[i].Person != violations[j].Person {
			return violations[i].Person < violations[j].Person
		}
		return violations[i].WindowStart < violations[j].WindowStart
	})
}
