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

package validation_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/test"
	"github.com/eudaimonia/rostercore/pkg/validation"
)

func TestValidation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validation/ACGME")
}

var (
	ctx       context.Context
	validator *validation.Validator
	resident  v1.Person
	ward      v1.RotationTemplate
	clinic    v1.RotationTemplate
)

var _ = BeforeEach(func() {
	ctx = context.Background()
	validator = validation.NewValidator()
	resident = test.Resident(test.PersonOptions{ID: "r1"})
	ward = test.Template(test.TemplateOptions{ID: "ward", Activity: v1.ActivityInpatient, MaxHeadcount: 14})
	clinic = test.Template(test.TemplateOptions{ID: "clinic", MaxHeadcount: 14})
})

// weekAssignments lays one week of duty for r1: inpatient half-days first
// (AM across the week, then PM), then outpatient in the remaining PM slots.
func weekAssignments(weekStart time.Time, inpatient, outpatient int) []v1.Assignment {
	var out []v1.Assignment
	place := func(template v1.TemplateID, count int, used int) int {
		for i := 0; i < count; i++ {
			slot := used + i
			day := weekStart.AddDate(0, 0, slot%7).Format(v1.DateLayout)
			half := lo.Ternary(slot < 7, v1.AM, v1.PM)
			out = append(out, test.Preserved("r1", test.Key(day, half), template))
		}
		return used + count
	}
	used := place("ward", inpatient, 0)
	place("clinic", outpatient, used)
	return out
}

var _ = Describe("Eighty Hour Rule", func() {
	It("should emit one violation per offending rolling window", func() {
		start := test.Day("2025-03-03")
		// Weekly duty hours: 90, 90, 80, 80, 78, 86, 92. The four 4-week
		// windows average 85, 82, 81 and 84 hours.
		weeks := []struct{ inpatient, outpatient int }{
			{9, 0}, {9, 0}, {8, 0}, {8, 0}, {7, 2}, {7, 4}, {8, 3},
		}
		var assignments []v1.Assignment
		for i, w := range weeks {
			assignments = append(assignments, weekAssignments(start.AddDate(0, 0, 7*i), w.inpatient, w.outpatient)...)
		}
		report, err := validator.Validate(ctx, validation.Input{
			People:      []v1.Person{resident},
			Blocks:      test.BlocksOver(start, 49),
			Templates:   []v1.RotationTemplate{ward, clinic},
			Assignments: assignments,
			Window:      v1.Window{Start: start, End: start.AddDate(0, 0, 48)},
		})
		Expect(err).ToNot(HaveOccurred())

		eighty := lo.Filter(report.Violations, func(v validation.Violation, _ int) bool { return v.Type == validation.TypeEightyHour })
		Expect(eighty).To(HaveLen(4))
		Expect(lo.Map(eighty, func(v validation.Violation, _ int) string { return v.WindowStart })).
			To(Equal([]string{"2025-03-03", "2025-03-10", "2025-03-17", "2025-03-24"}))
		for _, v := range eighty {
			Expect(v.Severity).To(Equal(validation.SeverityCritical))
			Expect(v.Person).To(Equal(v1.PersonID("r1")))
		}
	})
	It("should report nothing for a light clinic load", func() {
		start := test.Day("2025-03-03")
		assignments := []v1.Assignment{
			test.Preserved("r1", test.Key("2025-03-03", v1.AM), "clinic"),
			test.Preserved("r1", test.Key("2025-03-05", v1.PM), "clinic"),
		}
		report, err := validator.Validate(ctx, validation.Input{
			People:      []v1.Person{resident},
			Blocks:      test.BlocksOver(start, 28),
			Templates:   []v1.RotationTemplate{clinic},
			Assignments: assignments,
			Window:      v1.Window{Start: start, End: start.AddDate(0, 0, 27)},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(report.Violations).To(BeEmpty())
	})
})

var _ = Describe("One In Seven Rule", func() {
	It("should flag every rolling window without a free day", func() {
		start := test.Day("2025-03-03")
		var assignments []v1.Assignment
		for i := 0; i < 10; i++ {
			day := start.AddDate(0, 0, i).Format(v1.DateLayout)
			assignments = append(assignments, test.Preserved("r1", test.Key(day, v1.AM), "ward"))
		}
		report, err := validator.Validate(ctx, validation.Input{
			People:      []v1.Person{resident},
			Blocks:      test.BlocksOver(start, 14),
			Templates:   []v1.RotationTemplate{ward},
			Assignments: assignments,
			Window:      v1.Window{Start: start, End: start.AddDate(0, 0, 13)},
		})
		Expect(err).ToNot(HaveOccurred())

		oneInSeven := lo.Filter(report.Violations, func(v validation.Violation, _ int) bool { return v.Type == validation.TypeOneInSeven })
		// Ten consecutive duty days leave four 7-day windows with no day off.
		Expect(oneInSeven).To(HaveLen(4))
		Expect(oneInSeven[0].WindowStart).To(Equal("2025-03-03"))
		Expect(oneInSeven[0].Severity).To(Equal(validation.SeverityHigh))

		consecutive := lo.Filter(report.Violations, func(v validation.Violation, _ int) bool { return v.Type == validation.TypeConsecutiveDuty })
		Expect(consecutive).To(HaveLen(1))
		Expect(consecutive[0].Details["days"]).To(Equal(10.0))
	})
})

var _ = Describe("Supervision Rule", func() {
	It("should emit one critical violation per understaffed block", func() {
		start := test.Day("2025-03-03")
		supervised := test.Template(test.TemplateOptions{
			ID: "pc-clinic", SupervisionRequired: true, MaxResidentsPerFaculty: 4, MaxHeadcount: 8,
		})
		people := []v1.Person{test.Faculty(test.PersonOptions{ID: "f1"})}
		var assignments []v1.Assignment
		for i := 1; i <= 5; i++ {
			id := v1.PersonID(fmt.Sprintf("r%d", i))
			people = append(people, test.Resident(test.PersonOptions{ID: id}))
			assignments = append(assignments, test.Preserved(id, test.Key("2025-03-03", v1.AM), "pc-clinic"))
		}
		assignments = append(assignments, v1.Assignment{
			Person: "f1", Block: test.Key("2025-03-03", v1.AM), Template: "pc-clinic", Role: v1.RoleSupervising,
		})
		report, err := validator.Validate(ctx, validation.Input{
			People:      people,
			Blocks:      test.BlocksOver(start, 7),
			Templates:   []v1.RotationTemplate{supervised},
			Assignments: assignments,
			Window:      v1.Window{Start: start, End: start.AddDate(0, 0, 6)},
		})
		Expect(err).ToNot(HaveOccurred())

		supervision := lo.Filter(report.Violations, func(v validation.Violation, _ int) bool { return v.Type == validation.TypeSupervision })
		Expect(supervision).To(HaveLen(1))
		Expect(supervision[0].Severity).To(Equal(validation.SeverityCritical))
		Expect(supervision[0].Details["residents"]).To(Equal(5.0))
		Expect(supervision[0].Details["required"]).To(Equal(2.0))
	})
})

var _ = Describe("Purity", func() {
	It("should return identical reports for identical inputs", func() {
		start := test.Day("2025-03-03")
		var assignments []v1.Assignment
		for i := 0; i < 10; i++ {
			day := start.AddDate(0, 0, i).Format(v1.DateLayout)
			assignments = append(assignments, test.Preserved("r1", test.Key(day, v1.AM), "ward"))
		}
		input := validation.Input{
			People:      []v1.Person{resident},
			Blocks:      test.BlocksOver(start, 14),
			Templates:   []v1.RotationTemplate{ward},
			Assignments: assignments,
			Window:      v1.Window{Start: start, End: start.AddDate(0, 0, 13)},
		}
		first, err := validator.Validate(ctx, input)
		Expect(err).ToNot(HaveOccurred())
		second, err := validator.Validate(ctx, input)
		Expect(err).ToNot(HaveOccurred())
		Expect(second).To(Equal(first))
	})
	It("should stop early on cancellation without failing", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		start := test.Day("2025-03-03")
		report, err := validator.Validate(cancelled, validation.Input{
			People:    []v1.Person{resident},
			Blocks:    test.BlocksOver(start, 7),
			Templates: []v1.RotationTemplate{ward},
			Window:    v1.Window{Start: start, End: start.AddDate(0, 0, 6)},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(report.Violations).To(BeEmpty())
	})
})
