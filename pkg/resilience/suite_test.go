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

package resilience_test

import (
	"context"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/resilience"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
	"github.com/eudaimonia/rostercore/pkg/test"
)

func TestResilience(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Resilience/Analyzer")
}

var (
	ctx      context.Context
	analyzer *resilience.Analyzer
)

var _ = BeforeEach(func() {
	ctx = context.Background()
	analyzer = resilience.NewAnalyzer(scheduling.NewDefaultManager())
})

var _ = Describe("Single Point Of Failure Detection", func() {
	It("should identify the only credentialed faculty as a SPOF", func() {
		start := test.Day("2025-03-03")
		smFaculty := test.Faculty(test.PersonOptions{ID: "f-sm", Credentials: []string{"sports-medicine"}})
		people := []v1.Person{smFaculty, test.Faculty(test.PersonOptions{ID: "f2"})}
		for i := 1; i <= 5; i++ {
			people = append(people, test.Resident(test.PersonOptions{ID: v1.PersonID(fmt.Sprintf("r%d", i))}))
		}
		smClinic := test.Template(test.TemplateOptions{ID: "sm-clinic", RequiredCredential: "sports-medicine", MaxHeadcount: 2})
		var assignments []v1.Assignment
		for i := 0; i < 7; i++ {
			day := start.AddDate(0, 0, i).Format(v1.DateLayout)
			assignments = append(assignments, test.Preserved("f-sm", test.Key(day, v1.AM), "sm-clinic"))
		}
		report, err := analyzer.Analyze(ctx, resilience.Input{
			People:      people,
			Blocks:      test.BlocksOver(start, 7),
			Templates:   []v1.RotationTemplate{smClinic},
			Assignments: assignments,
			Window:      v1.Window{Start: start, End: start.AddDate(0, 0, 6)},
			Mode:        resilience.ModeN1,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(report.N1).ToNot(BeNil())

		score, ok := lo.Find(report.N1.Scores, func(s resilience.PersonScore) bool { return s.Person == "f-sm" })
		Expect(ok).To(BeTrue())
		Expect(score.Score).To(BeZero())
		Expect(score.Covered).To(Equal(7))
		Expect(score.UncoverableBlocks).To(HaveLen(7))
		Expect(report.N1.SPOFs).To(ContainElement(v1.PersonID("f-sm")))
	})
	It("should score a fully backfillable person well", func() {
		start := test.Day("2025-03-03")
		people := []v1.Person{
			test.Faculty(test.PersonOptions{ID: "f1"}),
			test.Faculty(test.PersonOptions{ID: "f2"}),
		}
		clinic := test.Template(test.TemplateOptions{ID: "clinic", MaxHeadcount: 2})
		assignments := []v1.Assignment{
			test.Preserved("f1", test.Key("2025-03-03", v1.AM), "clinic"),
			test.Preserved("f1", test.Key("2025-03-04", v1.AM), "clinic"),
		}
		report, err := analyzer.Analyze(ctx, resilience.Input{
			People:      people,
			Blocks:      test.BlocksOver(start, 7),
			Templates:   []v1.RotationTemplate{clinic},
			Assignments: assignments,
			Window:      v1.Window{Start: start, End: start.AddDate(0, 0, 6)},
			Mode:        resilience.ModeN1,
		})
		Expect(err).ToNot(HaveOccurred())
		score, ok := lo.Find(report.N1.Scores, func(s resilience.PersonScore) bool { return s.Person == "f1" })
		Expect(ok).To(BeTrue())
		Expect(score.Score).To(Equal(1.0))
		Expect(report.N1.SPOFs).To(BeEmpty())
	})
})

var _ = Describe("Utilization", func() {
	It("should report black defense at full utilization", func() {
		start := test.Day("2025-03-03")
		people := []v1.Person{
			test.Resident(test.PersonOptions{ID: "r1"}),
			test.Resident(test.PersonOptions{ID: "r2"}),
		}
		clinic := test.Template(test.TemplateOptions{ID: "clinic", MaxHeadcount: 2, RequiredHeadcount: 2})
		var assignments []v1.Assignment
		for i := 0; i < 7; i++ {
			day := start.AddDate(0, 0, i).Format(v1.DateLayout)
			for _, half := range []v1.HalfDay{v1.AM, v1.PM} {
				assignments = append(assignments,
					test.Preserved("r1", test.Key(day, half), "clinic"),
					test.Preserved("r2", test.Key(day, half), "clinic"),
				)
			}
		}
		report, err := analyzer.Analyze(ctx, resilience.Input{
			People:      people,
			Blocks:      test.BlocksOver(start, 7),
			Templates:   []v1.RotationTemplate{clinic},
			Assignments: assignments,
			Window:      v1.Window{Start: start, End: start.AddDate(0, 0, 6)},
			Mode:        resilience.ModeUtilizationOnly,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(report.Utilization.Mean).To(BeNumerically("==", 1))
		Expect(report.Utilization.DefenseLevel).To(Equal(resilience.DefenseBlack))
		Expect(report.Utilization.HotBlocks).To(HaveLen(14))
		Expect(report.N1).To(BeNil())
	})
	It("should report green defense with ample headroom", func() {
		start := test.Day("2025-03-03")
		people := []v1.Person{test.Resident(test.PersonOptions{ID: "r1"})}
		clinic := test.Template(test.TemplateOptions{ID: "clinic", MaxHeadcount: 2, RequiredHeadcount: 2})
		assignments := []v1.Assignment{test.Preserved("r1", test.Key("2025-03-03", v1.AM), "clinic")}
		report, err := analyzer.Analyze(ctx, resilience.Input{
			People:      people,
			Blocks:      test.BlocksOver(start, 7),
			Templates:   []v1.RotationTemplate{clinic},
			Assignments: assignments,
			Window:      v1.Window{Start: start, End: start.AddDate(0, 0, 6)},
			Mode:        resilience.ModeUtilizationOnly,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(report.Utilization.DefenseLevel).To(Equal(resilience.DefenseGreen))
	})
})

var _ = Describe("N-2 Contingency", func() {
	It("should bound the number of evaluated pairs", func() {
		start := test.Day("2025-03-03")
		var people []v1.Person
		var assignments []v1.Assignment
		clinic := test.Template(test.TemplateOptions{ID: "clinic", MaxHeadcount: 4})
		for i := 1; i <= 4; i++ {
			id := v1.PersonID(fmt.Sprintf("f%d", i))
			people = append(people, test.Faculty(test.PersonOptions{ID: id}))
			day := start.AddDate(0, 0, i-1).Format(v1.DateLayout)
			assignments = append(assignments, test.Preserved(id, test.Key(day, v1.AM), "clinic"))
		}
		report, err := analyzer.Analyze(ctx, resilience.Input{
			People:      people,
			Blocks:      test.BlocksOver(start, 7),
			Templates:   []v1.RotationTemplate{clinic},
			Assignments: assignments,
			Window:      v1.Window{Start: start, End: start.AddDate(0, 0, 6)},
			Mode:        resilience.ModeN2,
			PairCap:     3,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(len(report.N2)).To(BeNumerically("<=", 3))
		for _, pair := range report.N2 {
			Expect(pair.A < pair.B).To(BeTrue())
		}
	})
})

var _ = Describe("Burnout Cascade", func() {
	It("should be pure and report higher transmission under heavier load", func() {
		start := test.Day("2025-03-03")
		people := []v1.Person{test.Resident(test.PersonOptions{ID: "r1"}), test.Resident(test.PersonOptions{ID: "r2"})}
		clinic := test.Template(test.TemplateOptions{ID: "clinic", MaxHeadcount: 2})
		light := resilience.Input{
			People:         people,
			Blocks:         test.BlocksOver(start, 7),
			Templates:      []v1.RotationTemplate{clinic},
			Assignments:    []v1.Assignment{test.Preserved("r1", test.Key("2025-03-03", v1.AM), "clinic")},
			Window:         v1.Window{Start: start, End: start.AddDate(0, 0, 6)},
			Mode:           resilience.ModeUtilizationOnly,
			IncludeCascade: true,
		}
		// Heavy load overloads r1 while r2 stays susceptible.
		heavy := light
		var assignments []v1.Assignment
		for i := 0; i < 7; i++ {
			day := start.AddDate(0, 0, i).Format(v1.DateLayout)
			for _, half := range []v1.HalfDay{v1.AM, v1.PM} {
				assignments = append(assignments, test.Preserved("r1", test.Key(day, half), "clinic"))
			}
		}
		heavy.Assignments = assignments

		lightReport, err := analyzer.Analyze(ctx, light)
		Expect(err).ToNot(HaveOccurred())
		lightAgain, err := analyzer.Analyze(ctx, light)
		Expect(err).ToNot(HaveOccurred())
		Expect(lightAgain).To(Equal(lightReport))

		heavyReport, err := analyzer.Analyze(ctx, heavy)
		Expect(err).ToNot(HaveOccurred())
		Expect(heavyReport.Cascade.R).To(BeNumerically(">", lightReport.Cascade.R))
	})
})
