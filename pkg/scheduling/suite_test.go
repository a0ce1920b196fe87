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

package scheduling_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
	"github.com/eudaimonia/rostercore/pkg/state"
	"github.com/eudaimonia/rostercore/pkg/test"
)

func TestScheduling(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Scheduling/Constraints")
}

var (
	manager *scheduling.Manager
	config  v1.SchedulerConfiguration
)

var _ = BeforeEach(func() {
	manager = scheduling.NewDefaultManager()
	config = lo.Must(v1.SchedulerConfiguration{}.WithDefaults())
})

func runContext(people []v1.Person, templates []v1.RotationTemplate, blocks []v1.Block, preserved []v1.Assignment, absences []v1.Absence) *scheduling.RunContext {
	roster, err := state.NewRoster(people, templates, blocks, preserved, absences)
	Expect(err).ToNot(HaveOccurred())
	return &scheduling.RunContext{Roster: roster, Config: config}
}

var _ = Describe("Manager", func() {
	It("should register the full default constraint set", func() {
		Expect(manager.Names()).To(ConsistOf(
			scheduling.UniqueAssignmentPerBlockName,
			scheduling.AbsenceRespectName,
			scheduling.CredentialRequirementName,
			scheduling.SupervisionRatioName,
			scheduling.ResidentInpatientHeadcountName,
			scheduling.PostFMITRecoveryName,
			scheduling.PostFMITSundayBlockingName,
			scheduling.MaxConsecutiveCallCapName,
			scheduling.OneDayOffIn7Name,
			scheduling.HubProtectionName,
			scheduling.UtilizationBufferName,
			scheduling.ZoneBoundaryName,
			scheduling.PreferenceTrailName,
			scheduling.N1VulnerabilityName,
			scheduling.FairnessByPGYName,
		))
	})
	It("should keep resilience constraints disabled by default", func() {
		for _, name := range []string{
			scheduling.HubProtectionName,
			scheduling.UtilizationBufferName,
			scheduling.ZoneBoundaryName,
			scheduling.PreferenceTrailName,
			scheduling.N1VulnerabilityName,
		} {
			c, ok := manager.Get(name)
			Expect(ok).To(BeTrue())
			Expect(c.Enabled()).To(BeFalse(), "constraint %s should be disabled by default", name)
		}
		fairness, ok := manager.Get(scheduling.FairnessByPGYName)
		Expect(ok).To(BeTrue())
		Expect(fairness.Enabled()).To(BeTrue())
	})
	It("should enable resilience constraints in the resilience-aware factory", func() {
		aware := scheduling.NewResilienceAwareManager()
		for _, name := range []string{
			scheduling.HubProtectionName,
			scheduling.UtilizationBufferName,
			scheduling.ZoneBoundaryName,
			scheduling.PreferenceTrailName,
			scheduling.N1VulnerabilityName,
		} {
			c, ok := aware.Get(name)
			Expect(ok).To(BeTrue())
			Expect(c.Enabled()).To(BeTrue(), "constraint %s should be enabled", name)
		}
	})
	It("should support add, remove, enable and disable by name", func() {
		Expect(manager.Disable(scheduling.FairnessByPGYName)).To(Succeed())
		c, _ := manager.Get(scheduling.FairnessByPGYName)
		Expect(c.Enabled()).To(BeFalse())
		Expect(manager.Enable(scheduling.FairnessByPGYName)).To(Succeed())
		Expect(c.Enabled()).To(BeTrue())

		manager.Remove(scheduling.FairnessByPGYName)
		_, ok := manager.Get(scheduling.FairnessByPGYName)
		Expect(ok).To(BeFalse())
		Expect(manager.Enable(scheduling.FairnessByPGYName)).ToNot(Succeed())
	})
	It("should only grow the candidate set when a constraint is disabled", func() {
		resident := test.Resident(test.PersonOptions{ID: "r1"})
		clinic := test.Template(test.TemplateOptions{ID: "clinic"})
		inpatient := test.Template(test.TemplateOptions{ID: "ward", Activity: v1.ActivityInpatient})
		blocks := test.BlocksOver(test.Day("2025-03-03"), 7)
		preserved := []v1.Assignment{test.Preserved("r1", test.Key("2025-03-03", v1.AM), "ward")}
		rc := runContext([]v1.Person{resident}, []v1.RotationTemplate{clinic, inpatient}, blocks, preserved, nil)

		candidates := lo.Map(blocks, func(b v1.Block, _ int) scheduling.Candidate {
			return scheduling.Candidate{Person: "r1", Block: b.Key(), Template: "clinic"}
		})
		strict, _ := manager.Filter(rc, candidates)
		Expect(manager.Disable(scheduling.UniqueAssignmentPerBlockName)).To(Succeed())
		relaxed, _ := manager.Filter(rc, candidates)
		Expect(len(relaxed)).To(BeNumerically(">=", len(strict)))
		for _, c := range strict {
			Expect(relaxed).To(ContainElement(c))
		}
	})
})

var _ = Describe("Hard Constraints", func() {
	var (
		resident v1.Person
		faculty  v1.Person
		clinic   v1.RotationTemplate
		blocks   []v1.Block
	)
	BeforeEach(func() {
		resident = test.Resident(test.PersonOptions{ID: "r1"})
		faculty = test.Faculty(test.PersonOptions{ID: "f1"})
		clinic = test.Template(test.TemplateOptions{ID: "clinic"})
		blocks = test.BlocksOver(test.Day("2025-03-03"), 14)
	})

	It("should forbid a second assignment on an occupied slot", func() {
		preserved := []v1.Assignment{test.Preserved("r1", test.Key("2025-03-03", v1.AM), "clinic")}
		rc := runContext([]v1.Person{resident}, []v1.RotationTemplate{clinic}, blocks, preserved, nil)
		c, _ := manager.Get(scheduling.UniqueAssignmentPerBlockName)
		decision := c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-03", v1.AM), Template: "clinic"})
		Expect(decision.Allowed).To(BeFalse())
	})
	It("should forbid assignments during an absence", func() {
		absence := v1.Absence{Person: "r1", Start: test.Day("2025-03-05"), End: test.Day("2025-03-06"), Type: v1.AbsenceVacation}
		rc := runContext([]v1.Person{resident}, []v1.RotationTemplate{clinic}, blocks, nil, []v1.Absence{absence})
		c, _ := manager.Get(scheduling.AbsenceRespectName)
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-05", v1.PM), Template: "clinic"}).Allowed).To(BeFalse())
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-07", v1.AM), Template: "clinic"}).Allowed).To(BeTrue())
	})
	It("should forbid assignments missing the required credential", func() {
		gated := test.Template(test.TemplateOptions{ID: "sm-clinic", RequiredCredential: "sports-medicine"})
		rc := runContext([]v1.Person{resident}, []v1.RotationTemplate{gated}, blocks, nil, nil)
		c, _ := manager.Get(scheduling.CredentialRequirementName)
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-03", v1.AM), Template: "sm-clinic"}).Allowed).To(BeFalse())
	})
	It("should forbid resident assignments that outrun available supervision", func() {
		supervised := test.Template(test.TemplateOptions{ID: "pc-clinic", SupervisionRequired: true, MaxResidentsPerFaculty: 1, MaxHeadcount: 4})
		// The only faculty is preserved elsewhere on the block.
		offsite := test.Template(test.TemplateOptions{ID: "hilo", Activity: v1.ActivityInpatient, MaxHeadcount: 1})
		preserved := []v1.Assignment{test.Preserved("f1", test.Key("2025-03-03", v1.AM), "hilo")}
		rc := runContext([]v1.Person{resident, faculty}, []v1.RotationTemplate{supervised, offsite}, blocks, preserved, nil)
		c, _ := manager.Get(scheduling.SupervisionRatioName)
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-03", v1.AM), Template: "pc-clinic"}).Allowed).To(BeFalse())
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-04", v1.AM), Template: "pc-clinic"}).Allowed).To(BeTrue())
	})
	It("should hold residents back while inpatient coverage is short", func() {
		ward := test.Template(test.TemplateOptions{ID: "ward", Activity: v1.ActivityInpatient, MaxHeadcount: 4, RequiredHeadcount: 2})
		other := test.Resident(test.PersonOptions{ID: "r2"})
		preserved := []v1.Assignment{test.Preserved("r2", test.Key("2025-03-03", v1.AM), "ward")}
		rc := runContext([]v1.Person{resident, other}, []v1.RotationTemplate{clinic, ward}, blocks, preserved, nil)
		c, _ := manager.Get(scheduling.ResidentInpatientHeadcountName)
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-03", v1.AM), Template: "clinic"}).Allowed).To(BeFalse())
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-04", v1.AM), Template: "clinic"}).Allowed).To(BeTrue())
	})
	It("should cap consecutive on-call half-days", func() {
		call := test.Template(test.TemplateOptions{ID: "call", Tags: []string{v1.TagOnCall}})
		var preserved []v1.Assignment
		// Six consecutive on-call half-days: 03-03 AM through 03-05 PM.
		for _, day := range []string{"2025-03-03", "2025-03-04", "2025-03-05"} {
			preserved = append(preserved,
				test.Preserved("r1", test.Key(day, v1.AM), "call"),
				test.Preserved("r1", test.Key(day, v1.PM), "call"),
			)
		}
		rc := runContext([]v1.Person{resident}, []v1.RotationTemplate{clinic, call}, blocks, preserved, nil)
		c, _ := manager.Get(scheduling.MaxConsecutiveCallCapName)
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-06", v1.AM), Template: "call"}).Allowed).To(BeFalse())
		// A non-call clinic block does not extend the chain.
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-06", v1.AM), Template: "clinic"}).Allowed).To(BeTrue())
	})
	It("should keep one day in seven free for residents", func() {
		ward := test.Template(test.TemplateOptions{ID: "ward", Activity: v1.ActivityInpatient, MaxHeadcount: 4})
		var preserved []v1.Assignment
		for _, day := range []string{"2025-03-03", "2025-03-04", "2025-03-05", "2025-03-06", "2025-03-07", "2025-03-08"} {
			preserved = append(preserved, test.Preserved("r1", test.Key(day, v1.AM), "ward"))
		}
		rc := runContext([]v1.Person{resident}, []v1.RotationTemplate{clinic, ward}, blocks, preserved, nil)
		c, _ := manager.Get(scheduling.OneDayOffIn7Name)
		// 03-09 would close out a fully occupied 03-03..03-09 window.
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-09", v1.AM), Template: "clinic"}).Allowed).To(BeFalse())
		// 03-10 leaves 03-09 free in every window containing it.
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "r1", Block: test.Key("2025-03-10", v1.AM), Template: "clinic"}).Allowed).To(BeTrue())
	})
})

var _ = Describe("Post-FMIT Rules", func() {
	var (
		faculty v1.Person
		clinic  v1.RotationTemplate
		fmit    v1.RotationTemplate
		blocks  []v1.Block
		rc      *scheduling.RunContext
	)
	BeforeEach(func() {
		faculty = test.Faculty(test.PersonOptions{ID: "f1"})
		clinic = test.Template(test.TemplateOptions{ID: "clinic"})
		fmit = test.Template(test.TemplateOptions{ID: "fmit", Activity: v1.ActivityInpatient, MaxHeadcount: 2, Tags: []string{v1.TagFMIT}})
		blocks = test.BlocksOver(test.Day("2025-03-03"), 21)
		var preserved []v1.Assignment
		for _, day := range []string{"2025-03-03", "2025-03-04", "2025-03-05", "2025-03-06", "2025-03-07"} {
			preserved = append(preserved,
				test.Preserved("f1", test.Key(day, v1.AM), "fmit"),
				test.Preserved("f1", test.Key(day, v1.PM), "fmit"),
			)
		}
		rc = runContext([]v1.Person{faculty}, []v1.RotationTemplate{clinic, fmit}, blocks, preserved, nil)
	})

	It("should block the following Friday from clinic", func() {
		c, _ := manager.Get(scheduling.PostFMITRecoveryName)
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "f1", Block: test.Key("2025-03-14", v1.AM), Template: "clinic"}).Allowed).To(BeFalse())
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "f1", Block: test.Key("2025-03-13", v1.AM), Template: "clinic"}).Allowed).To(BeTrue())
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "f1", Block: test.Key("2025-03-21", v1.AM), Template: "clinic"}).Allowed).To(BeTrue())
	})
	It("should block the Sunday closing the FMIT week", func() {
		c, _ := manager.Get(scheduling.PostFMITSundayBlockingName)
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "f1", Block: test.Key("2025-03-09", v1.AM), Template: "clinic"}).Allowed).To(BeFalse())
		Expect(c.Propagate(rc, scheduling.Candidate{Person: "f1", Block: test.Key("2025-03-16", v1.AM), Template: "clinic"}).Allowed).To(BeTrue())
	})
})
