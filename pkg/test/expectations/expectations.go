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

// Package expectations holds gomega helpers shared by the suites.
package expectations

import (
	"github.com/onsi/gomega"
	dto "github.com/prometheus/client_model/go"
	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/metrics"
)

// ExpectUniqueSlots asserts the (person, block) uniqueness invariant over a
// set of assignments.
func ExpectUniqueSlots(assignments []v1.Assignment) {
	slots := lo.Map(assignments, func(a v1.Assignment, _ int) v1.SlotKey { return a.Slot() })
	gomega.Expect(slots).To(gomega.HaveLen(len(lo.Uniq(slots))))
}

// ExpectSolverScope asserts no assignment's template is outside the solver's
// scope.
func ExpectSolverScope(assignments []v1.Assignment, templates []v1.RotationTemplate) {
	byID := lo.KeyBy(templates, func(t v1.RotationTemplate) v1.TemplateID { return t.ID })
	for _, a := range assignments {
		template, ok := byID[a.Template]
		gomega.Expect(ok).To(gomega.BeTrue(), "unknown template %s", a.Template)
		gomega.Expect(template.Activity.SolverManaged()).To(gomega.BeTrue(),
			"assignment %s uses non-solver-managed template", a)
	}
}

// ExpectPreservedIntact asserts that no produced assignment shares a slot
// with a preserved one. It does not look for the preserved assignments
// themselves in the produced set.
func ExpectPreservedIntact(preserved, produced []v1.Assignment) {
	producedSlots := lo.SliceToMap(produced, func(a v1.Assignment) (v1.SlotKey, struct{}) { return a.Slot(), struct{}{} })
	for _, p := range preserved {
		_, collides := producedSlots[p.Slot()]
		gomega.Expect(collides).To(gomega.BeFalse(), "produced assignment collides with preserved %s", p)
	}
}

// GetMetricCount reads a counter value from the core's registry. Returns
// zero when the series does not exist yet.
func GetMetricCount(name string, labels map[string]string) float64 {
	families, err := metrics.Registry.Gather()
	gomega.Expect(err).ToNot(gomega.HaveOccurred())
	family, ok := lo.Find(families, func(f *dto.MetricFamily) bool { return f.GetName() == name })
	if !ok {
		return 0
	}
	for _, m := range family.GetMetric() {
		if matchesLabels(m, labels) {
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func matchesLabels(m *dto.Metric, labels map[string]string) bool {
	have := lo.SliceToMap(m.GetLabel(), func(l *dto.LabelPair) (string, string) {
		return l.GetName(), l.GetValue()
	})
	for k, want := range labels {
		if have[k] != want {
			return false
		}
	}
	return true
}
