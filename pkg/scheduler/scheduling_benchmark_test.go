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

package scheduler_test

import (
	"context"
	"fmt"
	"testing"

	clock "k8s.io/utils/clock/testing"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/scheduler"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
	"github.com/eudaimonia/rostercore/pkg/test"
)

func benchmarkContext(residents, days int) v1.SchedulingContext {
	start := test.Day("2025-03-03")
	var people []v1.Person
	for i := 1; i <= residents; i++ {
		people = append(people, test.Resident(test.PersonOptions{ID: v1.PersonID(fmt.Sprintf("r%03d", i)), PGY: v1.PGY(i%3 + 1)}))
	}
	for i := 1; i <= residents/3+1; i++ {
		people = append(people, test.Faculty(test.PersonOptions{ID: v1.PersonID(fmt.Sprintf("f%03d", i))}))
	}
	clinic := test.Template(test.TemplateOptions{
		ID: "pc-clinic", Activity: v1.ActivityOutpatient,
		SupervisionRequired: true, MaxResidentsPerFaculty: 4,
		MaxHeadcount: 4, RequiredHeadcount: 1,
	})
	return v1.SchedulingContext{
		Window:        v1.Window{Start: start, End: start.AddDate(0, 0, days-1)},
		People:        people,
		Templates:     []v1.RotationTemplate{clinic},
		Blocks:        test.BlocksOver(start, days),
		Configuration: v1.SchedulerConfiguration{Algorithm: v1.BackendGreedy, Seed: 1},
	}
}

func BenchmarkGreedy28Days(b *testing.B) {
	sctx := benchmarkContext(25, 28)
	s := scheduler.NewScheduler(clock.NewFakeClock(test.Day("2025-03-01")), nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Solve(context.Background(), scheduling.NewDefaultManager(), sctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGreedy84Days(b *testing.B) {
	sctx := benchmarkContext(50, 84)
	s := scheduler.NewScheduler(clock.NewFakeClock(test.Day("2025-03-01")), nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Solve(context.Background(), scheduling.NewDefaultManager(), sctx); err != nil {
			b.Fatal(err)
		}
	}
}
