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

package test

import (
	"context"

	"github.com/samber/lo"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/storage"
)

var _ storage.Repository = (*Repository)(nil)

// Repository is an in-memory repository for suites, with fault injection.
type Repository struct {
	People      []v1.Person
	Blocks      []v1.Block
	Templates   []v1.RotationTemplate
	Assignments []v1.Assignment
	// Err, when set, fails every list call.
	Err error
}

func (r *Repository) ListPeople(_ context.Context, filter storage.PersonFilter) ([]v1.Person, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return lo.Filter(r.People, func(p v1.Person, _ int) bool {
		if filter.Kind != "" && p.Kind != filter.Kind {
			return false
		}
		return len(filter.IDs) == 0 || lo.Contains(filter.IDs, p.ID)
	}), nil
}

func (r *Repository) ListBlocks(_ context.Context, window v1.Window) ([]v1.Block, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return lo.Filter(r.Blocks, func(b v1.Block, _ int) bool { return window.Contains(b.Date) }), nil
}

func (r *Repository) ListTemplates(_ context.Context, filter storage.TemplateFilter) ([]v1.RotationTemplate, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return lo.Filter(r.Templates, func(t v1.RotationTemplate, _ int) bool {
		if len(filter.Activities) > 0 && !lo.Contains(filter.Activities, t.Activity) {
			return false
		}
		return len(filter.IDs) == 0 || lo.Contains(filter.IDs, t.ID)
	}), nil
}

func (r *Repository) ListAssignments(_ context.Context, window v1.Window) ([]v1.Assignment, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return lo.Filter(r.Assignments, func(a v1.Assignment, _ int) bool {
		return window.Contains(Day(a.Block.Day))
	}), nil
}
