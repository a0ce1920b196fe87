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

package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/storage"
)

type flakyRepository struct {
	failures int
	calls    int
}

func (f *flakyRepository) ListPeople(context.Context, storage.PersonFilter) ([]v1.Person, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return []v1.Person{{ID: "r1", Kind: v1.KindResident, PGY: 1}}, nil
}

func (f *flakyRepository) ListBlocks(context.Context, v1.Window) ([]v1.Block, error) {
	return nil, nil
}

func (f *flakyRepository) ListTemplates(context.Context, storage.TemplateFilter) ([]v1.RotationTemplate, error) {
	return nil, nil
}

func (f *flakyRepository) ListAssignments(context.Context, v1.Window) ([]v1.Assignment, error) {
	return nil, nil
}

func TestRetryingRepositoryRecovers(t *testing.T) {
	repo := storage.NewRetryingRepository(&flakyRepository{failures: 2})
	people, err := repo.ListPeople(context.Background(), storage.PersonFilter{})
	if err != nil {
		t.Fatalf("expected recovery after transient failures, got %v", err)
	}
	if len(people) != 1 {
		t.Fatalf("expected one person, got %d", len(people))
	}
}

func TestRetryingRepositorySurfacesRepositoryError(t *testing.T) {
	repo := storage.NewRetryingRepository(&flakyRepository{failures: 10})
	_, err := repo.ListPeople(context.Background(), storage.PersonFilter{})
	if err == nil {
		t.Fatal("expected a repository error")
	}
	if !storage.IsRepositoryError(err) {
		t.Fatalf("expected RepositoryError, got %T", err)
	}
}

func TestWindowContains(t *testing.T) {
	start, _ := time.Parse(v1.DateLayout, "2025-03-03")
	end, _ := time.Parse(v1.DateLayout, "2025-03-09")
	w := v1.Window{Start: start, End: end}
	if !w.Contains(start) || !w.Contains(end) {
		t.Fatal("window bounds are inclusive")
	}
	if w.Contains(end.AddDate(0, 0, 1)) {
		t.Fatal("window must exclude days past the end")
	}
}
