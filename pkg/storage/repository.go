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

// Package storage defines the repository interface the core loads entities
// through. It is the only I/O on the critical path; the core persists
// nothing. The caller implements the interface; failures are propagated
// unchanged as RepositoryError.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
)

// PersonFilter narrows ListPeople. Zero value selects everyone.
type PersonFilter struct {
	Kind v1.PersonKind
	IDs  []v1.PersonID
}

// TemplateFilter narrows ListTemplates. Zero value selects every template.
type TemplateFilter struct {
	Activities []v1.ActivityType
	IDs        []v1.TemplateID
}

// Repository is implemented by the external collaborator. Every call is
// bounded by the caller's I/O layer; the core adds bounded retries on top.
type Repository interface {
	ListPeople(ctx context.Context, filter PersonFilter) ([]v1.Person, error)
	ListBlocks(ctx context.Context, window v1.Window) ([]v1.Block, error)
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]v1.RotationTemplate, error)
	ListAssignments(ctx context.Context, window v1.Window) ([]v1.Assignment, error)
}

// RepositoryError wraps a collaborator failure. The facade performs no
// cleanup on it because it has mutated nothing.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %s", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// IsRepositoryError reports whether any error in err's chain is a
// RepositoryError.
func IsRepositoryError(err error) bool {
	var re *RepositoryError
	return errors.As(err, &re)
}

const (
	loadAttempts = 3
	loadBackoff  = 50 * time.Millisecond
)

// RetryingRepository wraps a repository with bounded retries. A final failure
// surfaces as RepositoryError naming the operation.
type RetryingRepository struct {
	inner Repository
}

func NewRetryingRepository(inner Repository) *RetryingRepository {
	return &RetryingRepository{inner: inner}
}

func (r *RetryingRepository) ListPeople(ctx context.Context, filter PersonFilter) ([]v1.Person, error) {
	return load(ctx, "list people", func() ([]v1.Person, error) { return r.inner.ListPeople(ctx, filter) })
}

func (r *RetryingRepository) ListBlocks(ctx context.Context, window v1.Window) ([]v1.Block, error) {
	return load(ctx, "list blocks", func() ([]v1.Block, error) { return r.inner.ListBlocks(ctx, window) })
}

func (r *RetryingRepository) ListTemplates(ctx context.Context, filter TemplateFilter) ([]v1.RotationTemplate, error) {
	return load(ctx, "list templates", func() ([]v1.RotationTemplate, error) { return r.inner.ListTemplates(ctx, filter) })
}

func (r *RetryingRepository) ListAssignments(ctx context.Context, window v1.Window) ([]v1.Assignment, error) {
	return load(ctx, "list assignments", func() ([]v1.Assignment, error) { return r.inner.ListAssignments(ctx, window) })
}

func load[T any](ctx context.Context, op string, list func() ([]T, error)) ([]T, error) {
	var out []T
	err := retry.Do(func() error {
		var listErr error
		out, listErr = list()
		return listErr
	},
		retry.Attempts(loadAttempts),
		retry.Delay(loadBackoff),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
	)
	if err != nil {
		return nil, &RepositoryError{Op: op, Err: err}
	}
	return out, nil
}
