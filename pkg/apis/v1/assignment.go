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

package v1

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Role describes why a person is on a block.
type Role string

const (
	RolePrimary     Role = "Primary"
	RoleSupervising Role = "Supervising"
	RoleBackup      Role = "Backup"
)

// Assignment binds one person to one rotation template for one block.
// (Person, Block) is unique across all assignments: a person holds at most one
// half-day slot.
type Assignment struct {
	Person   PersonID   `json:"person"`
	Block    BlockKey   `json:"block"`
	Template TemplateID `json:"template"`
	Role     Role       `json:"role"`
	// Immutable assignments must not be modified or deleted by the solver.
	// Every assignment of a non-solver-managed template is immutable.
	Immutable bool `json:"immutable,omitempty"`
	// Notes records provenance, e.g. the backend that produced the assignment.
	Notes string `json:"notes,omitempty" hash:"ignore"`
}

// SlotKey identifies the (person, block) slot an assignment occupies.
type SlotKey struct {
	Person PersonID
	Block  BlockKey
}

func (a Assignment) Slot() SlotKey { return SlotKey{Person: a.Person, Block: a.Block} }

func (a Assignment) String() string {
	return fmt.Sprintf("%s@%s/%s", a.Person, a.Block, a.Template)
}

// Validate enforces the assignment field invariants. Cross-assignment
// uniqueness is enforced by the run's roster on construction.
func (a Assignment) Validate() error {
	var errs error
	if a.Person == "" {
		errs = multierr.Append(errs, fmt.Errorf("person must not be empty"))
	}
	if a.Template == "" {
		errs = multierr.Append(errs, fmt.Errorf("template must not be empty"))
	}
	if a.Block.Day == "" {
		errs = multierr.Append(errs, fmt.Errorf("block must be set"))
	}
	if _, err := time.Parse(DateLayout, a.Block.Day); a.Block.Day != "" && err != nil {
		errs = multierr.Append(errs, fmt.Errorf("parsing block day %q, %w", a.Block.Day, err))
	}
	if a.Block.Half != AM && a.Block.Half != PM {
		errs = multierr.Append(errs, fmt.Errorf("half-of-day %q must be AM or PM", a.Block.Half))
	}
	switch a.Role {
	case RolePrimary, RoleSupervising, RoleBackup:
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown role %q", a.Role))
	}
	if errs != nil {
		return NewInvariantViolation("invalid assignment %s, %s", a, errs)
	}
	return nil
}
