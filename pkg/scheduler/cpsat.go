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

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	v1 "github.com/eudaimonia/rostercore/pkg/apis/v1"
	"github.com/eudaimonia/rostercore/pkg/scheduling"
)

// ErrSolverUnavailable is returned by SatSolver implementations that have no
// constraint-programming engine to call. The pipeline turns it into a greedy
// fallback.
var ErrSolverUnavailable = errors.New("constraint-programming solver unavailable")

// SatVariable is one binary decision x[p,b,t]: person p serves template t on
// block b.
type SatVariable struct {
	Person   v1.PersonID
	Block    v1.BlockKey
	Template v1.TemplateID
}

// SatTerm is coefficient * variable in a linear expression.
type SatTerm struct {
	Var  int
	Coef float64
}

// SatConstraint bounds a linear expression: Min <= sum(terms) <= Max.
type SatConstraint struct {
	Name  string
	Terms []SatTerm
	Min   float64
	Max   float64
}

// SatModel is the integer program handed to the external solver. Hard
// constraints appear as linear rows; soft constraints as penalized objective
// terms. Lower objective is better.
type SatModel struct {
	Vars        []SatVariable
	Constraints []SatConstraint
	Objective   []SatTerm
}

// SatSolution is the external solver's answer.
type SatSolution struct {
	// Values holds the assignment of each variable, indexed like Vars.
	Values []bool
	// Feasible reports whether Values satisfies the model.
	Feasible bool
	// ProvenInfeasible reports that the solver proved no solution exists.
	ProvenInfeasible bool
	Objective        float64
}

// SatSolver is the boundary to an external constraint-programming engine.
// The interface does not prescribe a solver library; callers inject one.
type SatSolver interface {
	Solve(ctx context.Context, model *SatModel, deadline time.Time) (SatSolution, error)
}

// UnavailableSatSolver is the default injection when no engine is linked in.
type UnavailableSatSolver struct{}

func (UnavailableSatSolver) Solve(context.Context, *SatModel, time.Time) (SatSolution, error) {
	return SatSolution{}, ErrSolverUnavailable
}

// CPSATBackend models the run as binary decision variables with linear hard
// constraints and a penalized objective, then delegates to the injected
// solver.
type CPSATBackend struct {
	solver SatSolver
}

func NewCPSATBackend(solver SatSolver) *CPSATBackend {
	if solver == nil {
		solver = UnavailableSatSolver{}
	}
	return &CPSATBackend{solver: solver}
}

func (c *CPSATBackend) Name() string { return v1.BackendCPSAT }

func (c *CPSATBackend) Solve(ctx context.Context, rc *scheduling.RunContext, manager *scheduling.Manager, candidates []scheduling.Candidate, deadline time.Time) (Solution, error) {
	model := c.buildModel(rc, manager, candidates)
	answer, err := c.solver.Solve(ctx, model, deadline)
	if err != nil {
		return Solution{}, fmt.Errorf("invoking sat solver, %w", err)
	}
	if answer.ProvenInfeasible {
		return Solution{Infeasible: true}, nil
	}
	if !answer.Feasible {
		return Solution{TimedOut: true}, nil
	}

	var solution Solution
	solution.Cost = answer.Objective
	for i, selected := range answer.Values {
		if !selected || i >= len(model.Vars) {
			continue
		}
		v := model.Vars[i]
		assignment := v1.Assignment{
			Person:   v.Person,
			Block:    v.Block,
			Template: v.Template,
			Role:     v1.RolePrimary,
			Notes:    "backend:" + c.Name(),
		}
		if err := rc.Roster.Commit(assignment); err != nil {
			return Solution{}, fmt.Errorf("sat solution violates slot uniqueness, %w", err)
		}
		solution.Assignments = append(solution.Assignments, assignment)
	}
	solution.Iterations = 1
	return solution, nil
}

// buildModel lowers the candidate set to an integer program. One variable per
// candidate; per-slot uniqueness and per-template headcount as rows; soft
// scores and a coverage reward as the objective.
func (c *CPSATBackend) buildModel(rc *scheduling.RunContext, manager *scheduling.Manager, candidates []scheduling.Candidate) *SatModel {
	model := &SatModel{}
	perPersonBlock := map[v1.SlotKey][]SatTerm{}
	perBlockTemplate := map[slotKey][]SatTerm{}
	for i, candidate := range candidates {
		model.Vars = append(model.Vars, SatVariable{Person: candidate.Person, Block: candidate.Block, Template: candidate.Template})
		pb := v1.SlotKey{Person: candidate.Person, Block: candidate.Block}
		perPersonBlock[pb] = append(perPersonBlock[pb], SatTerm{Var: i, Coef: 1})
		bt := slotKey{Block: candidate.Block, Template: candidate.Template}
		perBlockTemplate[bt] = append(perBlockTemplate[bt], SatTerm{Var: i, Coef: 1})

		// Coverage reward dominates; soft penalties discriminate.
		model.Objective = append(model.Objective, SatTerm{Var: i, Coef: manager.Cost(rc, candidate) - coverageReward})
	}
	for _, candidate := range candidates {
		pb := v1.SlotKey{Person: candidate.Person, Block: candidate.Block}
		if terms, ok := perPersonBlock[pb]; ok {
			model.Constraints = append(model.Constraints, SatConstraint{
				Name:  fmt.Sprintf("unique/%s/%s", pb.Person, pb.Block),
				Terms: terms,
				Max:   1,
			})
			delete(perPersonBlock, pb)
		}
		bt := slotKey{Block: candidate.Block, Template: candidate.Template}
		if terms, ok := perBlockTemplate[bt]; ok {
			template, _ := rc.Roster.Template(bt.Template)
			headroom := fillTarget(template) - len(rc.Roster.OnTemplate(bt.Block, bt.Template))
			model.Constraints = append(model.Constraints, SatConstraint{
				Name:  fmt.Sprintf("headcount/%s/%s", bt.Template, bt.Block),
				Terms: terms,
				Max:   float64(max(headroom, 0)),
			})
			delete(perBlockTemplate, bt)
		}
	}
	return model
}

// coverageReward is the objective credit for covering one slot. It exceeds
// the largest plausible composite soft penalty so the solver never leaves a
// coverable slot empty to dodge a soft cost.
const coverageReward = 1000.0

var _ Backend = (*CPSATBackend)(nil)
