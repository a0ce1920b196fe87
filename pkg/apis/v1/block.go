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

// HalfDay splits a date into the two scheduling atoms the core understands.
// AM precedes PM on the same date.
type HalfDay string

const (
	AM HalfDay = "AM"
	PM HalfDay = "PM"
)

// DateLayout is the canonical textual form of a block date. Block dates are
// calendar days; the time-of-day component of Date is always zero, UTC.
const DateLayout = "2006-01-02"

// Block is a single (date, half-of-day) scheduling atom belonging to exactly
// one academic block number.
type Block struct {
	Date time.Time `json:"date"`
	Half HalfDay   `json:"half"`
	// Number is the academic block this atom belongs to.
	Number int `json:"number"`
}

// BlockKey is the comparable identity of a block, usable as a map key. The
// lexicographic order of keys is chronological order.
type BlockKey struct {
	Day  string  `json:"day"`
	Half HalfDay `json:"half"`
}

func (k BlockKey) String() string { return fmt.Sprintf("%s/%s", k.Day, k.Half) }

// Before reports whether k is chronologically earlier than other. AM sorts
// before PM on the same day.
func (k BlockKey) Before(other BlockKey) bool {
	if k.Day != other.Day {
		return k.Day < other.Day
	}
	return k.Half == AM && other.Half == PM
}

func (b Block) Key() BlockKey {
	return BlockKey{Day: b.Date.UTC().Format(DateLayout), Half: b.Half}
}

func (b Block) Before(other Block) bool { return b.Key().Before(other.Key()) }

// Weekday of the block's date.
func (b Block) Weekday() time.Weekday { return b.Date.UTC().Weekday() }

// Validate enforces the block invariants.
func (b Block) Validate() error {
	var errs error
	if b.Date.IsZero() {
		errs = multierr.Append(errs, fmt.Errorf("date must be set"))
	}
	if b.Half != AM && b.Half != PM {
		errs = multierr.Append(errs, fmt.Errorf("half-of-day %q must be AM or PM", b.Half))
	}
	if b.Number <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("academic block number %d must be positive", b.Number))
	}
	if !b.Date.Equal(b.Date.UTC().Truncate(24 * time.Hour)) {
		errs = multierr.Append(errs, fmt.Errorf("date %s must be a bare UTC day", b.Date))
	}
	if errs != nil {
		return NewInvariantViolation("invalid block, %s", errs)
	}
	return nil
}

// Window is an inclusive date range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Contains(day time.Time) bool {
	d := day.UTC()
	return !d.Before(w.Start.UTC()) && !d.After(w.End.UTC())
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() || w.End.Before(w.Start) {
		return NewInvariantViolation("window [%s, %s] is not a valid inclusive range", w.Start, w.End)
	}
	return nil
}
