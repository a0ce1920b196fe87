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
	"errors"
	"fmt"
)

// InvariantViolationError signals that caller-supplied inputs break a domain
// invariant. It is fatal for the operation that received the inputs; the core
// returns it without modifying anything.
type InvariantViolationError struct {
	message string
}

func NewInvariantViolation(format string, args ...interface{}) *InvariantViolationError {
	return &InvariantViolationError{message: fmt.Sprintf(format, args...)}
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.message)
}

// IsInvariantViolation reports whether any error in err's chain is an
// InvariantViolationError.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolationError
	return errors.As(err, &iv)
}
