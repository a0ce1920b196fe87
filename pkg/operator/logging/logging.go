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

// Package logging builds the loggers the core accepts. The core itself only
// depends on logr; construction of a production zap logger lives here so
// callers get a one-liner and tests get NopLogger.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// NopLogger discards everything. It is the default wherever no logger is
// injected.
var NopLogger = logr.Discard()

// NewLogger returns a production-configured zap logger wrapped as a logr
// sink. Debug enables development encoding and verbosity.
func NewLogger(debug bool) logr.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	zl, err := cfg.Build()
	if err != nil {
		return NopLogger
	}
	return zapr.NewLogger(zl.Named("rostercore"))
}
