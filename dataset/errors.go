// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound         = errors.New("dataset not configured")
	ErrSourceUnavailable      = errors.New("dataset source unavailable")
	ErrPipelineInitialization = errors.New("pipeline initialization failed")
	ErrNotInitialized         = errors.New("dataset not initialized")
	ErrEmptyQuestion          = errors.New("no question provided")
	ErrQueryExecution         = errors.New("query execution failed")
	ErrBuildTimeout           = errors.New("dataset build timed out")
	ErrInvalidConfig          = errors.New("invalid dataset config")
	ErrInvalidBuildTimeout    = errors.New("build timeout must not be negative")
	ErrManagerClosed          = errors.New("dataset manager is closed")

	ErrRegistryRequired      = errors.New("registry is required")
	ErrChunkerRequired       = errors.New("chunker is required")
	ErrGraphBuilderRequired  = errors.New("graph builder is required")
	ErrEngineFactoryRequired = errors.New("engine factory is required")
	ErrManagerRequired       = errors.New("manager is required")
)

// Error is a dataset operation failure. It matches both its Kind and its Cause
// with errors.Is.
type Error struct {
	Kind    error
	Dataset string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("dataset %q: %v", e.Dataset, e.Kind)
	}
	return fmt.Sprintf("dataset %q: %v: %v", e.Dataset, e.Kind, e.Cause)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Cause returns the underlying cause of a dataset error, or err itself when
// there is none. Use it to build user-facing messages.
func Cause(err error) error {
	var de *Error
	if errors.As(err, &de) {
		if de.Cause != nil {
			return de.Cause
		}
		return de.Kind
	}
	return err
}

func newError(kind error, id string, cause error) *Error {
	return &Error{Kind: kind, Dataset: id, Cause: cause}
}
