// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package tuners

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type Status int

const (
	StatusApplied Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of an attempt to apply a single setting.
type Outcome struct {
	// Name identifies the setting, e.g. a sysctl key or a file path.
	Name   string
	Status Status
	// Value is the effective value after the attempt, if known.
	Value  string
	Reason string
	Err    error
}

func Applied(name, value string) Outcome {
	return Outcome{Name: name, Status: StatusApplied, Value: value}
}

func Skipped(name, reason string) Outcome {
	return Outcome{Name: name, Status: StatusSkipped, Reason: reason}
}

func Failed(name string, err error) Outcome {
	return Outcome{Name: name, Status: StatusFailed, Reason: err.Error(), Err: err}
}

type TuneResult interface {
	IsFailed() bool
	// Error merges the errors of every failed outcome.
	Error() error
	Outcomes() []Outcome
}

type tuneResult struct {
	outcomes []Outcome
	err      error
}

// NewTuneResult builds a result out of the given outcomes. The result is
// failed if any of them is.
func NewTuneResult(outcomes ...Outcome) TuneResult {
	var errs *multierror.Error
	for _, o := range outcomes {
		if o.Status != StatusFailed {
			continue
		}
		err := o.Err
		if err == nil {
			err = fmt.Errorf("%s", o.Reason)
		}
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", o.Name, err))
	}
	return &tuneResult{outcomes: outcomes, err: errs.ErrorOrNil()}
}

// NewTuneError returns a failed result for the setting name.
func NewTuneError(name string, err error) TuneResult {
	return NewTuneResult(Failed(name, err))
}

func (result *tuneResult) IsFailed() bool {
	return result.err != nil
}

func (result *tuneResult) Error() error {
	return result.err
}

func (result *tuneResult) Outcomes() []Outcome {
	return result.outcomes
}
