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
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/redpanda-data/hvtune/pkg/utils"
)

// NewAggregatedTunable runs every tunable in order. A failing tunable does
// not prevent the next ones from running.
func NewAggregatedTunable(tunables []Tunable) Tunable {
	return &aggregatedTunable{tunables}
}

type aggregatedTunable struct {
	tunables []Tunable
}

// CheckIfSupported reports the aggregate as supported if any of its
// tunables is. Unsupported tunables are reported as skipped when tuning.
func (t *aggregatedTunable) CheckIfSupported() (supported bool, reason string) {
	var reasons []string
	for _, tunable := range t.tunables {
		supported, reason := tunable.CheckIfSupported()
		if supported {
			return true, ""
		}
		if reason != "" && !utils.ContainsString(reasons, reason) {
			reasons = append(reasons, reason)
		}
	}
	return false, strings.Join(reasons, "; ")
}

func (t *aggregatedTunable) Tune() TuneResult {
	var outcomes []Outcome
	var errs *multierror.Error
	for _, tunable := range t.tunables {
		result := tunable.Tune()
		outcomes = append(outcomes, result.Outcomes()...)
		if result.IsFailed() {
			errs = multierror.Append(errs, result.Error())
		}
	}
	return &tuneResult{outcomes: outcomes, err: errs.ErrorOrNil()}
}
