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

	"go.uber.org/zap"
)

// NewCheckedTunable runs tuneAction only when checker reports the setting
// is not in its required state, then checks it again. Outcomes are named
// after the checker description.
func NewCheckedTunable(
	checker Checker,
	tuneAction func() TuneResult,
	supportedAction func() (supported bool, reason string),
	disablePostTuneCheck bool,
) Tunable {
	return &checkedTunable{
		checker:              checker,
		tuneAction:           tuneAction,
		supportedAction:      supportedAction,
		disablePostTuneCheck: disablePostTuneCheck,
	}
}

type checkedTunable struct {
	checker              Checker
	tuneAction           func() TuneResult
	supportedAction      func() (supported bool, reason string)
	disablePostTuneCheck bool
}

func (t *checkedTunable) CheckIfSupported() (supported bool, reason string) {
	return t.supportedAction()
}

func (t *checkedTunable) Tune() TuneResult {
	desc := t.checker.GetDesc()
	if supported, reason := t.CheckIfSupported(); !supported {
		zap.L().Sugar().Warnf("Skipping '%s': %s", desc, reason)
		return NewTuneResult(Skipped(desc, reason))
	}

	zap.L().Sugar().Debugf("Checking '%s'", desc)
	result := t.checker.Check()
	if result.Err != nil {
		return NewTuneError(desc, result.Err)
	}
	if result.NotApplicable {
		return NewTuneResult(Skipped(desc, "not available on this host"))
	}
	if result.IsOk {
		zap.L().Sugar().Debugf("Check '%s' passed, skipping tuning", desc)
		return NewTuneResult(Applied(desc, result.Current))
	}

	tuneResult := t.tuneAction()
	if tuneResult.IsFailed() || t.disablePostTuneCheck {
		return tuneResult
	}
	postTuneResult := t.checker.Check()
	if postTuneResult.Err != nil {
		return NewTuneError(desc, postTuneResult.Err)
	}
	if !postTuneResult.IsOk {
		return NewTuneError(desc, fmt.Errorf(
			"check failed after tuning, required value: '%s', current value: '%v'",
			t.checker.GetRequiredAsString(),
			postTuneResult.Current,
		))
	}
	if len(tuneResult.Outcomes()) > 0 {
		return tuneResult
	}
	return NewTuneResult(Applied(desc, postTuneResult.Current))
}
