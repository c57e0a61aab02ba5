// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package tuners

import "errors"

type Severity byte

const (
	Fatal = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Fatal:
		return "Fatal"
	case Warning:
		return "Warning"
	}
	panic("Wrong checker severity")
}

type CheckerID int

const (
	CPUGovernorChecker CheckerID = iota
	CPUFreqHelperChecker
	ModulesLoadFileChecker
	KernelModuleChecker
	SysctlDropInChecker
	SysctlChecker
	THPEnabledChecker
	THPDefragChecker
	THPUnitChecker
	SchedulerChecker
	UdevRuleChecker
)

// ErrNotApplicable is returned by checkers whose setting doesn't exist on
// this host, e.g. a sysctl unknown to the running kernel.
var ErrNotApplicable = errors.New("not applicable")

type CheckResult struct {
	CheckerID CheckerID
	IsOk      bool
	// NotApplicable is set when the checked setting doesn't exist on this
	// host. Current is then "N/A".
	NotApplicable bool
	Err           error
	Current       string
	Desc          string
	Severity      Severity
	Required      string
}

type Checker interface {
	ID() CheckerID
	GetDesc() string
	Check() *CheckResult
	GetRequiredAsString() string
	GetSeverity() Severity
}
