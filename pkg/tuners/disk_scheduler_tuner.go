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
	"strings"
	"time"

	hvos "github.com/redpanda-data/hvtune/pkg/os"
	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors/commands"
	"github.com/redpanda-data/hvtune/pkg/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// UdevRulePath holds one rule per configured device pattern, so that the
// schedulers survive reboots and hotplug.
const UdevRulePath = "/etc/udev/rules.d/60-hvtune-io-scheduler.rules"

// RenderUdevRules renders one rule per pattern, sorted by pattern.
func RenderUdevRules(policyVersion int, schedulers map[string]string) string {
	var b strings.Builder
	b.WriteString(managedHeader(policyVersion) + "\n")
	for _, pattern := range utils.GetKeysFromStringMap(schedulers) {
		fmt.Fprintf(&b,
			`ACTION=="add|change", SUBSYSTEM=="block", KERNEL=="%s", ATTR{queue/scheduler}="%s"`+"\n",
			pattern, schedulers[pattern],
		)
	}
	return b.String()
}

// DeviceScheduler is a block device and the scheduler it should use.
type DeviceScheduler struct {
	Device    string
	Scheduler string
}

// MatchDevices resolves the configured patterns against /sys/block. A device
// matching several patterns gets the scheduler of the first one in sorted
// order. Patterns matching no device are returned separately.
func MatchDevices(fs afero.Fs, schedulers map[string]string) ([]DeviceScheduler, []string, error) {
	var matched []DeviceScheduler
	var unmatched []string
	seen := make(map[string]bool)
	for _, pattern := range utils.GetKeysFromStringMap(schedulers) {
		devices, err := system.GetBlockDevices(fs, pattern)
		if err != nil {
			return nil, nil, err
		}
		if len(devices) == 0 {
			unmatched = append(unmatched, pattern)
		}
		for _, d := range devices {
			if seen[d] {
				zap.L().Sugar().Debugf("%s matches %q but was already matched by another pattern", d, pattern)
				continue
			}
			seen[d] = true
			matched = append(matched, DeviceScheduler{Device: d, Scheduler: schedulers[pattern]})
		}
	}
	return matched, unmatched, nil
}

type diskSchedulerTuner struct {
	fs            afero.Fs
	schedulers    map[string]string
	policyVersion int
	proc          hvos.Proc
	executor      executors.Executor
	timeout       time.Duration
}

// NewDiskSchedulerTuner sets the scheduler of every device matching one of
// the patterns in schedulers, then persists them through a udev rule.
func NewDiskSchedulerTuner(
	fs afero.Fs,
	schedulers map[string]string,
	policyVersion int,
	proc hvos.Proc,
	executor executors.Executor,
	timeout time.Duration,
) Tunable {
	return &diskSchedulerTuner{
		fs:            fs,
		schedulers:    schedulers,
		policyVersion: policyVersion,
		proc:          proc,
		executor:      executor,
		timeout:       timeout,
	}
}

func (t *diskSchedulerTuner) CheckIfSupported() (bool, string) {
	if len(t.schedulers) == 0 {
		return false, "no io schedulers configured"
	}
	return true, ""
}

func (t *diskSchedulerTuner) Tune() TuneResult {
	var outcomes []Outcome
	devices, unmatched, err := MatchDevices(t.fs, t.schedulers)
	if err != nil {
		outcomes = append(outcomes, Failed("/sys/block", err))
	}
	for _, pattern := range unmatched {
		outcomes = append(outcomes, Skipped(pattern, "no matching block device"))
	}
	var tunables []Tunable
	for _, ds := range devices {
		tunables = append(tunables, NewDeviceSchedulerTuner(t.fs, ds.Device, ds.Scheduler, t.executor))
	}
	outcomes = append(outcomes, NewAggregatedTunable(tunables).Tune().Outcomes()...)

	outcomes = append(outcomes, Execute(
		t.executor,
		UdevRulePath,
		fmt.Sprintf("%d rules", len(t.schedulers)),
		commands.NewReplaceFileCmd(t.fs, UdevRulePath, RenderUdevRules(t.policyVersion, t.schedulers), 0o644),
	))
	outcomes = append(outcomes, t.reloadUdev())
	return NewTuneResult(outcomes...)
}

func (t *diskSchedulerTuner) reloadUdev() Outcome {
	const name = "udevadm"
	for _, args := range [][]string{
		{"control", "--reload-rules"},
		{"trigger", "--subsystem-match=block", "--action=change"},
	} {
		err := t.executor.Execute(commands.NewLaunchCmd(t.proc, t.timeout, "udevadm", args...))
		if err != nil {
			return Failed(name, fmt.Errorf("udevadm %s: %w", args[0], err))
		}
	}
	if t.executor.IsLazy() {
		return Skipped(name, ReasonScripted)
	}
	return Applied(name, "rules reloaded")
}

// NewDeviceSchedulerTuner sets the scheduler of a single device. Devices that
// don't offer it are left untouched.
func NewDeviceSchedulerTuner(
	fs afero.Fs, device, scheduler string, executor executors.Executor,
) Tunable {
	checker := NewDeviceSchedulerChecker(fs, device, scheduler)
	return NewCheckedTunable(
		checker,
		func() TuneResult {
			return NewTuneResult(Execute(
				executor,
				checker.GetDesc(),
				scheduler,
				commands.NewWriteFileCmd(fs, system.SchedulerFile(device), scheduler),
			))
		},
		func() (bool, string) {
			opts, err := system.GetSchedulerOptions(fs, device)
			if err != nil {
				return false, fmt.Sprintf("unable to read schedulers: %v", err)
			}
			if !opts.IsAvailable(scheduler) {
				return false, fmt.Sprintf("scheduler %q is not offered, available: %s, keeping %s",
					scheduler, strings.Join(opts.GetAvailable(), ", "), opts.GetActive())
			}
			return true, ""
		},
		executor.IsLazy(),
	)
}

func NewDeviceSchedulerChecker(fs afero.Fs, device, scheduler string) Checker {
	return NewEqualityChecker(
		SchedulerChecker,
		device+" scheduler",
		Warning,
		scheduler,
		func() (interface{}, error) {
			opts, err := system.GetSchedulerOptions(fs, device)
			if err != nil {
				return nil, err
			}
			if !opts.IsAvailable(scheduler) {
				return nil, ErrNotApplicable
			}
			return opts.GetActive(), nil
		},
	)
}

func NewUdevRuleChecker(fs afero.Fs, policyVersion int, schedulers map[string]string) Checker {
	return NewFileContentChecker(fs, UdevRuleChecker, UdevRulePath, RenderUdevRules(policyVersion, schedulers))
}
