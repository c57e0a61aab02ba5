// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package cpu

import (
	"errors"
	"fmt"
	"time"

	hvos "github.com/redpanda-data/hvtune/pkg/os"
	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/system/systemd"
	"github.com/redpanda-data/hvtune/pkg/tuners"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors/commands"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Package installs can take a while on a cold package cache.
const minInstallTimeout = 5 * time.Minute

const governorOutcome = "scaling_governor"

type tuner struct {
	fs       afero.Fs
	governor string
	proc     hvos.Proc
	client   systemd.Client
	executor executors.Executor
	timeout  time.Duration
}

// NewGovernorTuner sets the scaling governor of every CPU and configures the
// distro frequency helper to restore it at boot. client may be nil when
// systemd isn't reachable.
func NewGovernorTuner(
	fs afero.Fs,
	governor string,
	proc hvos.Proc,
	client systemd.Client,
	executor executors.Executor,
	timeout time.Duration,
) tuners.Tunable {
	return &tuner{
		fs:       fs,
		governor: governor,
		proc:     proc,
		client:   client,
		executor: executor,
		timeout:  timeout,
	}
}

func (tuner *tuner) CheckIfSupported() (supported bool, reason string) {
	governors, err := system.GetCPUGovernors(tuner.fs)
	if err != nil {
		return false, fmt.Sprintf("unable to list CPU governors: %v", err)
	}
	if len(governors) == 0 {
		return false, "CPU frequency scaling is not available on this host"
	}
	return true, ""
}

func (tuner *tuner) Tune() tuners.TuneResult {
	zap.L().Sugar().Debug("Running CPU governor tuner...")
	governors, err := system.GetCPUGovernors(tuner.fs)
	if err != nil {
		return tuners.NewTuneError(governorOutcome, err)
	}
	if len(governors) == 0 {
		return tuners.NewTuneResult(tuners.Skipped(governorOutcome, "CPU frequency scaling is not available on this host"))
	}
	if online, err := system.GetOnlineCPUs(); err == nil {
		zap.L().Sugar().Debugf("Running on system with '%d' online CPUs, '%d' with frequency scaling",
			online, len(governors))
	}
	outcomes := tuner.setGovernors(governors)
	outcomes = append(outcomes, tuner.persist()...)
	return tuners.NewTuneResult(outcomes...)
}

func (tuner *tuner) setGovernors(governors []system.CPUGovernor) []tuners.Outcome {
	var outcomes []tuners.Outcome
	set := 0
	for _, g := range governors {
		ok, err := g.Supports(tuner.fs, tuner.governor)
		if err != nil {
			outcomes = append(outcomes, tuners.Failed(g.String(), err))
			continue
		}
		if !ok {
			zap.L().Sugar().Warnf("Governor '%s' is not available for %s, leaving it untouched", tuner.governor, g)
			outcomes = append(outcomes, tuners.Skipped(g.String(),
				fmt.Sprintf("governor %q is not offered", tuner.governor)))
			continue
		}
		current, err := g.Current(tuner.fs)
		if err != nil {
			outcomes = append(outcomes, tuners.Failed(g.String(), err))
			continue
		}
		if current == tuner.governor {
			set++
			continue
		}
		err = tuner.executor.Execute(commands.NewWriteFileCmd(tuner.fs, g.GovernorFile, tuner.governor))
		if err != nil {
			outcomes = append(outcomes, tuners.Failed(g.String(), err))
			continue
		}
		if tuner.executor.IsLazy() {
			set++
			continue
		}
		current, err = g.Current(tuner.fs)
		if err != nil {
			outcomes = append(outcomes, tuners.Failed(g.String(), err))
			continue
		}
		if current != tuner.governor {
			o := tuners.Failed(g.String(), fmt.Errorf("expected %q, got %q", tuner.governor, current))
			o.Value = current
			outcomes = append(outcomes, o)
			continue
		}
		set++
	}
	if set == 0 {
		return outcomes
	}
	summary := tuners.Applied(governorOutcome, fmt.Sprintf("%s on %d/%d cpus", tuner.governor, set, len(governors)))
	if tuner.executor.IsLazy() {
		summary = tuners.Skipped(governorOutcome, tuners.ReasonScripted)
	}
	return append([]tuners.Outcome{summary}, outcomes...)
}

// persist configures the distro helper service, installing it if needed.
func (tuner *tuner) persist() []tuners.Outcome {
	helper, err := system.DetectCPUFreqHelper(tuner.fs)
	if errors.Is(err, system.ErrNoPackageManager) {
		zap.L().Sugar().Warnf("Governor won't persist across reboots: %v", err)
		return []tuners.Outcome{tuners.Skipped("cpufreq helper", err.Error())}
	}
	if err != nil {
		return []tuners.Outcome{tuners.Failed("cpufreq helper", err)}
	}
	var (
		outcomes  []tuners.Outcome
		installed = true
	)
	if !helper.IsInstalled(tuner.fs) {
		timeout := tuner.timeout
		if timeout < minInstallTimeout {
			timeout = minInstallTimeout
		}
		zap.L().Sugar().Infof("Installing %s", helper.Package)
		o := tuners.Execute(
			tuner.executor,
			helper.Package,
			"installed",
			commands.NewLaunchCmd(tuner.proc, timeout, helper.PackageManager, helper.InstallArgs()...),
		)
		outcomes = append(outcomes, o)
		installed = o.Status != tuners.StatusFailed
	}
	// The config is written even without the helper, a later install
	// picks it up.
	outcomes = append(outcomes, tuners.Execute(
		tuner.executor,
		helper.ConfigFile,
		"governor="+tuner.governor,
		commands.NewReplaceFileCmd(tuner.fs, helper.ConfigFile,
			tuners.CPUFreqHelperConfig(helper, tuner.governor), 0o644),
	))
	if !installed {
		return append(outcomes, tuners.Skipped(helper.Service, helper.Package+" is not installed"))
	}
	if tuner.client == nil {
		return append(outcomes, tuners.Skipped(helper.Service, "systemd is not reachable"))
	}
	for _, step := range []struct {
		verb, done string
		cmd        commands.Command
	}{
		{"enable", "enabled", commands.NewEnableSystemdUnitCmd(tuner.client, helper.Service)},
		{"restart", "restarted", commands.NewRestartSystemdUnitCmd(tuner.client, helper.Service)},
	} {
		o := tuners.Execute(tuner.executor, step.verb+" "+helper.Service, step.done, step.cmd)
		outcomes = append(outcomes, o)
		if o.Status == tuners.StatusFailed {
			break
		}
	}
	return outcomes
}
