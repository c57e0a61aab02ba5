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
	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Checkers returns the checkers of every enabled tuner, in run order.
func Checkers(fs afero.Fs, cfg *config.Config, sysctl system.Sysctl) []Checker {
	var checkers []Checker
	for _, name := range config.TunerNames() {
		if !cfg.IsEnabled(name) {
			continue
		}
		switch name {
		case config.TunerCPUGovernor:
			checkers = append(checkers,
				NewCPUGovernorChecker(fs, cfg.CPU.Governor),
				NewCPUFreqHelperChecker(fs, cfg.CPU.Governor),
			)
		case config.TunerTCPBBR:
			if len(cfg.Modules) == 0 {
				continue
			}
			checkers = append(checkers, NewModulesLoadFileChecker(fs, cfg.PolicyVersion, cfg.Modules))
			for _, m := range cfg.Modules {
				checkers = append(checkers, NewKernelModuleChecker(fs, sysctl, m))
			}
		case config.TunerSysctl:
			if len(cfg.Sysctl) == 0 {
				continue
			}
			checkers = append(checkers, NewSysctlDropInChecker(fs, cfg.PolicyVersion, cfg.Sysctl))
			for _, key := range cfg.SysctlKeys() {
				checkers = append(checkers, NewSysctlChecker(sysctl, key, cfg.Sysctl[key]))
			}
		case config.TunerTHP:
			for _, k := range thpKnobs(cfg.THP.Enabled, cfg.THP.Defrag) {
				checkers = append(checkers, NewTHPChecker(fs, k))
			}
			checkers = append(checkers,
				NewTHPUnitChecker(fs, cfg.THP.Enabled, cfg.THP.Defrag, cfg.PolicyVersion),
				NewTHPUnitEnabledChecker(fs),
			)
		case config.TunerDiskSchedule:
			if len(cfg.IOSchedulers) == 0 {
				continue
			}
			checkers = append(checkers, NewUdevRuleChecker(fs, cfg.PolicyVersion, cfg.IOSchedulers))
			devices, _, err := MatchDevices(fs, cfg.IOSchedulers)
			if err != nil {
				zap.L().Sugar().Warnf("Unable to list block devices: %v", err)
				continue
			}
			for _, d := range devices {
				checkers = append(checkers, NewDeviceSchedulerChecker(fs, d.Device, d.Scheduler))
			}
		}
	}
	return checkers
}

// Verify re-reads every managed setting and artifact. It never changes the
// host.
func Verify(fs afero.Fs, cfg *config.Config, sysctl system.Sysctl) []*CheckResult {
	var results []*CheckResult
	for _, c := range Checkers(fs, cfg, sysctl) {
		res := c.Check()
		zap.L().Sugar().Debugf("Check '%s': ok=%t current='%s'", c.GetDesc(), res.IsOk, res.Current)
		results = append(results, res)
	}
	return results
}
