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
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/system/systemd"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors/commands"
	"github.com/spf13/afero"
)

// THPUnitName re-applies the THP policy at boot, since the sysfs knobs don't
// persist.
const THPUnitName = "hvtune-thp.service"

// THPKnob is a THP sysfs knob and the mode it should be set to.
type THPKnob struct {
	File string
	Mode string
}

func thpKnobs(enabled, defrag string) []THPKnob {
	return []THPKnob{
		{File: system.THPEnabledFile, Mode: enabled},
		{File: system.THPDefragFile, Mode: defrag},
	}
}

// RenderTHPUnit renders the one-shot unit writing every knob under dir.
func RenderTHPUnit(policyVersion int, dir string, knobs []THPKnob) string {
	var execs []string
	for _, k := range knobs {
		execs = append(execs, fmt.Sprintf(
			"ExecStart=/bin/sh -c 'echo %s > %s'", k.Mode, filepath.Join(dir, k.File),
		))
	}
	return managedHeader(policyVersion) + `
[Unit]
Description=Transparent hugepage policy (hvtune)
After=multi-user.target

[Service]
Type=oneshot
RemainAfterExit=yes
` + strings.Join(execs, "\n") + `

[Install]
WantedBy=multi-user.target
`
}

// offeredKnobs returns the knobs whose mode is offered by the running kernel.
// The unit only writes those, so that it doesn't fail at boot.
func offeredKnobs(fs afero.Fs, knobs []THPKnob) []THPKnob {
	var offered []THPKnob
	for _, k := range knobs {
		opts, err := system.GetTHPOptions(fs, k.File)
		if err == nil && opts.IsAvailable(k.Mode) {
			offered = append(offered, k)
		}
	}
	return offered
}

type thpTuner struct {
	fs            afero.Fs
	knobs         []THPKnob
	policyVersion int
	client        systemd.Client
	executor      executors.Executor
}

// NewTHPTuner sets the THP enabled and defrag modes and installs a unit
// setting them at boot. client may be nil when systemd isn't reachable; the
// unit file is then written but not enabled.
func NewTHPTuner(
	fs afero.Fs,
	enabled, defrag string,
	policyVersion int,
	client systemd.Client,
	executor executors.Executor,
) Tunable {
	return &thpTuner{
		fs:            fs,
		knobs:         thpKnobs(enabled, defrag),
		policyVersion: policyVersion,
		client:        client,
		executor:      executor,
	}
}

func (t *thpTuner) CheckIfSupported() (bool, string) {
	if _, err := system.GetTHPDir(t.fs); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (t *thpTuner) Tune() TuneResult {
	dir, err := system.GetTHPDir(t.fs)
	if err != nil {
		return NewTuneResult(Skipped("transparent_hugepage", err.Error()))
	}
	var tunables []Tunable
	for _, k := range t.knobs {
		tunables = append(tunables, t.knobTunable(dir, k))
	}
	res := NewAggregatedTunable(tunables).Tune()
	outcomes := append(res.Outcomes(), t.installUnit(dir)...)
	return NewTuneResult(outcomes...)
}

func (t *thpTuner) knobTunable(dir string, knob THPKnob) Tunable {
	path := filepath.Join(dir, knob.File)
	checker := NewTHPChecker(t.fs, knob)
	return NewCheckedTunable(
		checker,
		func() TuneResult {
			return NewTuneResult(Execute(
				t.executor,
				checker.GetDesc(),
				knob.Mode,
				commands.NewWriteFileCmd(t.fs, path, knob.Mode),
			))
		},
		func() (bool, string) {
			opts, err := system.ReadRuntimeOptions(t.fs, path)
			if err != nil {
				return false, err.Error()
			}
			if !opts.IsAvailable(knob.Mode) {
				return false, fmt.Sprintf("mode %q is not offered, available: %s",
					knob.Mode, strings.Join(opts.GetAvailable(), ", "))
			}
			return true, ""
		},
		t.executor.IsLazy(),
	)
}

func (t *thpTuner) installUnit(dir string) []Outcome {
	knobs := offeredKnobs(t.fs, t.knobs)
	if len(knobs) == 0 {
		return []Outcome{Skipped(THPUnitName, "none of the configured modes is offered")}
	}
	body := RenderTHPUnit(t.policyVersion, dir, knobs)
	unitPath := systemd.UnitPath(THPUnitName)
	enableName := "enable " + THPUnitName
	if t.client == nil {
		return []Outcome{
			Execute(t.executor, unitPath, "installed", commands.NewReplaceFileCmd(t.fs, unitPath, body, 0o644)),
			Skipped(enableName, "systemd is not reachable"),
		}
	}
	installed := Execute(t.executor, unitPath, "installed", commands.NewInstallSystemdUnitCmd(t.client, t.fs, body, THPUnitName))
	if installed.Status == StatusFailed {
		return []Outcome{installed, Skipped(enableName, "unit not installed")}
	}
	enabled := Execute(t.executor, enableName, "enabled", commands.NewEnableSystemdUnitCmd(t.client, THPUnitName))
	if enabled.Status == StatusFailed {
		return []Outcome{installed, enabled}
	}
	return []Outcome{installed, enabled, t.startUnit()}
}

// startUnit starts the unit unless it already ran, so that its state
// reflects the applied policy until the next boot.
func (t *thpTuner) startUnit() Outcome {
	name := "start " + THPUnitName
	if !t.executor.IsLazy() {
		_, active, err := t.client.UnitState(THPUnitName)
		if err == nil && systemd.IsActive(active) {
			return Applied(name, active.String())
		}
	}
	return Execute(t.executor, name, "active", commands.NewStartSystemdUnitCmd(t.client, THPUnitName))
}

func NewTHPChecker(fs afero.Fs, knob THPKnob) Checker {
	id := THPEnabledChecker
	if knob.File == system.THPDefragFile {
		id = THPDefragChecker
	}
	return NewEqualityChecker(
		id,
		"transparent_hugepage/"+knob.File,
		Warning,
		knob.Mode,
		func() (interface{}, error) {
			mode, err := system.GetTHPMode(fs, knob.File)
			if errors.Is(err, system.ErrTHPNotSupported) {
				return nil, ErrNotApplicable
			}
			return mode, err
		},
	)
}

// NewTHPUnitChecker checks the unit file matches what the tuner would
// install on this host.
func NewTHPUnitChecker(fs afero.Fs, enabled, defrag string, policyVersion int) Checker {
	return NewEqualityChecker(
		THPUnitChecker,
		systemd.UnitPath(THPUnitName),
		Warning,
		"up to date",
		func() (interface{}, error) {
			dir, err := system.GetTHPDir(fs)
			if err != nil {
				return nil, ErrNotApplicable
			}
			knobs := offeredKnobs(fs, thpKnobs(enabled, defrag))
			if len(knobs) == 0 {
				return nil, ErrNotApplicable
			}
			c := NewFileContentChecker(fs, THPUnitChecker, systemd.UnitPath(THPUnitName),
				RenderTHPUnit(policyVersion, dir, knobs))
			res := c.Check()
			return res.Current, res.Err
		},
	)
}

// NewTHPUnitEnabledChecker checks the unit is wanted by multi-user.target.
func NewTHPUnitEnabledChecker(fs afero.Fs) Checker {
	return NewEqualityChecker(
		THPUnitChecker,
		"enable "+THPUnitName,
		Warning,
		"enabled",
		func() (interface{}, error) {
			if _, err := system.GetTHPDir(fs); err != nil {
				return nil, ErrNotApplicable
			}
			if exists, _ := afero.Exists(fs, systemd.WantsPath("multi-user.target", THPUnitName)); exists {
				return "enabled", nil
			}
			return "disabled", nil
		},
	)
}
