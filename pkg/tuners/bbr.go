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
	"path/filepath"
	"strings"
	"time"

	hvos "github.com/redpanda-data/hvtune/pkg/os"
	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors/commands"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// ModulesLoadPath lists the modules systemd-modules-load loads at boot.
	ModulesLoadPath = "/etc/modules-load.d/hvtune.conf"

	availableCongestionControl = "net.ipv4.tcp_available_congestion_control"
)

func RenderModulesLoad(policyVersion int, modules []string) string {
	return managedHeader(policyVersion) + "\n" + strings.Join(modules, "\n") + "\n"
}

// IsModuleLoaded reports whether module is available in the running kernel.
// Congestion control modules may be built in, in which case they only show
// up as an available algorithm.
func IsModuleLoaded(fs afero.Fs, sysctl system.Sysctl, module string) bool {
	if exists, _ := afero.DirExists(fs, filepath.Join("/sys/module", module)); exists {
		return true
	}
	algo, ok := strings.CutPrefix(module, "tcp_")
	if !ok {
		return false
	}
	available, err := sysctl.Get(availableCongestionControl)
	if err != nil {
		return false
	}
	for _, a := range strings.Fields(available) {
		if a == algo {
			return true
		}
	}
	return false
}

type modulesTuner struct {
	fs            afero.Fs
	modules       []string
	policyVersion int
	sysctl        system.Sysctl
	proc          hvos.Proc
	executor      executors.Executor
	timeout       time.Duration
}

// NewModulesTuner makes sure modules (tcp_bbr by default) are loaded now and
// on every boot. It must run before the sysctl tuner, since the kernel only
// accepts a congestion control whose module is loaded.
func NewModulesTuner(
	fs afero.Fs,
	modules []string,
	policyVersion int,
	sysctl system.Sysctl,
	proc hvos.Proc,
	executor executors.Executor,
	timeout time.Duration,
) Tunable {
	return &modulesTuner{
		fs:            fs,
		modules:       modules,
		policyVersion: policyVersion,
		sysctl:        sysctl,
		proc:          proc,
		executor:      executor,
		timeout:       timeout,
	}
}

func (t *modulesTuner) CheckIfSupported() (bool, string) {
	if len(t.modules) == 0 {
		return false, "no kernel modules configured"
	}
	return true, ""
}

func (t *modulesTuner) Tune() TuneResult {
	outcomes := []Outcome{Execute(
		t.executor,
		ModulesLoadPath,
		strings.Join(t.modules, ", "),
		commands.NewReplaceFileCmd(t.fs, ModulesLoadPath, RenderModulesLoad(t.policyVersion, t.modules), 0o644),
	)}
	for _, m := range t.modules {
		outcomes = append(outcomes, t.load(m))
	}
	return NewTuneResult(outcomes...)
}

func (t *modulesTuner) load(module string) Outcome {
	name := "module " + module
	if IsModuleLoaded(t.fs, t.sysctl, module) {
		return Applied(name, "loaded")
	}
	zap.L().Sugar().Debugf("Loading kernel module %s", module)
	o := Execute(t.executor, name, "loaded", commands.NewLaunchCmd(t.proc, t.timeout, "modprobe", module))
	if o.Status != StatusApplied {
		return o
	}
	if !IsModuleLoaded(t.fs, t.sysctl, module) {
		return Failed(name, fmt.Errorf("%s is still not loaded after modprobe", module))
	}
	return o
}

func NewModulesLoadFileChecker(fs afero.Fs, policyVersion int, modules []string) Checker {
	return NewFileContentChecker(fs, ModulesLoadFileChecker, ModulesLoadPath, RenderModulesLoad(policyVersion, modules))
}

func NewKernelModuleChecker(fs afero.Fs, sysctl system.Sysctl, module string) Checker {
	return NewEqualityChecker(
		KernelModuleChecker,
		"module "+module,
		Warning,
		"loaded",
		func() (interface{}, error) {
			if IsModuleLoaded(fs, sysctl, module) {
				return "loaded", nil
			}
			return "not loaded", nil
		},
	)
}
