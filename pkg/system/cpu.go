// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package system

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/redpanda-data/hvtune/pkg/utils"
	"github.com/spf13/afero"
	"github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"
)

const cpuSysfsDir = "/sys/devices/system/cpu"

var cpuDirPattern = regexp.MustCompile(`^cpu(\d+)$`)

// CPUGovernor describes the frequency scaling control of a single CPU.
type CPUGovernor struct {
	CPU           int
	GovernorFile  string
	AvailableFile string
}

// GetCPUGovernors lists the scaling governor controls of every CPU that
// exposes one, ordered by CPU number. It returns an empty list when the
// kernel has no frequency scaling, which is common for guests.
func GetCPUGovernors(fs afero.Fs) ([]CPUGovernor, error) {
	entries, err := afero.ReadDir(fs, cpuSysfsDir)
	if err != nil {
		if exists, _ := afero.DirExists(fs, cpuSysfsDir); !exists {
			return nil, nil
		}
		return nil, err
	}
	var governors []CPUGovernor
	for _, e := range entries {
		m := cpuDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		cpu, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, err
		}
		cpufreq := filepath.Join(cpuSysfsDir, e.Name(), "cpufreq")
		governorFile := filepath.Join(cpufreq, "scaling_governor")
		if exists, _ := afero.Exists(fs, governorFile); !exists {
			continue
		}
		governors = append(governors, CPUGovernor{
			CPU:           cpu,
			GovernorFile:  governorFile,
			AvailableFile: filepath.Join(cpufreq, "scaling_available_governors"),
		})
	}
	sort.Slice(governors, func(i, j int) bool {
		return governors[i].CPU < governors[j].CPU
	})
	return governors, nil
}

// Current returns the governor currently in use.
func (g CPUGovernor) Current(fs afero.Fs) (string, error) {
	return utils.ReadEnsureSingleLine(fs, g.GovernorFile)
}

// Supports reports whether governor is listed as available for the CPU. CPUs
// that don't publish the list are assumed to support it.
func (g CPUGovernor) Supports(fs afero.Fs, governor string) (bool, error) {
	if exists, _ := afero.Exists(fs, g.AvailableFile); !exists {
		return true, nil
	}
	line, err := utils.ReadEnsureSingleLine(fs, g.AvailableFile)
	if err != nil {
		return false, err
	}
	return ParseRuntimeOptions(line).IsAvailable(governor), nil
}

func (g CPUGovernor) String() string {
	return fmt.Sprintf("cpu%d", g.CPU)
}

// GetKernelVersion returns the release of the running kernel.
func GetKernelVersion() (string, error) {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uname.Release[:]), nil
}

// GetOnlineCPUs returns the number of CPUs currently online.
func GetOnlineCPUs() (int, error) {
	n, err := sysconf.Sysconf(sysconf.SC_NPROCESSORS_ONLN)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
