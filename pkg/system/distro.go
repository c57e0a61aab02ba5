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
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

// CPUFreqHelper describes the distro service that re-applies the CPU
// frequency governor at boot.
type CPUFreqHelper struct {
	Family         string
	PackageManager string
	Package        string
	// Binary is installed by Package. Its presence means the package does
	// not need to be installed.
	Binary     string
	ConfigFile string
	Service    string
}

// ErrNoPackageManager is returned when none of the supported package
// managers is installed.
var ErrNoPackageManager = errors.New("no supported package manager (apt-get, dnf, yum) found")

type packageManager struct {
	path   string
	family string
}

var packageManagers = []packageManager{
	{"/usr/bin/apt-get", "debian"},
	{"/usr/bin/dnf", "rhel"},
	{"/usr/bin/yum", "rhel"},
}

// DetectCPUFreqHelper picks the frequency helper of the running distro from
// the package manager it ships.
func DetectCPUFreqHelper(fs afero.Fs) (*CPUFreqHelper, error) {
	for _, pm := range packageManagers {
		exists, err := afero.Exists(fs, pm.path)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		switch pm.family {
		case "debian":
			return &CPUFreqHelper{
				Family:         pm.family,
				PackageManager: pm.path,
				Package:        "cpufrequtils",
				Binary:         "/usr/bin/cpufreq-set",
				ConfigFile:     "/etc/default/cpufrequtils",
				Service:        "cpufrequtils.service",
			}, nil
		default:
			return &CPUFreqHelper{
				Family:         pm.family,
				PackageManager: pm.path,
				Package:        "kernel-tools",
				Binary:         "/usr/bin/cpupower",
				ConfigFile:     "/etc/sysconfig/cpupower",
				Service:        "cpupower.service",
			}, nil
		}
	}
	return nil, ErrNoPackageManager
}

// IsInstalled reports whether the helper binary is present.
func (h *CPUFreqHelper) IsInstalled(fs afero.Fs) bool {
	exists, _ := afero.Exists(fs, h.Binary)
	return exists
}

// InstallArgs returns the package manager arguments that install the helper
// without prompting.
func (h *CPUFreqHelper) InstallArgs() []string {
	return []string{"install", "-y", h.Package}
}

// ConfigLines renders the helper configuration selecting governor.
func (h *CPUFreqHelper) ConfigLines(governor string) []string {
	lines := []string{"# Managed by hvtune, changes will be overwritten."}
	if h.Family == "debian" {
		return append(lines, fmt.Sprintf("GOVERNOR=%q", governor))
	}
	return append(lines,
		fmt.Sprintf("CPUPOWER_START_OPTS=%q", "frequency-set -g "+governor),
		`CPUPOWER_STOP_OPTS=""`,
	)
}
