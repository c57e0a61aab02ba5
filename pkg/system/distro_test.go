// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package system_test

import (
	"testing"

	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/utils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestDetectCPUFreqHelper(t *testing.T) {
	tests := []struct {
		name            string
		binaries        []string
		expectedPackage string
		expectedConfig  []string
		expectedErr     error
	}{
		{
			name:        "it should fail without a package manager",
			expectedErr: system.ErrNoPackageManager,
		},
		{
			name:            "it should pick cpufrequtils on debian",
			binaries:        []string{"/usr/bin/apt-get"},
			expectedPackage: "cpufrequtils",
			expectedConfig: []string{
				"# Managed by hvtune, changes will be overwritten.",
				`GOVERNOR="performance"`,
			},
		},
		{
			name:            "it should pick kernel-tools on rhel",
			binaries:        []string{"/usr/bin/yum"},
			expectedPackage: "kernel-tools",
			expectedConfig: []string{
				"# Managed by hvtune, changes will be overwritten.",
				`CPUPOWER_START_OPTS="frequency-set -g performance"`,
				`CPUPOWER_STOP_OPTS=""`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			for _, b := range tt.binaries {
				_, err := utils.WriteBytes(fs, []byte{}, b)
				require.NoError(t, err)
			}
			helper, err := system.DetectCPUFreqHelper(fs)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expectedPackage, helper.Package)
			require.Equal(t, tt.expectedConfig, helper.ConfigLines("performance"))
			require.Equal(t, []string{"install", "-y", tt.expectedPackage}, helper.InstallArgs())
			require.False(t, helper.IsInstalled(fs))
		})
	}
}

func TestDetectCPUFreqHelperPrefersDnf(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, b := range []string{"/usr/bin/yum", "/usr/bin/dnf"} {
		_, err := utils.WriteBytes(fs, []byte{}, b)
		require.NoError(t, err)
	}
	helper, err := system.DetectCPUFreqHelper(fs)
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/dnf", helper.PackageManager)
	require.Equal(t, "cpupower.service", helper.Service)
}
