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

func TestGetCPUGovernors(t *testing.T) {
	tests := []struct {
		name     string
		before   func(afero.Fs) error
		expected []int
	}{
		{
			name:     "it should return nothing if the cpu tree is missing",
			expected: nil,
		},
		{
			name: "it should return nothing if no cpu has cpufreq",
			before: func(fs afero.Fs) error {
				return fs.MkdirAll("/sys/devices/system/cpu/cpu0/topology", 0o755)
			},
			expected: nil,
		},
		{
			name: "it should order cpus numerically and skip other entries",
			before: func(fs afero.Fs) error {
				for _, cpu := range []string{"cpu10", "cpu2", "cpu0"} {
					_, err := utils.WriteBytes(fs, []byte("powersave\n"),
						"/sys/devices/system/cpu/"+cpu+"/cpufreq/scaling_governor")
					if err != nil {
						return err
					}
				}
				return fs.MkdirAll("/sys/devices/system/cpu/cpufreq/policy0", 0o755)
			},
			expected: []int{0, 2, 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.before != nil {
				require.NoError(t, tt.before(fs))
			}
			governors, err := system.GetCPUGovernors(fs)
			require.NoError(t, err)
			var cpus []int
			for _, g := range governors {
				cpus = append(cpus, g.CPU)
			}
			require.Equal(t, tt.expected, cpus)
		})
	}
}

func TestCPUGovernorSupports(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := utils.WriteBytes(fs, []byte("powersave\n"), "/sys/devices/system/cpu/cpu0/cpufreq/scaling_governor")
	require.NoError(t, err)
	governors, err := system.GetCPUGovernors(fs)
	require.NoError(t, err)
	require.Len(t, governors, 1)
	g := governors[0]

	// Without the list of available governors, any governor is attempted.
	ok, err := g.Supports(fs, "performance")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = utils.WriteBytes(fs, []byte("powersave schedutil\n"), g.AvailableFile)
	require.NoError(t, err)
	ok, err = g.Supports(fs, "performance")
	require.NoError(t, err)
	require.False(t, ok)

	current, err := g.Current(fs)
	require.NoError(t, err)
	require.Equal(t, "powersave", current)
	require.Equal(t, "cpu0", g.String())
}

func TestGetTHPDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := system.GetTHPDir(fs)
	require.ErrorIs(t, err, system.ErrTHPNotSupported)

	_, err = utils.WriteBytes(fs, []byte("[always] madvise never\n"),
		"/sys/kernel/mm/redhat_transparent_hugepage/enabled")
	require.NoError(t, err)
	dir, err := system.GetTHPDir(fs)
	require.NoError(t, err)
	require.Equal(t, "/sys/kernel/mm/redhat_transparent_hugepage", dir)

	mode, err := system.GetTHPMode(fs, system.THPEnabledFile)
	require.NoError(t, err)
	require.Equal(t, "always", mode)
}
