// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package cpu_test

import (
	"errors"
	"testing"
	"time"

	hvos "github.com/redpanda-data/hvtune/pkg/os"
	"github.com/redpanda-data/hvtune/pkg/system/systemd"
	"github.com/redpanda-data/hvtune/pkg/tuners"
	"github.com/redpanda-data/hvtune/pkg/tuners/cpu"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const cpuDir = "/sys/devices/system/cpu"

func cpufreqFs(t *testing.T, extra ...string) afero.Fs {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		cpuDir + "/cpu0/cpufreq/scaling_governor":            "powersave\n",
		cpuDir + "/cpu0/cpufreq/scaling_available_governors": "performance powersave\n",
		cpuDir + "/cpu1/cpufreq/scaling_governor":            "performance\n",
		cpuDir + "/cpu1/cpufreq/scaling_available_governors": "performance powersave\n",
		cpuDir + "/cpu2/cpufreq/scaling_governor":            "schedutil\n",
		cpuDir + "/cpu2/cpufreq/scaling_available_governors": "powersave schedutil\n",
		cpuDir + "/cpufreq/policy0/scaling_governor":         "powersave\n",
	}
	for _, path := range extra {
		files[path] = ""
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func TestGovernorTuner(t *testing.T) {
	fs := cpufreqFs(t, "/usr/bin/apt-get")
	proc := hvos.NewMockProc(nil)
	client := systemd.NewMockClient()
	tuner := cpu.NewGovernorTuner(fs, "performance", proc, client, executors.NewDirectExecutor(), time.Second)

	require.False(t, tuners.NewCPUGovernorChecker(fs, "performance").Check().IsOk)

	supported, _ := tuner.CheckIfSupported()
	require.True(t, supported)
	res := tuner.Tune()
	require.False(t, res.IsFailed())
	require.Equal(t, []tuners.Outcome{
		tuners.Applied("scaling_governor", "performance on 2/3 cpus"),
		tuners.Skipped("cpu2", `governor "performance" is not offered`),
		tuners.Applied("cpufrequtils", "installed"),
		tuners.Applied("/etc/default/cpufrequtils", "governor=performance"),
		tuners.Applied("enable cpufrequtils.service", "enabled"),
		tuners.Applied("restart cpufrequtils.service", "restarted"),
	}, res.Outcomes())
	require.Equal(t, [][]string{{"/usr/bin/apt-get", "install", "-y", "cpufrequtils"}}, proc.Calls)
	require.Equal(t, []string{"EnableUnit cpufrequtils.service", "RestartUnit cpufrequtils.service"}, client.Calls)

	gov, err := afero.ReadFile(fs, cpuDir+"/cpu0/cpufreq/scaling_governor")
	require.NoError(t, err)
	require.Equal(t, "performance", string(gov))
	gov, err = afero.ReadFile(fs, cpuDir+"/cpu2/cpufreq/scaling_governor")
	require.NoError(t, err)
	require.Equal(t, "schedutil\n", string(gov))

	conf, err := afero.ReadFile(fs, "/etc/default/cpufrequtils")
	require.NoError(t, err)
	require.Equal(t, "# Managed by hvtune, changes will be overwritten.\nGOVERNOR=\"performance\"\n", string(conf))

	require.True(t, tuners.NewCPUGovernorChecker(fs, "performance").Check().IsOk)
	require.True(t, tuners.NewCPUFreqHelperChecker(fs, "performance").Check().IsOk)
}

func TestGovernorTunerWithoutCpufreq(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/usr/bin/apt-get", nil, 0o755))
	require.NoError(t, afero.WriteFile(fs, cpuDir+"/cpu0/online", []byte("1\n"), 0o644))
	proc := hvos.NewMockProc(nil)
	client := systemd.NewMockClient()
	tuner := cpu.NewGovernorTuner(fs, "performance", proc, client, executors.NewDirectExecutor(), time.Second)

	supported, reason := tuner.CheckIfSupported()
	require.False(t, supported)
	require.Equal(t, "CPU frequency scaling is not available on this host", reason)

	res := tuner.Tune()
	require.False(t, res.IsFailed())
	require.Equal(t, []tuners.Outcome{
		tuners.Skipped("scaling_governor", "CPU frequency scaling is not available on this host"),
	}, res.Outcomes())
	require.Empty(t, proc.Calls)
	require.Empty(t, client.Calls)
	exists, err := afero.Exists(fs, "/etc/default/cpufrequtils")
	require.NoError(t, err)
	require.False(t, exists)

	require.True(t, tuners.NewCPUGovernorChecker(fs, "performance").Check().NotApplicable)
	require.True(t, tuners.NewCPUFreqHelperChecker(fs, "performance").Check().NotApplicable)
}

func TestGovernorTunerPersistence(t *testing.T) {
	tests := []struct {
		name     string
		extra    []string
		client   func() systemd.Client
		proc     func(string, ...string) ([]string, error)
		expected []tuners.Outcome
	}{
		{
			name: "it should skip persistence without a package manager",
			expected: []tuners.Outcome{
				tuners.Skipped("cpufreq helper", "no supported package manager (apt-get, dnf, yum) found"),
			},
		},
		{
			name:  "it should not reinstall an installed helper",
			extra: []string{"/usr/bin/dnf", "/usr/bin/cpupower"},
			expected: []tuners.Outcome{
				tuners.Applied("/etc/sysconfig/cpupower", "governor=performance"),
				tuners.Skipped("cpupower.service", "systemd is not reachable"),
			},
		},
		{
			name:  "it should write the config but skip the service if the install fails",
			extra: []string{"/usr/bin/yum"},
			proc: func(string, ...string) ([]string, error) {
				return nil, errors.New("no network")
			},
			expected: []tuners.Outcome{
				tuners.Failed("kernel-tools", errors.New("no network")),
				tuners.Applied("/etc/sysconfig/cpupower", "governor=performance"),
				tuners.Skipped("cpupower.service", "kernel-tools is not installed"),
			},
		},
		{
			name:  "it should not restart a service it couldn't enable",
			extra: []string{"/usr/bin/apt-get", "/usr/bin/cpufreq-set"},
			client: func() systemd.Client {
				c := systemd.NewMockClient()
				c.EnableUnitFn = func(string) error { return errors.New("unit not found") }
				return c
			},
			expected: []tuners.Outcome{
				tuners.Applied("/etc/default/cpufrequtils", "governor=performance"),
				tuners.Failed("enable cpufrequtils.service", errors.New("unit not found")),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := cpufreqFs(t, tt.extra...)
			var client systemd.Client
			if tt.client != nil {
				client = tt.client()
			}
			tuner := cpu.NewGovernorTuner(fs, "performance", hvos.NewMockProc(tt.proc), client, executors.NewDirectExecutor(), time.Second)
			res := tuner.Tune()
			// The first two outcomes report the governor itself.
			require.Equal(t, tt.expected, res.Outcomes()[2:])
		})
	}
}
