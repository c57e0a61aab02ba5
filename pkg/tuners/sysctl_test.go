// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package tuners_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	hvos "github.com/redpanda-data/hvtune/pkg/os"
	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/tuners"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func outcomeByName(t *testing.T, res tuners.TuneResult, name string) tuners.Outcome {
	t.Helper()
	for _, o := range res.Outcomes() {
		if o.Name == name {
			return o
		}
	}
	require.FailNowf(t, "missing outcome", "no outcome named %q in %v", name, res.Outcomes())
	return tuners.Outcome{}
}

// reloadingProc simulates 'sysctl --system' by applying the hvtune drop-in
// to the fake /proc/sys tree.
func reloadingProc(fs afero.Fs) *hvos.MockProc {
	return hvos.NewMockProc(func(command string, args ...string) ([]string, error) {
		if command != "sysctl" {
			return nil, nil
		}
		lines, err := afero.ReadFile(fs, tuners.SysctlDropInPath)
		if err != nil {
			return nil, err
		}
		sysctl := system.NewFsSysctl(fs)
		for _, l := range strings.Split(string(lines), "\n") {
			key, value, ok := strings.Cut(l, " = ")
			if !ok || strings.HasPrefix(l, "#") {
				continue
			}
			// The real tool ignores unknown keys with -e, mimic that.
			_ = sysctl.Set(key, value)
		}
		return nil, nil
	})
}

func TestRenderSysctlDropIn(t *testing.T) {
	got := tuners.RenderSysctlDropIn(1, map[string]string{
		"vm.swappiness":                   "1",
		"net.ipv4.tcp_rmem":               "4096  87380\t16777216",
		"kernel.numa_balancing":           "0",
		"vm.dirty_ratio":                  "10",
		"net.ipv4.tcp_congestion_control": "bbr",
	})
	expected := `# Managed by hvtune (policy version 1), changes will be overwritten.

# vm
vm.dirty_ratio = 10
vm.swappiness = 1

# net
net.ipv4.tcp_congestion_control = bbr
net.ipv4.tcp_rmem = 4096 87380 16777216

# kernel
kernel.numa_balancing = 0
`
	require.Equal(t, expected, got)
}

func TestSysctlTuner(t *testing.T) {
	settings := map[string]string{
		"vm.swappiness":     "1",
		"vm.nope":           "1",
		"net.ipv4.tcp_rmem": "4096 87380 16777216",
	}
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/proc/sys/vm/swappiness":     "60\n",
		"/proc/sys/net/ipv4/tcp_rmem": "4096\t131072\t6291456\n",
	})
	proc := reloadingProc(fs)
	tuner := tuners.NewSysctlTuner(fs, settings, 1, system.NewFsSysctl(fs), proc, executors.NewDirectExecutor(), time.Second)

	supported, _ := tuner.CheckIfSupported()
	require.True(t, supported)
	res := tuner.Tune()
	require.False(t, res.IsFailed())
	require.Equal(t, [][]string{{"sysctl", "--system"}}, proc.Calls)

	require.Equal(t, tuners.Applied(tuners.SysctlDropInPath, "3 keys"), outcomeByName(t, res, tuners.SysctlDropInPath))
	require.Equal(t, tuners.Applied("vm.swappiness", "1"), outcomeByName(t, res, "vm.swappiness"))
	require.Equal(t, tuners.Applied("net.ipv4.tcp_rmem", "4096 87380 16777216"), outcomeByName(t, res, "net.ipv4.tcp_rmem"))
	require.Equal(t, tuners.Skipped("vm.nope", "unsupported by running kernel"), outcomeByName(t, res, "vm.nope"))

	first, err := afero.ReadFile(fs, tuners.SysctlDropInPath)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/proc/sys/vm/swappiness", []byte("60\n"), 0o644))

	res = tuner.Tune()
	require.False(t, res.IsFailed())
	second, err := afero.ReadFile(fs, tuners.SysctlDropInPath)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
	v, err := system.NewFsSysctl(fs).Get("vm.swappiness")
	require.NoError(t, err)
	require.Equal(t, "1", v)
}

func TestSysctlTunerReloadFallback(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/proc/sys/vm/swappiness": "60\n",
	})
	proc := hvos.NewMockProc(func(string, ...string) ([]string, error) {
		return nil, errors.New("sysctl: command not found")
	})
	tuner := tuners.NewSysctlTuner(
		fs,
		map[string]string{"vm.swappiness": "1", "vm.nope": "2"},
		1,
		system.NewFsSysctl(fs),
		proc,
		executors.NewDirectExecutor(),
		time.Second,
	)
	res := tuner.Tune()
	require.False(t, res.IsFailed())
	reload := outcomeByName(t, res, "sysctl --system")
	require.Equal(t, tuners.StatusSkipped, reload.Status)
	require.Contains(t, reload.Reason, "keys set directly")
	require.Equal(t, tuners.Applied("vm.swappiness", "1"), outcomeByName(t, res, "vm.swappiness"))
	require.Equal(t, tuners.StatusSkipped, outcomeByName(t, res, "vm.nope").Status)
}

func TestSysctlTunerMismatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/proc/sys/vm/swappiness": "60\n",
	})
	// The reload succeeds but something else wins.
	tuner := tuners.NewSysctlTuner(
		fs,
		map[string]string{"vm.swappiness": "1"},
		1,
		system.NewFsSysctl(fs),
		hvos.NewMockProc(nil),
		executors.NewDirectExecutor(),
		time.Second,
	)
	res := tuner.Tune()
	require.True(t, res.IsFailed())
	o := outcomeByName(t, res, "vm.swappiness")
	require.Equal(t, tuners.StatusFailed, o.Status)
	require.Equal(t, "60", o.Value)
	require.Contains(t, res.Error().Error(), `vm.swappiness: expected "1", got "60"`)
}

func TestSysctlTunerLegacyCleanup(t *testing.T) {
	fs := afero.NewMemMapFs()
	legacy := `kernel.panic = 10
# BEGIN hvtune
vm.swappiness = 1
# END hvtune
vm.swappiness=10
net/ipv4/tcp_mtu_probing = 1
`
	writeFiles(t, fs, map[string]string{
		"/proc/sys/vm/swappiness":             "60\n",
		"/proc/sys/net/ipv4/tcp_mtu_probing": "0\n",
		tuners.LegacySysctlConf:               legacy,
	})
	tuner := tuners.NewSysctlTuner(
		fs,
		map[string]string{"vm.swappiness": "1", "net.ipv4.tcp_mtu_probing": "1"},
		1,
		system.NewFsSysctl(fs),
		reloadingProc(fs),
		executors.NewDirectExecutor(),
		time.Second,
	)
	res := tuner.Tune()
	require.False(t, res.IsFailed())
	require.Equal(t, tuners.StatusApplied, outcomeByName(t, res, tuners.LegacySysctlConf).Status)

	cleaned, err := afero.ReadFile(fs, tuners.LegacySysctlConf)
	require.NoError(t, err)
	require.Equal(t, "kernel.panic = 10\n", string(cleaned))

	var backups []string
	entries, err := afero.ReadDir(fs, "/etc")
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "sysctl.conf.hvtune.") {
			backups = append(backups, e.Name())
		}
	}
	require.Len(t, backups, 1)
	backup, err := afero.ReadFile(fs, "/etc/"+backups[0])
	require.NoError(t, err)
	require.Equal(t, legacy, string(backup))
}

func TestSysctlTunerLeavesUnrelatedLegacyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/proc/sys/vm/swappiness": "60\n",
		tuners.LegacySysctlConf:   "kernel.panic = 10\n",
	})
	tuner := tuners.NewSysctlTuner(
		fs,
		map[string]string{"vm.swappiness": "1"},
		1,
		system.NewFsSysctl(fs),
		reloadingProc(fs),
		executors.NewDirectExecutor(),
		time.Second,
	)
	require.False(t, tuner.Tune().IsFailed())
	entries, err := afero.ReadDir(fs, "/etc")
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), "sysctl.conf.hvtune."), "unexpected backup %s", e.Name())
	}
}

func TestSysctlTunerScript(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/proc/sys/vm/swappiness": "60\n",
	})
	executor, err := executors.NewScriptRenderingExecutor(fs, "/tune.sh")
	require.NoError(t, err)
	proc := hvos.NewMockProc(nil)
	tuner := tuners.NewSysctlTuner(
		fs,
		map[string]string{"vm.swappiness": "1"},
		1,
		system.NewFsSysctl(fs),
		proc,
		executor,
		time.Second,
	)
	res := tuner.Tune()
	require.False(t, res.IsFailed())
	require.Equal(t, tuners.Skipped("vm.swappiness", tuners.ReasonScripted), outcomeByName(t, res, "vm.swappiness"))
	require.Empty(t, proc.Calls)

	exists, err := afero.Exists(fs, tuners.SysctlDropInPath)
	require.NoError(t, err)
	require.False(t, exists)
	script, err := afero.ReadFile(fs, "/tune.sh")
	require.NoError(t, err)
	require.Contains(t, string(script), "vm.swappiness = 1\n")
	require.Contains(t, string(script), "sysctl --system\n")
}

func TestStripManagedSysctlLines(t *testing.T) {
	tests := []struct {
		name        string
		lines       []string
		expected    []string
		wantChanged bool
	}{
		{
			name:     "it should keep files without managed entries",
			lines:    []string{"# comment", "kernel.panic = 10"},
			expected: []string{"# comment", "kernel.panic = 10"},
		},
		{
			name:        "it should drop marker blocks",
			lines:       []string{"a = 1", "# BEGIN hvtune", "b = 2", "# END hvtune", "c = 3"},
			expected:    []string{"a = 1", "c = 3"},
			wantChanged: true,
		},
		{
			name:        "it should drop managed keys in any notation",
			lines:       []string{"vm.swappiness=1", " - vm/swappiness = 2", "# vm.swappiness = 3", "vm.swappiness_x = 4"},
			expected:    []string{"# vm.swappiness = 3", "vm.swappiness_x = 4"},
			wantChanged: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := tuners.StripManagedSysctlLines(tt.lines, map[string]string{"vm.swappiness": "1"})
			require.Equal(t, tt.expected, got)
			require.Equal(t, tt.wantChanged, changed)
		})
	}
}

func TestSysctlChecker(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/proc/sys/net/ipv4/tcp_rmem": "4096\t87380\t16777216\n",
	})
	sysctl := system.NewFsSysctl(fs)

	res := tuners.NewSysctlChecker(sysctl, "net.ipv4.tcp_rmem", "4096 87380  16777216").Check()
	require.True(t, res.IsOk)

	res = tuners.NewSysctlChecker(sysctl, "vm.nope", "1").Check()
	require.True(t, res.NotApplicable)
	require.Equal(t, "N/A", res.Current)
}
