// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package config_test

import (
	"strings"
	"testing"

	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name       string
		params     config.Params
		file       string
		check      func(*testing.T, *config.Config)
		expErrText string
	}{
		{
			name:   "it should use the built-in policy without a config file",
			params: config.Params{},
			check: func(t *testing.T, c *config.Config) {
				require.Equal(t, config.Default(), c)
			},
		},
		{
			name:       "it should fail if an explicit config is missing",
			params:     config.Params{ConfigPath: "/root/hvtune.yaml"},
			expErrText: "unable to read config /root/hvtune.yaml",
		},
		{
			name:   "it should merge the file over the defaults",
			params: config.Params{},
			file: `
tuners:
  disk_scheduler: false
sysctl:
  vm.swappiness: 1
  net.ipv4.tcp_mtu_probing: ""
  kernel.numa_balancing: 0
io_schedulers:
  vd[a-z]: mq-deadline
`,
			check: func(t *testing.T, c *config.Config) {
				require.False(t, c.IsEnabled(config.TunerDiskSchedule))
				require.True(t, c.IsEnabled(config.TunerSysctl))
				require.Equal(t, "1", c.Sysctl["vm.swappiness"])
				require.Equal(t, "0", c.Sysctl["kernel.numa_balancing"])
				require.NotContains(t, c.Sysctl, "net.ipv4.tcp_mtu_probing")
				// Untouched defaults are kept.
				require.Equal(t, "bbr", c.Sysctl["net.ipv4.tcp_congestion_control"])
				require.Equal(t, []string{"nvme*n1", "sd[a-z]", "vd[a-z]"}, c.SchedulerPatterns())
				require.Equal(t, "madvise", c.THP.Enabled)
			},
		},
		{
			name:   "it should convert memory.min_free to kilobytes",
			params: config.Params{},
			file: `
memory:
  min_free: 512MiB
`,
			check: func(t *testing.T, c *config.Config) {
				require.Equal(t, "524288", c.Sysctl["vm.min_free_kbytes"])
			},
		},
		{
			name:   "it should convert memory.min_free with an empty sysctl section",
			params: config.Params{},
			file: `
sysctl:
memory:
  min_free: 1GiB
`,
			check: func(t *testing.T, c *config.Config) {
				require.Equal(t, map[string]string{"vm.min_free_kbytes": "1048576"}, c.Sysctl)
			},
		},
		{
			name: "it should apply flag overrides after the file",
			params: config.Params{FlagOverrides: []string{
				"sysctl.vm.swappiness=5",
				"io_schedulers.sd[a-z]=",
				"transparent_hugepages.defrag=defer+madvise",
				"tuners.tcp_bbr=false",
				"modules=tcp_bbr, sch_fq",
				"cpu.governor=schedutil",
			}},
			file: `
sysctl:
  vm.swappiness: 1
`,
			check: func(t *testing.T, c *config.Config) {
				require.Equal(t, "5", c.Sysctl["vm.swappiness"])
				require.Equal(t, []string{"nvme*n1"}, c.SchedulerPatterns())
				require.Equal(t, "defer+madvise", c.THP.Defrag)
				require.False(t, c.IsEnabled(config.TunerTCPBBR))
				require.Equal(t, []string{"tcp_bbr", "sch_fq"}, c.Modules)
				require.Equal(t, "schedutil", c.CPU.Governor)
			},
		},
		{
			name:       "it should reject unknown override keys",
			params:     config.Params{FlagOverrides: []string{"cpu.frequency=3GHz"}},
			expErrText: `unknown key "cpu.frequency"`,
		},
		{
			name:       "it should reject malformed yaml",
			params:     config.Params{},
			file:       "sysctl: [",
			expErrText: "unable to yaml decode",
		},
		{
			name:   "it should reject an invalid policy",
			params: config.Params{},
			file: `
transparent_hugepages:
  enabled: sometimes
`,
			expErrText: "invalid transparent_hugepages.enabled",
		},
		{
			name:       "it should reject a bad min_free size",
			params:     config.Params{FlagOverrides: []string{"memory.min_free=lots"}},
			expErrText: "invalid memory.min_free",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.file != "" {
				path := tt.params.ConfigPath
				if path == "" {
					path = config.DefaultPath
				}
				require.NoError(t, afero.WriteFile(fs, path, []byte(tt.file), 0o644))
			}
			c, err := tt.params.Load(fs)
			if tt.expErrText != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.expErrText)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	def := config.Default()
	out, err := def.Marshal()
	require.NoError(t, err)

	var decoded config.Config
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	require.Equal(t, def, &decoded)
	require.NotContains(t, string(out), "\nmemory:")
}

func TestParamsListKeys(t *testing.T) {
	// Every listed key must be accepted by Set.
	for _, line := range strings.Split(strings.TrimSpace(config.ParamsList()), "\n") {
		key, _, _ := strings.Cut(line, "=")
		key = strings.NewReplacer("<name>", "sysctl", "<key>", "vm.swappiness", "<pattern>", "sd[a-z]").Replace(key)
		value := ""
		if strings.HasPrefix(key, "tuners.") {
			value = "true"
		}
		require.NoError(t, config.Default().Set(key, value), key)
	}
}
