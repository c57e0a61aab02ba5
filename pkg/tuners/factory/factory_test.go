// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build linux

package factory_test

import (
	"testing"
	"time"

	"github.com/redpanda-data/hvtune/pkg/config"
	hvos "github.com/redpanda-data/hvtune/pkg/os"
	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/system/systemd"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors"
	"github.com/redpanda-data/hvtune/pkg/tuners/factory"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestAvailableTuners(t *testing.T) {
	require.Equal(t, []string{
		"cpu_governor",
		"tcp_bbr",
		"sysctl",
		"transparent_hugepages",
		"disk_scheduler",
	}, factory.AvailableTuners())
	require.False(t, factory.IsTunerAvailable("net"))
}

func TestIsTunerEnabled(t *testing.T) {
	conf := config.Default()
	conf.Tuners[config.TunerDiskSchedule] = false
	require.True(t, factory.IsTunerEnabled(config.TunerSysctl, conf))
	require.False(t, factory.IsTunerEnabled(config.TunerDiskSchedule, conf))
	require.False(t, factory.IsTunerEnabled("net", conf))
}

func TestCreateTuner(t *testing.T) {
	fs := afero.NewMemMapFs()
	client := systemd.NewMockClient()
	f := factory.NewTunersFactory(
		fs,
		config.Default(),
		system.NewFsSysctl(fs),
		hvos.NewMockProc(nil),
		client,
		executors.NewDirectExecutor(),
		time.Second,
	)
	// A bare filesystem has neither cpufreq nor THP.
	expected := map[string]bool{
		config.TunerCPUGovernor:  false,
		config.TunerTCPBBR:       true,
		config.TunerSysctl:       true,
		config.TunerTHP:          false,
		config.TunerDiskSchedule: true,
	}
	for _, name := range factory.AvailableTuners() {
		supported, reason := f.CreateTuner(name).CheckIfSupported()
		require.Equal(t, expected[name], supported, "%s: %s", name, reason)
	}
	require.NoError(t, f.Close())
	require.Equal(t, []string{"Shutdown"}, client.Calls)
}

func TestCloseWithoutSystemd(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := factory.NewTunersFactory(
		fs, config.Default(), system.NewFsSysctl(fs), hvos.NewMockProc(nil), nil, executors.NewDirectExecutor(), time.Second,
	)
	require.NoError(t, f.Close())
}
