// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build linux

package factory

import (
	"time"

	"github.com/redpanda-data/hvtune/pkg/config"
	hvos "github.com/redpanda-data/hvtune/pkg/os"
	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/system/systemd"
	"github.com/redpanda-data/hvtune/pkg/tuners"
	"github.com/redpanda-data/hvtune/pkg/tuners/cpu"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var allTuners = map[string]func(*tunersFactory) tuners.Tunable{
	config.TunerCPUGovernor:  (*tunersFactory).newCPUGovernorTuner,
	config.TunerTCPBBR:       (*tunersFactory).newModulesTuner,
	config.TunerSysctl:       (*tunersFactory).newSysctlTuner,
	config.TunerTHP:          (*tunersFactory).newTHPTuner,
	config.TunerDiskSchedule: (*tunersFactory).newDiskSchedulerTuner,
}

type TunersFactory interface {
	CreateTuner(tunerName string) tuners.Tunable
	// Close releases the systemd connection, if any.
	Close() error
}

type tunersFactory struct {
	fs       afero.Fs
	conf     *config.Config
	sysctl   system.Sysctl
	proc     hvos.Proc
	client   systemd.Client
	executor executors.Executor
	timeout  time.Duration
}

func NewDirectExecutorTunersFactory(fs afero.Fs, conf *config.Config, timeout time.Duration) TunersFactory {
	return NewTunersFactory(fs, conf, system.NewSysctl(), hvos.NewProc(), connectSystemd(), executors.NewDirectExecutor(), timeout)
}

func NewScriptRenderingTunersFactory(
	fs afero.Fs, conf *config.Config, out string, timeout time.Duration,
) (TunersFactory, error) {
	executor, err := executors.NewScriptRenderingExecutor(fs, out)
	if err != nil {
		return nil, err
	}
	return NewTunersFactory(fs, conf, system.NewSysctl(), hvos.NewProc(), connectSystemd(), executor, timeout), nil
}

// connectSystemd returns nil when the system manager isn't reachable. Tuners
// then write their unit and helper files without enabling them.
func connectSystemd() systemd.Client {
	client, err := systemd.NewDbusClient()
	if err != nil {
		zap.L().Sugar().Warnf("Unable to connect to systemd, services won't be enabled: %v", err)
		return nil
	}
	return client
}

// NewTunersFactory builds tuners operating through the given dependencies.
func NewTunersFactory(
	fs afero.Fs,
	conf *config.Config,
	sysctl system.Sysctl,
	proc hvos.Proc,
	client systemd.Client,
	executor executors.Executor,
	timeout time.Duration,
) TunersFactory {
	return &tunersFactory{
		fs:       fs,
		conf:     conf,
		sysctl:   sysctl,
		proc:     proc,
		client:   client,
		executor: executor,
		timeout:  timeout,
	}
}

// AvailableTuners returns every tuner name, in the order they run.
func AvailableTuners() []string {
	var names []string
	for _, name := range config.TunerNames() {
		if IsTunerAvailable(name) {
			names = append(names, name)
		}
	}
	return names
}

func IsTunerAvailable(tuner string) bool {
	return allTuners[tuner] != nil
}

func IsTunerEnabled(tuner string, conf *config.Config) bool {
	return IsTunerAvailable(tuner) && conf.IsEnabled(tuner)
}

func (factory *tunersFactory) CreateTuner(tunerName string) tuners.Tunable {
	return allTuners[tunerName](factory)
}

func (factory *tunersFactory) Close() error {
	if factory.client == nil {
		return nil
	}
	return factory.client.Shutdown()
}

func (factory *tunersFactory) newCPUGovernorTuner() tuners.Tunable {
	return cpu.NewGovernorTuner(
		factory.fs,
		factory.conf.CPU.Governor,
		factory.proc,
		factory.client,
		factory.executor,
		factory.timeout,
	)
}

func (factory *tunersFactory) newModulesTuner() tuners.Tunable {
	return tuners.NewModulesTuner(
		factory.fs,
		factory.conf.Modules,
		factory.conf.PolicyVersion,
		factory.sysctl,
		factory.proc,
		factory.executor,
		factory.timeout,
	)
}

func (factory *tunersFactory) newSysctlTuner() tuners.Tunable {
	return tuners.NewSysctlTuner(
		factory.fs,
		factory.conf.Sysctl,
		factory.conf.PolicyVersion,
		factory.sysctl,
		factory.proc,
		factory.executor,
		factory.timeout,
	)
}

func (factory *tunersFactory) newTHPTuner() tuners.Tunable {
	return tuners.NewTHPTuner(
		factory.fs,
		factory.conf.THP.Enabled,
		factory.conf.THP.Defrag,
		factory.conf.PolicyVersion,
		factory.client,
		factory.executor,
	)
}

func (factory *tunersFactory) newDiskSchedulerTuner() tuners.Tunable {
	return tuners.NewDiskSchedulerTuner(
		factory.fs,
		factory.conf.IOSchedulers,
		factory.conf.PolicyVersion,
		factory.proc,
		factory.executor,
		factory.timeout,
	)
}
