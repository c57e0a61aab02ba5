// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build linux

package tune

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/redpanda-data/hvtune/pkg/utils"
	"github.com/spf13/cobra"
)

func newHelpCommand() *cobra.Command {
	tunersHelp := map[string]string{
		config.TunerCPUGovernor:  cpuGovernorTunerHelp,
		config.TunerTCPBBR:       tcpBBRTunerHelp,
		config.TunerSysctl:       sysctlTunerHelp,
		config.TunerTHP:          transparentHugepagesTunerHelp,
		config.TunerDiskSchedule: diskSchedulerTunerHelp,
	}

	return &cobra.Command{
		Use:   "help [TUNER]",
		Short: "Display detailed information about the tuner",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("requires the tuner name")
			}
			tuner := args[0]
			tunerList := strings.Join(
				utils.GetKeysFromStringMap(tunersHelp),
				", ",
			)
			if _, contains := tunersHelp[tuner]; !contains {
				return fmt.Errorf("no help found for tuner '%s'. Available: %s", tuner, tunerList)
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			tuner := args[0]
			fmt.Fprintf(cmd.OutOrStdout(), "%q tuner description\n%s\n", tuner, tunersHelp[tuner])
		},
	}
}

const cpuGovernorTunerHelp = `
Sets the frequency scaling governor of every CPU to 'performance' (see
cpu.governor). CPUs that don't offer the governor are left untouched. Guests
without frequency scaling are skipped entirely.

To keep the governor across reboots the tuner configures the distro helper,
installing it first if needed:

	Debian family - cpufrequtils, /etc/default/cpufrequtils
	RHEL family   - kernel-tools, /etc/sysconfig/cpupower

and enables and restarts its service.`

const tcpBBRTunerHelp = `
Makes sure the BBR congestion control module (see modules) is loaded now and
on every boot, by listing it in /etc/modules-load.d/hvtune.conf and loading it
with modprobe if needed. It runs before the sysctl tuner so that
net.ipv4.tcp_congestion_control = bbr is accepted.`

const sysctlTunerHelp = `
Writes the vm and net kernel parameters of the policy to
/etc/sysctl.d/60-hvtune.conf and reloads every sysctl source. If the reload
fails each key is set directly. Every key is read back: keys the running
kernel doesn't know are skipped.

Entries older versions added to /etc/sysctl.conf are removed from it, after
backing it up.`

const transparentHugepagesTunerHelp = `
Sets the transparent hugepage 'enabled' and 'defrag' modes ('madvise' by
default), so that only applications asking for hugepages get them, without
stalls on allocation. Modes the kernel doesn't offer are skipped.

The modes are re-applied at boot by the hvtune-thp.service one-shot unit.`

const diskSchedulerTunerHelp = `
Sets the I/O scheduler of the block devices matching each configured pattern
(see io_schedulers). Devices that don't offer the scheduler keep their
current one.

Schedulers:

	none        - for NVMe devices, bypasses the OS I/O scheduler
	mq-deadline - for virtual and SATA disks

The schedulers are persisted with a udev rule in
/etc/udev/rules.d/60-hvtune-io-scheduler.rules, applied on hotplug.`
