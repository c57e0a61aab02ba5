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
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

const BlockSysfsDir = "/sys/block"

// GetBlockDevices returns the names of the block devices matching the kernel
// name pattern, sorted.
func GetBlockDevices(fs afero.Fs, pattern string) ([]string, error) {
	matches, err := afero.Glob(fs, filepath.Join(BlockSysfsDir, pattern))
	if err != nil {
		return nil, err
	}
	devices := make([]string, 0, len(matches))
	for _, m := range matches {
		devices = append(devices, filepath.Base(m))
	}
	sort.Strings(devices)
	return devices, nil
}

// SchedulerFile returns the sysfs file selecting the I/O scheduler of device.
func SchedulerFile(device string) string {
	return filepath.Join(BlockSysfsDir, device, "queue", "scheduler")
}

// GetSchedulerOptions reads the schedulers offered for device and the one in
// use.
func GetSchedulerOptions(fs afero.Fs, device string) (*RuntimeOptions, error) {
	return ReadRuntimeOptions(fs, SchedulerFile(device))
}
