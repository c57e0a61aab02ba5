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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	THPEnabledFile = "enabled"
	THPDefragFile  = "defrag"
)

// THPLocations returns the known locations where the Transparent Huge Pages
// knobs might be found across distros.
func THPLocations() []string {
	return []string{
		"/sys/kernel/mm/transparent_hugepage",        // default
		"/sys/kernel/mm/redhat_transparent_hugepage", // some versions of RHEL
	}
}

// ErrTHPNotSupported is returned when the kernel was built without THP.
var ErrTHPNotSupported = fmt.Errorf(
	"transparent hugepages are not supported by this kernel: none of %s was found",
	strings.Join(THPLocations(), ", "),
)

// GetTHPDir returns the THP sysfs directory of the running kernel.
func GetTHPDir(fs afero.Fs) (string, error) {
	for _, loc := range THPLocations() {
		exists, err := afero.DirExists(fs, loc)
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}
		if exists {
			return loc, nil
		}
	}
	return "", ErrTHPNotSupported
}

// GetTHPMode returns the active mode of the given THP knob ("enabled" or
// "defrag").
func GetTHPMode(fs afero.Fs, knob string) (string, error) {
	opts, err := GetTHPOptions(fs, knob)
	if err != nil {
		return "", err
	}
	return opts.GetActive(), nil
}

func GetTHPOptions(fs afero.Fs, knob string) (*RuntimeOptions, error) {
	dir, err := GetTHPDir(fs)
	if err != nil {
		return nil, err
	}
	return ReadRuntimeOptions(fs, filepath.Join(dir, knob))
}
