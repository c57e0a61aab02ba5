// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package tuners

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/spf13/afero"
)

// NewCPUGovernorChecker checks every CPU offering governor uses it. It is not
// applicable on hosts without frequency scaling.
func NewCPUGovernorChecker(fs afero.Fs, governor string) Checker {
	return NewEqualityChecker(
		CPUGovernorChecker,
		"scaling_governor",
		Warning,
		governor,
		func() (interface{}, error) {
			governors, err := system.GetCPUGovernors(fs)
			if err != nil {
				return nil, err
			}
			var offending []string
			checked := 0
			for _, g := range governors {
				ok, err := g.Supports(fs, governor)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				checked++
				current, err := g.Current(fs)
				if err != nil {
					return nil, err
				}
				if current != governor {
					offending = append(offending, fmt.Sprintf("%s=%s", g, current))
				}
			}
			if checked == 0 {
				return nil, ErrNotApplicable
			}
			if len(offending) > 0 {
				return strings.Join(offending, ", "), nil
			}
			return governor, nil
		},
	)
}

// CPUFreqHelperConfig renders the helper configuration selecting governor.
func CPUFreqHelperConfig(helper *system.CPUFreqHelper, governor string) string {
	return strings.Join(helper.ConfigLines(governor), "\n") + "\n"
}

// NewCPUFreqHelperChecker checks the distro helper is configured to apply
// governor at boot.
func NewCPUFreqHelperChecker(fs afero.Fs, governor string) Checker {
	desc := "cpufreq helper config"
	helper, err := system.DetectCPUFreqHelper(fs)
	if err == nil {
		desc = helper.ConfigFile
	}
	return NewEqualityChecker(
		CPUFreqHelperChecker,
		desc,
		Warning,
		"up to date",
		func() (interface{}, error) {
			if errors.Is(err, system.ErrNoPackageManager) {
				return nil, ErrNotApplicable
			}
			if err != nil {
				return nil, err
			}
			governors, gerr := system.GetCPUGovernors(fs)
			if gerr != nil {
				return nil, gerr
			}
			if len(governors) == 0 {
				return nil, ErrNotApplicable
			}
			res := NewFileContentChecker(fs, CPUFreqHelperChecker, helper.ConfigFile,
				CPUFreqHelperConfig(helper, governor)).Check()
			return res.Current, res.Err
		},
	)
}
