// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

// Package config holds the tuning policy hvtune applies and the parameters
// used to load it.
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/redpanda-data/hvtune/pkg/utils"
	"gopkg.in/yaml.v3"
)

// PolicyVersion is the version of the built-in policy. It is recorded in
// every file hvtune owns.
const PolicyVersion = 1

// Tuner names, in the order they run.
const (
	TunerCPUGovernor  = "cpu_governor"
	TunerTCPBBR       = "tcp_bbr"
	TunerSysctl       = "sysctl"
	TunerTHP          = "transparent_hugepages"
	TunerDiskSchedule = "disk_scheduler"
)

// TunerNames returns every tuner name in run order.
func TunerNames() []string {
	return []string{
		TunerCPUGovernor,
		TunerTCPBBR,
		TunerSysctl,
		TunerTHP,
		TunerDiskSchedule,
	}
}

type Config struct {
	PolicyVersion int `yaml:"policy_version"`
	// Tuners enables or disables tuners by name.
	Tuners map[string]bool `yaml:"tuners"`
	CPU    CPU             `yaml:"cpu"`
	Memory Memory          `yaml:"memory,omitempty"`
	// Sysctl maps dotted kernel parameters to their value.
	Sysctl map[string]string `yaml:"sysctl"`
	THP    THP               `yaml:"transparent_hugepages"`
	// IOSchedulers maps kernel block device name patterns (as used in
	// /sys/block and udev KERNEL matches) to a scheduler.
	IOSchedulers map[string]string `yaml:"io_schedulers"`
	// Modules are loaded now and at every boot.
	Modules []string `yaml:"modules"`
}

type CPU struct {
	Governor string `yaml:"governor"`
}

type Memory struct {
	// MinFree is a human readable size (e.g. 1GiB) reserved by the kernel,
	// written as vm.min_free_kbytes.
	MinFree string `yaml:"min_free,omitempty"`
}

type THP struct {
	Enabled string `yaml:"enabled"`
	Defrag  string `yaml:"defrag"`
}

// Default returns the built-in policy.
func Default() *Config {
	tuners := make(map[string]bool)
	for _, name := range TunerNames() {
		tuners[name] = true
	}
	return &Config{
		PolicyVersion: PolicyVersion,
		Tuners:        tuners,
		CPU:           CPU{Governor: "performance"},
		Sysctl: map[string]string{
			"vm.swappiness":             "10",
			"vm.dirty_ratio":            "10",
			"vm.dirty_background_ratio": "5",
			"vm.vfs_cache_pressure":     "50",
			"vm.overcommit_memory":      "1",
			"vm.min_free_kbytes":        "1048576",

			"net.core.default_qdisc":      "fq",
			"net.core.rmem_max":           "16777216",
			"net.core.wmem_max":           "16777216",
			"net.core.netdev_max_backlog": "16384",
			"net.core.somaxconn":          "8192",

			"net.ipv4.tcp_congestion_control":    "bbr",
			"net.ipv4.tcp_rmem":                  "4096 87380 16777216",
			"net.ipv4.tcp_wmem":                  "4096 65536 16777216",
			"net.ipv4.tcp_max_syn_backlog":       "8192",
			"net.ipv4.tcp_mtu_probing":           "1",
			"net.ipv4.tcp_slow_start_after_idle": "0",
		},
		THP: THP{Enabled: "madvise", Defrag: "madvise"},
		IOSchedulers: map[string]string{
			"nvme*n1": "none",
			"sd[a-z]": "mq-deadline",
		},
		Modules: []string{"tcp_bbr"},
	}
}

// IsEnabled reports whether the named tuner should run.
func (c *Config) IsEnabled(tuner string) bool {
	enabled, ok := c.Tuners[tuner]
	return !ok || enabled
}

// SysctlKeys returns the configured sysctl keys, sorted.
func (c *Config) SysctlKeys() []string {
	return utils.GetKeysFromStringMap(c.Sysctl)
}

// SchedulerPatterns returns the configured device patterns, sorted.
func (c *Config) SchedulerPatterns() []string {
	return utils.GetKeysFromStringMap(c.IOSchedulers)
}

// Marshal renders the policy as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// prune drops the sysctl keys and scheduler patterns that were unset by
// giving them an empty value.
func (c *Config) prune() {
	for k, v := range c.Sysctl {
		if strings.TrimSpace(v) == "" {
			delete(c.Sysctl, k)
		}
	}
	for k, v := range c.IOSchedulers {
		if strings.TrimSpace(v) == "" {
			delete(c.IOSchedulers, k)
		}
	}
}

var (
	thpEnabledModes = []string{"always", "madvise", "never"}
	thpDefragModes  = []string{"always", "defer", "defer+madvise", "madvise", "never"}

	sysctlKeyPattern = regexp.MustCompile(`^[a-z0-9_-]+(\.[a-z0-9_-]+)+$`)
	namePattern      = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// Validate returns every problem found in the policy.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if c.PolicyVersion < 1 {
		errs = multierror.Append(errs, fmt.Errorf("invalid policy_version %d", c.PolicyVersion))
	}
	for name := range c.Tuners {
		if !utils.ContainsString(TunerNames(), name) {
			errs = multierror.Append(errs, fmt.Errorf("unknown tuner %q, known tuners are %s",
				name, strings.Join(TunerNames(), ", ")))
		}
	}
	if !namePattern.MatchString(c.CPU.Governor) {
		errs = multierror.Append(errs, fmt.Errorf("invalid cpu governor %q", c.CPU.Governor))
	}
	if !utils.ContainsString(thpEnabledModes, c.THP.Enabled) {
		errs = multierror.Append(errs, fmt.Errorf("invalid transparent_hugepages.enabled %q, must be one of %s",
			c.THP.Enabled, strings.Join(thpEnabledModes, ", ")))
	}
	if !utils.ContainsString(thpDefragModes, c.THP.Defrag) {
		errs = multierror.Append(errs, fmt.Errorf("invalid transparent_hugepages.defrag %q, must be one of %s",
			c.THP.Defrag, strings.Join(thpDefragModes, ", ")))
	}
	for _, key := range c.SysctlKeys() {
		if !sysctlKeyPattern.MatchString(key) {
			errs = multierror.Append(errs, fmt.Errorf("invalid sysctl key %q", key))
		}
		if strings.ContainsAny(c.Sysctl[key], "\n\r") {
			errs = multierror.Append(errs, fmt.Errorf("sysctl %s: value spans multiple lines", key))
		}
	}
	for _, pattern := range c.SchedulerPatterns() {
		if err := validatePattern(pattern); err != nil {
			errs = multierror.Append(errs, err)
		}
		if s := c.IOSchedulers[pattern]; !namePattern.MatchString(s) {
			errs = multierror.Append(errs, fmt.Errorf("invalid io scheduler %q for %q", s, pattern))
		}
	}
	for _, m := range c.Modules {
		if !namePattern.MatchString(m) {
			errs = multierror.Append(errs, fmt.Errorf("invalid module name %q", m))
		}
	}
	return errs.ErrorOrNil()
}

// validatePattern checks that a device pattern can be used both as a
// /sys/block glob and inside a udev rule.
func validatePattern(pattern string) error {
	if strings.ContainsAny(pattern, `/"`) {
		return fmt.Errorf("invalid device pattern %q: must not contain '/' or '\"'", pattern)
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid device pattern %q: %w", pattern, err)
	}
	return nil
}
