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
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/lorenzosaino/go-sysctl"
	"github.com/spf13/afero"
)

const ProcSysDir = "/proc/sys"

// Sysctl reads and writes kernel parameters by their dotted key.
type Sysctl interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// NewSysctl returns a Sysctl operating on the running kernel.
func NewSysctl() Sysctl {
	return kernelSysctl{}
}

type kernelSysctl struct{}

func (kernelSysctl) Get(key string) (string, error) {
	v, err := sysctl.Get(key)
	if err != nil {
		return "", err
	}
	return NormalizeSysctlValue(v), nil
}

func (kernelSysctl) Set(key, value string) error {
	return sysctl.Set(key, value)
}

// NewFsSysctl returns a Sysctl backed by the /proc/sys tree of fs.
func NewFsSysctl(fs afero.Fs) Sysctl {
	return &fsSysctl{fs: fs}
}

type fsSysctl struct {
	fs afero.Fs
}

func (s *fsSysctl) Get(key string) (string, error) {
	v, err := afero.ReadFile(s.fs, SysctlPath(key))
	if err != nil {
		return "", err
	}
	return NormalizeSysctlValue(string(v)), nil
}

func (s *fsSysctl) Set(key, value string) error {
	path := SysctlPath(key)
	if exists, _ := afero.Exists(s.fs, path); !exists {
		return &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return afero.WriteFile(s.fs, path, []byte(value+"\n"), 0o644)
}

// SysctlPath returns the /proc/sys file backing key.
func SysctlPath(key string) string {
	return filepath.Join(ProcSysDir, strings.ReplaceAll(key, ".", "/"))
}

// NormalizeSysctlValue collapses the tab separated vectors the kernel reports
// (e.g. net.ipv4.tcp_rmem) into the single-space form used in config files.
func NormalizeSysctlValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// IsSysctlUnsupported reports whether err means the running kernel does not
// know the key.
func IsSysctlUnsupported(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
