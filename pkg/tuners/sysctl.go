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
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	hvos "github.com/redpanda-data/hvtune/pkg/os"
	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors/commands"
	"github.com/redpanda-data/hvtune/pkg/utils"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// SysctlDropInPath is owned by hvtune and rewritten in full on every run.
	SysctlDropInPath = "/etc/sysctl.d/60-hvtune.conf"
	// LegacySysctlConf is only ever cleaned of entries older hvtune versions
	// added to it.
	LegacySysctlConf = "/etc/sysctl.conf"

	legacyBeginMarker = "# BEGIN hvtune"
	legacyEndMarker   = "# END hvtune"
)

// Namespaces come out in this order, followed by any other in alphabetical
// order.
var sysctlNamespaceOrder = []string{"vm", "net"}

// RenderSysctlDropIn renders settings as a sysctl.d fragment: one section per
// namespace, keys sorted within a section.
func RenderSysctlDropIn(policyVersion int, settings map[string]string) string {
	byNamespace := make(map[string][]string)
	for key := range settings {
		ns, _, _ := strings.Cut(key, ".")
		byNamespace[ns] = append(byNamespace[ns], key)
	}
	var namespaces []string
	for _, ns := range sysctlNamespaceOrder {
		if _, ok := byNamespace[ns]; ok {
			namespaces = append(namespaces, ns)
		}
	}
	var others []string
	for ns := range byNamespace {
		if !utils.ContainsString(sysctlNamespaceOrder, ns) {
			others = append(others, ns)
		}
	}
	sort.Strings(others)
	namespaces = append(namespaces, others...)

	var b strings.Builder
	b.WriteString(managedHeader(policyVersion) + "\n")
	for _, ns := range namespaces {
		keys := byNamespace[ns]
		sort.Strings(keys)
		fmt.Fprintf(&b, "\n# %s\n", ns)
		for _, key := range keys {
			fmt.Fprintf(&b, "%s = %s\n", key, system.NormalizeSysctlValue(settings[key]))
		}
	}
	return b.String()
}

type sysctlTuner struct {
	fs            afero.Fs
	settings      map[string]string
	policyVersion int
	sysctl        system.Sysctl
	proc          hvos.Proc
	executor      executors.Executor
	timeout       time.Duration
}

// NewSysctlTuner writes settings to the hvtune drop-in, reloads every sysctl
// source and reads each key back.
func NewSysctlTuner(
	fs afero.Fs,
	settings map[string]string,
	policyVersion int,
	sysctl system.Sysctl,
	proc hvos.Proc,
	executor executors.Executor,
	timeout time.Duration,
) Tunable {
	return &sysctlTuner{
		fs:            fs,
		settings:      settings,
		policyVersion: policyVersion,
		sysctl:        sysctl,
		proc:          proc,
		executor:      executor,
		timeout:       timeout,
	}
}

func (t *sysctlTuner) CheckIfSupported() (bool, string) {
	if len(t.settings) == 0 {
		return false, "no sysctl settings configured"
	}
	return true, ""
}

func (t *sysctlTuner) Tune() TuneResult {
	keys := utils.GetKeysFromStringMap(t.settings)
	outcomes := t.cleanLegacy()

	content := RenderSysctlDropIn(t.policyVersion, t.settings)
	outcomes = append(outcomes, Execute(
		t.executor,
		SysctlDropInPath,
		fmt.Sprintf("%d keys", len(keys)),
		commands.NewReplaceFileCmd(t.fs, SysctlDropInPath, content, 0o644),
	))

	setErrs := make(map[string]error)
	err := t.executor.Execute(commands.NewLaunchCmd(t.proc, t.timeout, "sysctl", "--system"))
	if err != nil {
		zap.L().Sugar().Warnf("'sysctl --system' failed, setting keys directly: %v", err)
		outcomes = append(outcomes, Skipped("sysctl --system", fmt.Sprintf("reload failed, keys set directly: %v", err)))
		for _, key := range keys {
			cmd := commands.NewSysctlSetCmd(t.sysctl, key, system.NormalizeSysctlValue(t.settings[key]))
			if err := t.executor.Execute(cmd); err != nil {
				zap.L().Sugar().Debugf("Unable to set %s: %v", key, err)
				setErrs[key] = err
			}
		}
	}

	for _, key := range keys {
		if t.executor.IsLazy() {
			outcomes = append(outcomes, Skipped(key, ReasonScripted))
			continue
		}
		outcomes = append(outcomes, t.readBack(key, setErrs[key]))
	}
	return NewTuneResult(outcomes...)
}

func (t *sysctlTuner) readBack(key string, setErr error) Outcome {
	want := system.NormalizeSysctlValue(t.settings[key])
	current, err := t.sysctl.Get(key)
	if err != nil {
		if system.IsSysctlUnsupported(err) {
			zap.L().Sugar().Warnf("Skipping %s: unsupported by running kernel", key)
			return Skipped(key, "unsupported by running kernel")
		}
		return Failed(key, fmt.Errorf("unable to read back: %w", err))
	}
	if current != want {
		o := Failed(key, fmt.Errorf("expected %q, got %q", want, current))
		if setErr != nil {
			o = Failed(key, setErr)
		}
		o.Value = current
		return o
	}
	return Applied(key, current)
}

// cleanLegacy removes the entries older versions appended to
// /etc/sysctl.conf, keeping a backup of the original.
func (t *sysctlTuner) cleanLegacy() []Outcome {
	lines, err := utils.ReadFileLines(t.fs, LegacySysctlConf)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return []Outcome{Failed(LegacySysctlConf, err)}
	}
	cleaned, changed := StripManagedSysctlLines(lines, t.settings)
	if !changed {
		return nil
	}
	zap.L().Sugar().Infof("Removing hvtune managed entries from %s", LegacySysctlConf)
	if err := t.executor.Execute(commands.NewBackupFileCmd(t.fs, LegacySysctlConf)); err != nil {
		return []Outcome{Failed(LegacySysctlConf, fmt.Errorf("backup failed, left untouched: %w", err))}
	}
	return []Outcome{Execute(
		t.executor,
		LegacySysctlConf,
		"hvtune entries removed",
		commands.NewWriteFileLinesCmd(t.fs, LegacySysctlConf, cleaned),
	)}
}

var sysctlAssignment = regexp.MustCompile(`^\s*-?\s*([^=#;\s]+)\s*=`)

// StripManagedSysctlLines drops the hvtune marker blocks and any line that
// assigns one of the managed keys. It reports whether anything was dropped.
func StripManagedSysctlLines(lines []string, managed map[string]string) ([]string, bool) {
	var out []string
	inBlock, changed := false, false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == legacyBeginMarker:
			inBlock, changed = true, true
			continue
		case inBlock:
			if trimmed == legacyEndMarker {
				inBlock = false
			}
			continue
		}
		if m := sysctlAssignment.FindStringSubmatch(line); m != nil {
			key := strings.ReplaceAll(m[1], "/", ".")
			if _, ok := managed[key]; ok {
				changed = true
				continue
			}
		}
		out = append(out, line)
	}
	return out, changed
}

func NewSysctlChecker(sysctl system.Sysctl, key, value string) Checker {
	return NewEqualityChecker(
		SysctlChecker,
		key,
		Warning,
		system.NormalizeSysctlValue(value),
		func() (interface{}, error) {
			v, err := sysctl.Get(key)
			if system.IsSysctlUnsupported(err) {
				return nil, fmt.Errorf("%s: %w", key, ErrNotApplicable)
			}
			return v, err
		},
	)
}

func NewSysctlDropInChecker(fs afero.Fs, policyVersion int, settings map[string]string) Checker {
	return NewFileContentChecker(
		fs,
		SysctlDropInChecker,
		SysctlDropInPath,
		RenderSysctlDropIn(policyVersion, settings),
	)
}

// NewFileContentChecker checks that an owned file holds exactly content.
func NewFileContentChecker(fs afero.Fs, id CheckerID, path, content string) Checker {
	return NewEqualityChecker(
		id,
		path,
		Warning,
		"up to date",
		func() (interface{}, error) {
			b, err := afero.ReadFile(fs, path)
			if errors.Is(err, os.ErrNotExist) {
				return "missing", nil
			}
			if err != nil {
				return nil, err
			}
			if string(b) != content {
				return "outdated", nil
			}
			return "up to date", nil
		},
	)
}
