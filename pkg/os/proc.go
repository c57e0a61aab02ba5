// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package os

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Proc runs external programs. Tuners only talk to the package manager,
// systemd, udev and procps tools through it so that tests can replace it.
type Proc interface {
	RunWithSystemLdPath(timeout time.Duration, command string, args ...string) ([]string, error)
}

func NewProc() Proc {
	return &proc{}
}

type proc struct{}

var ldLibraryPathPattern = regexp.MustCompile("^LD_LIBRARY_PATH=.*$")

func (*proc) RunWithSystemLdPath(
	timeout time.Duration, command string, args ...string,
) ([]string, error) {
	var env []string
	for _, v := range os.Environ() {
		if !ldLibraryPathPattern.MatchString(v) {
			env = append(env, v)
		}
	}
	// Package managers must not stop to ask questions.
	env = append(env, "DEBIAN_FRONTEND=noninteractive")
	return run(timeout, command, env, args...)
}

func run(
	timeout time.Duration, command string, env []string, args ...string,
) ([]string, error) {
	zap.L().Sugar().Debugf("Running command '%s' with arguments '%s'", command, args)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, command, args...)
	var out bytes.Buffer
	var errout bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errout
	cmd.Env = env
	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s timed out after %s: %w", command, timeout, ctx.Err())
	}
	if err != nil {
		return nil, fmt.Errorf("err=%s, stderr=%s", err, strings.TrimSpace(errout.String()))
	}
	return strings.Split(strings.TrimRight(out.String(), "\n"), "\n"), nil
}

// MockProc is a Proc that records every invocation and answers with run.
type MockProc struct {
	Calls [][]string
	run   func(command string, args ...string) ([]string, error)
}

func NewMockProc(run func(command string, args ...string) ([]string, error)) *MockProc {
	return &MockProc{run: run}
}

func (m *MockProc) RunWithSystemLdPath(
	_ time.Duration, command string, args ...string,
) ([]string, error) {
	m.Calls = append(m.Calls, append([]string{command}, args...))
	if m.run == nil {
		return nil, nil
	}
	return m.run(command, args...)
}
