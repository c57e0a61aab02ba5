// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package executors

import (
	"bufio"
	"fmt"
	"os"

	"github.com/redpanda-data/hvtune/pkg/tuners/executors/commands"
	"github.com/spf13/afero"
)

type scriptRenderingExecutor struct {
	writer *bufio.Writer
}

// NewScriptRenderingExecutor returns an executor that appends the bash
// rendering of every command to the file at path, which is truncated and
// started with a shebang. The script does not stop at the first failing
// command, so one rejected setting leaves the later ones applied.
func NewScriptRenderingExecutor(fs afero.Fs, path string) (Executor, error) {
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return nil, fmt.Errorf("unable to create script %s: %w", path, err)
	}
	w := bufio.NewWriter(file)
	header := "#!/bin/bash\n\n# Generated by hvtune tune --output-script\n\n"
	if _, err := w.WriteString(header); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return &scriptRenderingExecutor{writer: w}, nil
}

func (e *scriptRenderingExecutor) Execute(cmd commands.Command) error {
	if err := cmd.RenderScript(e.writer); err != nil {
		return err
	}
	return e.writer.Flush()
}

func (*scriptRenderingExecutor) IsLazy() bool {
	return true
}
