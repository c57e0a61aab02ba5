// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package commands

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	hvos "github.com/redpanda-data/hvtune/pkg/os"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type replaceFileCommand struct {
	fs      afero.Fs
	path    string
	content string
	mode    os.FileMode
}

// NewReplaceFileCmd atomically replaces the file at path with content,
// creating its directory if needed. The mode of an existing file is kept.
func NewReplaceFileCmd(fs afero.Fs, path, content string, mode os.FileMode) Command {
	return &replaceFileCommand{fs: fs, path: path, content: content, mode: mode}
}

func (c *replaceFileCommand) Execute() error {
	zap.L().Sugar().Debugf("Replacing file '%s'", c.path)
	return hvos.ReplaceFile(c.fs, c.path, []byte(c.content), c.mode)
}

func (c *replaceFileCommand) RenderScript(w *bufio.Writer) error {
	tmp := c.path + ".hvtune-tmp"
	fmt.Fprintf(w, "mkdir -p %s\n", filepath.Dir(c.path))
	fmt.Fprintf(w, "cat << 'EOF' > %s\n", tmp)
	fmt.Fprint(w, c.content)
	if !strings.HasSuffix(c.content, "\n") {
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "EOF")
	fmt.Fprintf(w, "[ -e %s ] || chmod %o %s\n", c.path, uint32(c.mode), tmp)
	fmt.Fprintf(w, "mv %s %s\n", tmp, c.path)
	return w.Flush()
}
