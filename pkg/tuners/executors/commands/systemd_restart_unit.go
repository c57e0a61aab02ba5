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

	"github.com/redpanda-data/hvtune/pkg/system/systemd"
)

type restartSystemdUnitCommand struct {
	client systemd.Client
	name   string
}

// NewRestartSystemdUnitCmd restarts a unit, starting it if it isn't running.
func NewRestartSystemdUnitCmd(client systemd.Client, name string) Command {
	return &restartSystemdUnitCommand{client: client, name: name}
}

func (cmd *restartSystemdUnitCommand) Execute() error {
	return cmd.client.RestartUnit(cmd.name)
}

func (cmd *restartSystemdUnitCommand) RenderScript(w *bufio.Writer) error {
	_, err := fmt.Fprintf(w, "systemctl restart %s\n", cmd.name)
	if err != nil {
		return err
	}
	return w.Flush()
}
